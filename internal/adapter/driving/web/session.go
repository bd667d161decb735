package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

const sessionCookieName = "notekeeper_session"

// ErrNoSession is returned when a request carries no valid session cookie.
var ErrNoSession = errors.New("no session")

type sessionClaims struct {
	jwt.RegisteredClaims
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Sessions issues and reads HS256-signed session cookies carrying the
// signed-in user.
type Sessions struct {
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessions creates a session codec. secure marks cookies HTTPS-only.
func NewSessions(key []byte, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{key: key, ttl: ttl, secure: secure, now: time.Now}
}

// Encode returns a signed session token for user.
func (s *Sessions) Encode(user model.User) (string, error) {
	now := s.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name:     user.DisplayName,
		Provider: user.Provider,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies a session token and returns its user.
func (s *Sessions) Decode(token string) (model.User, error) {
	var claims sessionClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil || !parsed.Valid {
		return model.User{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	// Expiry is checked against the injected clock.
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return model.User{}, fmt.Errorf("%w: expired", ErrNoSession)
	}
	if claims.Subject == "" {
		return model.User{}, fmt.Errorf("%w: missing subject", ErrNoSession)
	}

	return model.User{ID: claims.Subject, DisplayName: claims.Name, Provider: claims.Provider}, nil
}

// Set writes the session cookie for user.
func (s *Sessions) Set(w http.ResponseWriter, user model.User) error {
	token, err := s.Encode(user)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// User returns the signed-in user of the request.
func (s *Sessions) User(r *http.Request) (model.User, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return model.User{}, ErrNoSession
	}
	return s.Decode(cookie.Value)
}
