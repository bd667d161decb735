// Package identity adapts external identity providers to the driven identity ports.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenVerifier = (*TokenVerifier)(nil)

// TokenVerifier validates ID tokens issued by the email sign-in provider.
// Production tokens are RS256 and checked against the provider's JWKS; local
// mode accepts HS256 tokens signed with a shared secret.
type TokenVerifier struct {
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
	secret   []byte

	parser *jwt.Parser
	now    func() time.Time
}

// NewJWKSVerifier fetches the JWKS at jwksURL and keeps it refreshed in the
// background until Close is called.
func NewJWKSVerifier(jwksURL, audience, issuer string) (*TokenVerifier, error) {
	return newJWKSVerifier(jwksURL, audience, issuer, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
}

func newJWKSVerifier(jwksURL, audience, issuer string, opts keyfunc.Options) (*TokenVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks %s: %w", jwksURL, err)
	}

	return &TokenVerifier{
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		now:      time.Now,
	}, nil
}

// NewSharedSecretVerifier accepts HS256 tokens signed with secret.
func NewSharedSecretVerifier(secret []byte, audience, issuer string) *TokenVerifier {
	return &TokenVerifier{
		secret:   secret,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		now:      time.Now,
	}
}

// Close stops the background JWKS refresh.
func (v *TokenVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Verify parses and validates token and returns the signed-in user. All
// validation failures wrap driven.ErrInvalidToken.
func (v *TokenVerifier) Verify(_ context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, fmt.Errorf("%w: empty token", driven.ErrInvalidToken)
	}

	parsed, err := v.parser.Parse(token, v.keyFor)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %v", driven.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return model.User{}, fmt.Errorf("%w: invalid claims", driven.ErrInvalidToken)
	}
	if err := v.checkClaims(claims); err != nil {
		return model.User{}, fmt.Errorf("%w: %v", driven.ErrInvalidToken, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return model.User{}, fmt.Errorf("%w: missing sub", driven.ErrInvalidToken)
	}

	return model.User{
		ID:          sub,
		DisplayName: displayName(claims, sub),
		Provider:    model.ProviderEmail,
	}, nil
}

func (v *TokenVerifier) checkClaims(claims jwt.MapClaims) error {
	// One minute of leeway for clock skew against the provider.
	now := v.now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return errors.New("token used before issued")
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return errors.New("invalid audience")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return errors.New("invalid issuer")
	}
	return nil
}

func (v *TokenVerifier) keyFor(token *jwt.Token) (any, error) {
	if v.secret != nil {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	}
	if v.jwks == nil {
		return nil, errors.New("jwks not configured")
	}
	// keyfunc caches the key set and refetches it for unknown kids.
	return v.jwks.Keyfunc(token)
}

// displayName prefers the name claim, then email, then the subject.
func displayName(claims jwt.MapClaims, sub string) string {
	for _, claim := range []string{"name", "email"} {
		if v, ok := claims[claim].(string); ok && v != "" {
			return v
		}
	}
	return sub
}
