package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

func newGitHubServer(t *testing.T, user map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer","scope":"read:user"}`))
	})

	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(user)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHubProvider_AuthCodeURL(t *testing.T) {
	p := NewGitHubProvider("client-1", "secret", "http://localhost:8080/auth/github/callback")

	raw := p.AuthCodeURL("state-xyz")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "client-1", u.Query().Get("client_id"))
	assert.Equal(t, "state-xyz", u.Query().Get("state"))
	assert.Equal(t, "read:user", u.Query().Get("scope"))
	assert.Equal(t, model.ProviderGitHub, p.Name())
}

func TestGitHubProvider_Exchange(t *testing.T) {
	srv := newGitHubServer(t, map[string]any{"id": 42, "login": "octocat", "name": "The Octocat"})
	p, err := NewGitHubProviderWithEndpoints("client-1", "secret", "http://localhost/cb", srv.URL)
	require.NoError(t, err)

	user, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: "github:42", DisplayName: "The Octocat", Provider: model.ProviderGitHub}, user)
}

func TestGitHubProvider_ExchangeFallsBackToLogin(t *testing.T) {
	srv := newGitHubServer(t, map[string]any{"id": 7, "login": "hubot"})
	p, err := NewGitHubProviderWithEndpoints("client-1", "secret", "http://localhost/cb", srv.URL)
	require.NoError(t, err)

	user, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "hubot", user.DisplayName)
}

func TestGitHubProvider_ExchangeBadCode(t *testing.T) {
	srv := newGitHubServer(t, nil)
	p, err := NewGitHubProviderWithEndpoints("client-1", "secret", "http://localhost/cb", srv.URL)
	require.NoError(t, err)

	_, err = p.Exchange(context.Background(), "bad-code")
	assert.ErrorIs(t, err, driven.ErrInvalidToken)

	_, err = p.Exchange(context.Background(), "")
	assert.ErrorIs(t, err, driven.ErrInvalidToken)
}
