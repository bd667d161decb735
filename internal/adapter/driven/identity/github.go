package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FederatedProvider = (*GitHubProvider)(nil)

// GitHubProvider signs users in with GitHub OAuth. The exchanged access token
// is only used to look up the user's profile.
type GitHubProvider struct {
	oauth     *oauth2.Config
	transport http.RoundTripper
	baseURL   *url.URL
}

// NewGitHubProvider creates a provider for the given OAuth app. API calls go
// through a shared transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
func NewGitHubProvider(clientID, clientSecret, redirectURL string) *GitHubProvider {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	return &GitHubProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     githuboauth.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user"},
		},
		transport: rateLimitClient.Transport,
	}
}

// NewGitHubProviderWithEndpoints is intended for testing, pointing both the
// OAuth endpoint and the REST API at an httptest server.
func NewGitHubProviderWithEndpoints(clientID, clientSecret, redirectURL, serverURL string) (*GitHubProvider, error) {
	u, err := url.Parse(serverURL + "/api/")
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	return &GitHubProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  serverURL + "/login/oauth/authorize",
				TokenURL: serverURL + "/login/oauth/access_token",
			},
			RedirectURL: redirectURL,
			Scopes:      []string{"read:user"},
		},
		transport: http.DefaultTransport,
		baseURL:   u,
	}, nil
}

// Name returns the provider identifier used in routes and sessions.
func (p *GitHubProvider) Name() string {
	return model.ProviderGitHub
}

// AuthCodeURL returns the GitHub consent URL carrying state.
func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades the OAuth code for a token and resolves the GitHub user.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (model.User, error) {
	if code == "" {
		return model.User{}, fmt.Errorf("%w: empty oauth code", driven.ErrInvalidToken)
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: exchange oauth code: %v", driven.ErrInvalidToken, err)
	}

	client := gh.NewClient(&http.Client{Transport: p.transport}).WithAuthToken(token.AccessToken)
	if p.baseURL != nil {
		client.BaseURL = p.baseURL
	}

	ghUser, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return model.User{}, fmt.Errorf("fetch github user: %w", err)
	}

	return mapGitHubUser(ghUser), nil
}

func mapGitHubUser(u *gh.User) model.User {
	name := u.GetName()
	if name == "" {
		name = u.GetLogin()
	}
	return model.User{
		ID:          model.ProviderGitHub + ":" + strconv.FormatInt(u.GetID(), 10),
		DisplayName: name,
		Provider:    model.ProviderGitHub,
	}
}
