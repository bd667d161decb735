package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// ErrInvalidToken is returned when a provider token cannot be verified.
var ErrInvalidToken = errors.New("invalid identity token")

// TokenVerifier turns a provider-issued ID token into a User.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (model.User, error)
}

// FederatedProvider is an OAuth-style sign-in provider. AuthCodeURL builds
// the redirect to the provider's consent page and Exchange resolves the
// returned code into a User.
type FederatedProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (model.User, error)
}
