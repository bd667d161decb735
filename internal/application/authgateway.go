package application

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// AuthStateChange is delivered to listeners on sign-in and sign-out.
type AuthStateChange struct {
	User     model.User
	SignedIn bool
}

// AuthStateListener receives auth state changes synchronously, in
// subscription order.
type AuthStateListener func(ctx context.Context, change AuthStateChange)

// AuthGateway fans provider sign-in results out to subscribers and carries the
// enabled sign-in options. It never authenticates anyone itself.
type AuthGateway struct {
	mu        sync.RWMutex
	listeners []AuthStateListener
	providers []string
	logger    *slog.Logger
}

// NewAuthGateway creates a gateway offering the given sign-in providers.
func NewAuthGateway(providers []string, logger *slog.Logger) *AuthGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthGateway{
		providers: slices.Clone(providers),
		logger:    logger,
	}
}

// OnAuthStateChange subscribes listener to future state changes.
func (g *AuthGateway) OnAuthStateChange(listener AuthStateListener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, listener)
}

// Providers returns the enabled sign-in options in display order.
func (g *AuthGateway) Providers() []string {
	return slices.Clone(g.providers)
}

// ProviderEnabled reports whether name is an enabled sign-in option.
func (g *AuthGateway) ProviderEnabled(name string) bool {
	return slices.Contains(g.providers, name)
}

// SignedIn publishes a successful provider sign-in.
func (g *AuthGateway) SignedIn(ctx context.Context, user model.User) {
	g.logger.Info("user signed in", "user_id", user.ID, "provider", user.Provider)
	g.publish(ctx, AuthStateChange{User: user, SignedIn: true})
}

// SignOut runs revoke (the provider-side sign-out, may be nil) and, once it
// succeeds, publishes the sign-out. On failure the error is logged and
// returned and no state change is published.
func (g *AuthGateway) SignOut(ctx context.Context, user model.User, revoke func(context.Context) error) error {
	if revoke != nil {
		if err := revoke(ctx); err != nil {
			g.logger.Error("error occurred during sign-out", "user_id", user.ID, "error", err)
			return err
		}
	}

	g.logger.Info("user signed out", "user_id", user.ID)
	g.publish(ctx, AuthStateChange{User: user, SignedIn: false})
	return nil
}

func (g *AuthGateway) publish(ctx context.Context, change AuthStateChange) {
	g.mu.RLock()
	listeners := slices.Clone(g.listeners)
	g.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, change)
	}
}
