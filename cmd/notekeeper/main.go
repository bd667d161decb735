package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/notekeeper/internal/adapter/driven/backend"
	"github.com/ericfisherdev/notekeeper/internal/adapter/driven/identity"
	httphandler "github.com/ericfisherdev/notekeeper/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/notekeeper/internal/adapter/driving/web"
	"github.com/ericfisherdev/notekeeper/internal/application"
	"github.com/ericfisherdev/notekeeper/internal/config"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	providers := cfg.SignInProviders()
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"backend", cfg.Backend,
		"providers", providers,
		"timezone", cfg.Location.String(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the storage backend.
	store, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing backend", "error", closeErr)
		}
	}()
	slog.Info("backend ready", "backend", cfg.Backend, "persist_mode", store.Mode)

	// 4. Workspaces follow auth state: sign-in loads, sign-out clears.
	registry := application.NewWorkspaceRegistry(store.Store, store.Mode, time.Now, logger, store.RegistryOptions(cfg.WorkspaceIdleTTL)...)
	gateway := application.NewAuthGateway(providers, logger)
	gateway.OnAuthStateChange(registry.HandleAuthStateChange)
	go registry.Run(ctx, evictInterval(cfg.WorkspaceIdleTTL))

	// 5. Identity adapters.
	verifier, closeVerifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}
	defer closeVerifier()

	federated := application.NewFederatedProviders()
	if cfg.HasGitHubCredentials() {
		federated.Replace(identity.NewGitHubProvider(
			cfg.GitHubClientID,
			cfg.GitHubClientSecret,
			cfg.BaseURL+"/auth/github/callback",
		))
	}
	slog.Info("federated sign-in providers", "providers", federated.Names())

	sessionKey := cfg.SessionSecret
	if sessionKey == nil {
		sessionKey = make([]byte, 32)
		if _, err := rand.Read(sessionKey); err != nil {
			return err
		}
		slog.Warn("NOTEKEEPER_SESSION_SECRET not set, sessions will not survive a restart")
	}
	sessions := webhandler.NewSessions(sessionKey, cfg.SessionTTL, isHTTPS(cfg.BaseURL))

	// 6. Register API and GUI routes.
	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(registry, verifier, cfg.Backend, logger)
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	webHandler := webhandler.NewHandler(registry, gateway, verifier, federated, sessions, cfg.AuthWidgetURL, cfg.Location, logger)
	webhandler.RegisterRoutes(mux, webHandler)

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("notekeeper started", "listen_addr", cfg.ListenAddr, "base_url", cfg.BaseURL)

	// 7. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 8. Graceful shutdown: drain HTTP, then flush pending note writes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	if err := registry.CloseAll(shutdownCtx); err != nil {
		slog.Error("error flushing workspaces", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newVerifier builds the email ID token verifier: JWKS when a URL is
// configured, otherwise the shared HS256 secret. Both absent means email
// sign-in and the JSON API are disabled.
func newVerifier(cfg *config.Config) (driven.TokenVerifier, func(), error) {
	switch {
	case cfg.AuthJWKSURL != "":
		v, err := identity.NewJWKSVerifier(cfg.AuthJWKSURL, cfg.AuthAudience, cfg.AuthIssuer)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("email sign-in enabled", "verifier", "jwks")
		return v, v.Close, nil
	case cfg.AuthSharedSecret != "":
		slog.Info("email sign-in enabled", "verifier", "shared-secret")
		return identity.NewSharedSecretVerifier([]byte(cfg.AuthSharedSecret), cfg.AuthAudience, cfg.AuthIssuer), func() {}, nil
	default:
		slog.Info("no email token verifier configured, email sign-in and API disabled")
		return nil, func() {}, nil
	}
}

// evictInterval checks for idle workspaces a few times per idle period.
func evictInterval(idle time.Duration) time.Duration {
	return max(idle/4, time.Second)
}

func isHTTPS(baseURL string) bool {
	return strings.HasPrefix(baseURL, "https://")
}
