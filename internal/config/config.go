// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// Storage backends selectable with NOTEKEEPER_BACKEND.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// minSecretKeyBytes is the minimum decoded length of NOTEKEEPER_SESSION_SECRET.
const minSecretKeyBytes = 32

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	BaseURL    string

	Backend               string
	DBPath                string
	AzureConnectionString string
	AzureTable            string
	RedisAddr             string
	CacheTTL              time.Duration

	// SessionSecret signs session cookies. Nil when unset; the server then
	// uses a per-process random key and sessions do not survive restarts.
	SessionSecret []byte
	SessionTTL    time.Duration

	// WorkspaceIdleTTL is how long an unused workspace stays in memory.
	WorkspaceIdleTTL time.Duration

	AuthProviders      []string
	AuthJWKSURL        string
	AuthAudience       string
	AuthIssuer         string
	AuthSharedSecret   string
	AuthWidgetURL      string
	GitHubClientID     string
	GitHubClientSecret string

	Location  *time.Location
	LogLevel  slog.Level
	LogFormat string
}

// HasGitHubCredentials returns true when both OAuth app credentials are set.
func (c *Config) HasGitHubCredentials() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// HasEmailVerifier returns true when email ID tokens can be verified, either
// against a JWKS endpoint or with a shared HS256 secret.
func (c *Config) HasEmailVerifier() bool {
	return c.AuthJWKSURL != "" || c.AuthSharedSecret != ""
}

// SignInProviders returns the configured providers that are usable, in
// configured order. A provider listed without its credentials is left out.
func (c *Config) SignInProviders() []string {
	out := make([]string, 0, len(c.AuthProviders))
	for _, p := range c.AuthProviders {
		switch {
		case p == model.ProviderEmail && c.HasEmailVerifier():
			out = append(out, p)
		case p == model.ProviderGitHub && c.HasGitHubCredentials():
			out = append(out, p)
		}
	}
	return out
}

// Load reads configuration from environment variables and returns a validated Config.
// Optional variables with defaults: NOTEKEEPER_LISTEN_ADDR (127.0.0.1:8080),
// NOTEKEEPER_BACKEND (local), NOTEKEEPER_DB_PATH (notekeeper.db),
// NOTEKEEPER_AZURE_TABLE (notes), NOTEKEEPER_CACHE_TTL (5m),
// NOTEKEEPER_SESSION_TTL (168h), NOTEKEEPER_WORKSPACE_IDLE_TTL (30m),
// NOTEKEEPER_AUTH_PROVIDERS (email,github),
// NOTEKEEPER_TIMEZONE (Local), NOTEKEEPER_LOG_LEVEL (info), NOTEKEEPER_LOG_FORMAT (text).
// The remote backend requires NOTEKEEPER_AZURE_CONNECTION_STRING.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:            envOr("NOTEKEEPER_LISTEN_ADDR", "127.0.0.1:8080"),
		Backend:               strings.ToLower(envOr("NOTEKEEPER_BACKEND", BackendLocal)),
		DBPath:                envOr("NOTEKEEPER_DB_PATH", "notekeeper.db"),
		AzureTable:            envOr("NOTEKEEPER_AZURE_TABLE", "notes"),
		LogFormat:             strings.ToLower(envOr("NOTEKEEPER_LOG_FORMAT", "text")),
		AzureConnectionString: os.Getenv("NOTEKEEPER_AZURE_CONNECTION_STRING"),
		RedisAddr:             os.Getenv("NOTEKEEPER_REDIS_ADDR"),
		AuthJWKSURL:           os.Getenv("NOTEKEEPER_AUTH_JWKS_URL"),
		AuthAudience:          os.Getenv("NOTEKEEPER_AUTH_AUDIENCE"),
		AuthIssuer:            os.Getenv("NOTEKEEPER_AUTH_ISSUER"),
		AuthSharedSecret:      os.Getenv("NOTEKEEPER_AUTH_SHARED_SECRET"),
		AuthWidgetURL:         os.Getenv("NOTEKEEPER_AUTH_WIDGET_URL"),
		GitHubClientID:        os.Getenv("NOTEKEEPER_GITHUB_CLIENT_ID"),
		GitHubClientSecret:    os.Getenv("NOTEKEEPER_GITHUB_CLIENT_SECRET"),
	}
	cfg.BaseURL = strings.TrimRight(envOr("NOTEKEEPER_BASE_URL", "http://"+cfg.ListenAddr), "/")

	switch cfg.Backend {
	case BackendLocal:
	case BackendRemote:
		if cfg.AzureConnectionString == "" {
			return nil, fmt.Errorf("NOTEKEEPER_AZURE_CONNECTION_STRING is required when NOTEKEEPER_BACKEND is %q", BackendRemote)
		}
	default:
		return nil, fmt.Errorf("NOTEKEEPER_BACKEND must be %q or %q, got %q", BackendLocal, BackendRemote, cfg.Backend)
	}

	var err error
	if cfg.CacheTTL, err = durationEnv("NOTEKEEPER_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("NOTEKEEPER_SESSION_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.WorkspaceIdleTTL, err = durationEnv("NOTEKEEPER_WORKSPACE_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv("NOTEKEEPER_SESSION_SECRET"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("NOTEKEEPER_SESSION_SECRET must be hex encoded: %w", err)
		}
		if len(key) < minSecretKeyBytes {
			return nil, fmt.Errorf("NOTEKEEPER_SESSION_SECRET must decode to at least %d bytes, got %d", minSecretKeyBytes, len(key))
		}
		cfg.SessionSecret = key
	}

	cfg.AuthProviders = []string{model.ProviderEmail, model.ProviderGitHub}
	if v, ok := os.LookupEnv("NOTEKEEPER_AUTH_PROVIDERS"); ok {
		providers := []string{}
		for _, name := range strings.Split(v, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || slices.Contains(providers, name) {
				continue
			}
			if name != model.ProviderEmail && name != model.ProviderGitHub {
				return nil, fmt.Errorf("NOTEKEEPER_AUTH_PROVIDERS has unknown provider %q", name)
			}
			providers = append(providers, name)
		}
		cfg.AuthProviders = providers
	}

	tz := envOr("NOTEKEEPER_TIMEZONE", "Local")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("NOTEKEEPER_TIMEZONE has invalid zone %q: %w", tz, err)
	}

	if v, ok := os.LookupEnv("NOTEKEEPER_LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("NOTEKEEPER_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("NOTEKEEPER_LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}

	return cfg, nil
}

// NewLogger builds the process logger from the configured level and format.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
