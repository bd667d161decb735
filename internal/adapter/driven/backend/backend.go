// Package backend opens the configured NoteListStore: the local SQLite slot or
// the remote Azure table, optionally fronted by a Redis cache.
package backend

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/notekeeper/internal/adapter/driven/azuretable"
	"github.com/ericfisherdev/notekeeper/internal/adapter/driven/rediscache"
	sqliteadapter "github.com/ericfisherdev/notekeeper/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/notekeeper/internal/application"
	"github.com/ericfisherdev/notekeeper/internal/config"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

// Backend is an opened store plus the persist mode that suits it.
type Backend struct {
	Store driven.NoteListStore
	Mode  application.PersistMode
	// Shared is set when the store keeps one list for every user id.
	Shared bool

	closers []func() error
}

// Close releases the connections held by the backend.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Open connects to the backend selected by cfg.Backend. Local storage is one
// shared slot written synchronously; remote writes go through the queued persister.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case config.BackendLocal:
		return openLocal(ctx, cfg.DBPath, logger)
	case config.BackendRemote:
		return openRemote(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func openLocal(ctx context.Context, dbPath string, logger *slog.Logger) (*Backend, error) {
	db, err := sqliteadapter.NewDB(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	logger.Info("database opened", "path", dbPath)

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("migrations complete")

	return &Backend{
		Store:   sqliteadapter.NewNoteRepo(db),
		Mode:    application.PersistSync,
		Shared:  true,
		closers: []func() error{db.Close},
	}, nil
}

func openRemote(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	table, err := azuretable.NewTableClient(ctx, cfg.AzureConnectionString, cfg.AzureTable)
	if err != nil {
		return nil, err
	}
	logger.Info("azure table ready", "table", cfg.AzureTable)

	b := &Backend{
		Store: azuretable.NewNoteStore(table, logger),
		Mode:  application.PersistQueued,
	}

	if cfg.RedisAddr == "" {
		return b, nil
	}

	client := redis.NewClient(RedisOptions(cfg.RedisAddr))
	if err := client.Ping(ctx).Err(); err != nil {
		// The cache is optional; a dead Redis at startup only costs latency.
		logger.Warn("redis unreachable, continuing with cache enabled", "addr", cfg.RedisAddr, "error", err)
	}
	b.Store = rediscache.New(b.Store, client, cfg.CacheTTL, logger)
	b.closers = append(b.closers, client.Close)
	logger.Info("redis cache enabled", "ttl", cfg.CacheTTL)

	return b, nil
}

// RedisOptions accepts either a redis:// URL or an Azure-style
// "host:port,password=...,ssl=True" connection string.
func RedisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}

	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts
}

// RegistryOptions returns the workspace registry options matching the backend.
func (b *Backend) RegistryOptions(idleTimeout time.Duration) []application.RegistryOption {
	opts := []application.RegistryOption{application.WithIdleTimeout(idleTimeout)}
	if b.Shared {
		opts = append(opts, application.WithSharedWorkspace())
	}
	return opts
}
