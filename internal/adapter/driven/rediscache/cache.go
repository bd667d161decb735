// Package rediscache decorates a NoteListStore with a Redis read-through cache.
package rediscache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/notekeeper/internal/adapter/driven/notejson"
	"github.com/ericfisherdev/notekeeper/internal/domain/model"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

const keyPrefix = "notekeeper:notes:"

// Compile-time interface satisfaction check.
var _ driven.NoteListStore = (*Cache)(nil)

// Cache serves Load from Redis when possible and keeps the cached copy in
// step with every Save. Redis failures never fail the call.
type Cache struct {
	base   driven.NoteListStore
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Cache over base. A non-positive ttl keeps entries until evicted.
func New(base driven.NoteListStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if base == nil {
		panic("rediscache.New: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{base: base, redis: client, ttl: ttl, logger: logger}
}

// Load returns the cached list or falls through to the base store.
func (c *Cache) Load(ctx context.Context, userID string) ([]model.Note, error) {
	if notes, ok := c.load(ctx, userID); ok {
		return notes, nil
	}

	notes, err := c.base.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, userID, notes)
	return notes, nil
}

// Save writes through to the base store, then refreshes the cached copy.
// On a failed write the cached copy is evicted so the next Load re-reads.
func (c *Cache) Save(ctx context.Context, userID string, notes []model.Note) error {
	if err := c.base.Save(ctx, userID, notes); err != nil {
		c.Evict(ctx, userID)
		return err
	}

	c.store(ctx, userID, notes)
	return nil
}

// Evict drops the cached list for userID.
func (c *Cache) Evict(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, key(userID)).Err(); err != nil {
		c.logger.Warn("redis evict failed", "user_id", userID, "error", err)
	}
}

func (c *Cache) load(ctx context.Context, userID string) ([]model.Note, bool) {
	if c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("redis get failed", "user_id", userID, "error", err)
		return nil, false
	}

	notes, err := notejson.Unmarshal(data)
	if err != nil {
		c.logger.Warn("dropping corrupt cache entry", "user_id", userID, "error", err)
		c.Evict(ctx, userID)
		return nil, false
	}
	return notes, true
}

func (c *Cache) store(ctx context.Context, userID string, notes []model.Note) {
	if c.redis == nil {
		return
	}

	data, err := notejson.Marshal(notes)
	if err != nil {
		c.logger.Warn("encode cache entry failed", "user_id", userID, "error", err)
		return
	}
	if err := c.redis.Set(ctx, key(userID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", "user_id", userID, "error", err)
	}
}

func key(userID string) string {
	return keyPrefix + userID
}
