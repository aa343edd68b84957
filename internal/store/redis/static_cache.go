// Package redis provides Redis-based implementations of the store interfaces.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"queue-keeper/internal/config"
	"queue-keeper/internal/domain"
	"queue-keeper/internal/store"
)

// Key prefixes for different data types in Redis.
const (
	prefixStaticType  = "static:type:"
	prefixStaticEntry = "static:key:"
)

// StaticCache implements store.StaticRepository as a read-through cache in
// front of another StaticRepository. Cache failures are logged and fall
// through to the backing repository; they never fail a request.
type StaticCache struct {
	client  *redis.Client
	backing store.StaticRepository
	ttl     time.Duration
	logger  *slog.Logger
}

// NewClient creates a Redis client and verifies the connection.
func NewClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// NewStaticCache wraps backing with a Redis cache whose entries expire after ttl.
func NewStaticCache(client *redis.Client, backing store.StaticRepository, ttl time.Duration, logger *slog.Logger) *StaticCache {
	return &StaticCache{
		client:  client,
		backing: backing,
		ttl:     ttl,
		logger:  logger,
	}
}

func typeKey(t domain.StaticType) string {
	return prefixStaticType + string(t)
}

func entryKey(key string) string {
	return prefixStaticEntry + key
}

// ListByType returns cached entries of a category, loading them on a miss.
func (c *StaticCache) ListByType(ctx context.Context, t domain.StaticType) ([]domain.StaticEntry, error) {
	var entries []domain.StaticEntry
	if c.get(ctx, typeKey(t), &entries) {
		return entries, nil
	}

	entries, err := c.backing.ListByType(ctx, t)
	if err != nil {
		return nil, err
	}

	// an empty table is not cached so that seeding shows up immediately
	if len(entries) > 0 {
		c.set(ctx, typeKey(t), entries)
	}
	return entries, nil
}

// Get returns a cached entry, loading it on a miss.
func (c *StaticCache) Get(ctx context.Context, key string) (*domain.StaticEntry, error) {
	var entry domain.StaticEntry
	if c.get(ctx, entryKey(key), &entry) {
		return &entry, nil
	}

	e, err := c.backing.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	c.set(ctx, entryKey(key), e)
	return e, nil
}

// Seed writes through to the backing repository and drops the cached lists
// of every category it touched.
func (c *StaticCache) Seed(ctx context.Context, entries []domain.StaticEntry) error {
	if err := c.backing.Seed(ctx, entries); err != nil {
		return err
	}

	keys := make([]string, 0, len(entries)*2)
	for _, e := range entries {
		keys = append(keys, typeKey(e.Type), entryKey(e.Key))
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn("failed to invalidate static cache", "error", err)
		}
	}
	return nil
}

// get reads and decodes a cached value; any failure counts as a miss.
func (c *StaticCache) get(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("static cache read failed", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("static cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *StaticCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("failed to marshal static cache entry", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("static cache write failed", "key", key, "error", err)
	}
}
