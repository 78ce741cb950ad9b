package analyses

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"originlytics-backend/internal/shared/telemetry"
)

// Cache stores completed results keyed by content hash so identical
// content skips phase scheduling entirely. Failures are best-effort: a
// broken cache degrades to recomputation, never to job failure.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool)
	Set(ctx context.Context, key string, result *Result)
}

// NoopCache disables caching.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) (*Result, bool) { return nil, false }
func (NoopCache) Set(ctx context.Context, key string, result *Result) {}

// RedisCache backs the result cache with Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a RedisCache with the given TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) key(hash string) string {
	return "analysis:" + hash
}

// Get returns the cached result for the hash, if present.
func (c *RedisCache) Get(ctx context.Context, hash string) (*Result, bool) {
	data, err := c.client.Get(ctx, c.key(hash)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		telemetry.Warn("cache.get_failed", map[string]any{"error": err.Error()})
		return nil, false
	}
	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		telemetry.Warn("cache.decode_failed", map[string]any{"error": err.Error()})
		return nil, false
	}
	return &result, true
}

// Set stores the result under the hash.
func (c *RedisCache) Set(ctx context.Context, hash string, result *Result) {
	data, err := json.Marshal(result)
	if err != nil {
		telemetry.Warn("cache.encode_failed", map[string]any{"error": err.Error()})
		return
	}
	if err := c.client.Set(ctx, c.key(hash), data, c.ttl).Err(); err != nil {
		telemetry.Warn("cache.set_failed", map[string]any{"error": err.Error()})
	}
}
