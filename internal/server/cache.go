package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "schedule:"

// ViewCache caches transformed schedule views in redis, keyed by date. All
// methods are nil-safe: with no client (or no TTL) every read misses and
// writes are dropped, so the server runs unchanged without redis.
type ViewCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{redis: client, ttl: ttl}
}

func (c *ViewCache) Read(ctx context.Context, date string, out any) bool {
	if c.redis == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, cacheKeyPrefix+date).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *ViewCache) Write(ctx context.Context, date string, val any) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, cacheKeyPrefix+date, data, c.ttl).Err()
}

func (c *ViewCache) Invalidate(ctx context.Context, date string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, cacheKeyPrefix+date).Err()
}

func (c *ViewCache) InvalidateAll(ctx context.Context) {
	if c.redis == nil {
		return
	}
	keys, err := c.redis.Keys(ctx, cacheKeyPrefix+"*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	_ = c.redis.Del(ctx, keys...).Err()
}
