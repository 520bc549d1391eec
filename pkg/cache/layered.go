package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache combines a fast in-process layer with Redis. Writes go
// to both layers; reads try memory first and backfill on a Redis hit.
type LayeredCache struct {
	memory *MemoryCache
	redis  *RedisCache
}

// NewLayeredCache creates a two-level cache.
func NewLayeredCache(memory *MemoryCache, redis *RedisCache) *LayeredCache {
	return &LayeredCache{memory: memory, redis: redis}
}

func (c *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.redis.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	// Memory layer is best effort.
	_ = c.memory.Set(ctx, key, value, expiration)
	return nil
}

func (c *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := c.memory.Get(ctx, key, dest); err == nil {
		return nil
	}

	err := c.redis.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	_ = c.memory.Set(ctx, key, dest, 0)
	return nil
}

func (c *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	memErr := c.memory.Delete(ctx, keys...)
	redisErr := c.redis.Delete(ctx, keys...)
	return errors.Join(memErr, redisErr)
}

func (c *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, err := c.memory.Exists(ctx, keys...); err == nil && ok {
		return true, nil
	}
	return c.redis.Exists(ctx, keys...)
}

// Close releases both layers.
func (c *LayeredCache) Close() error {
	memErr := c.memory.Close()
	redisErr := c.redis.Close()
	return errors.Join(memErr, redisErr)
}
