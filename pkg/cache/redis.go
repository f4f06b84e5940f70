package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis, letting the server handle TTL
// eviction. Intended for shared deployments where several abapdoc
// instances serve the same SAP system.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed cache from a connection URL
// such as redis://localhost:6379/0.
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

// Get retrieves a value; redis.Nil maps to a plain miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

// Set stores a value. A ttl of 0 stores the entry without expiration.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a value. Deleting a missing key is not an error.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (c *RedisCache) Close() error { return c.client.Close() }

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
