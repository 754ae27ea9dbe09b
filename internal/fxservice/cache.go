package fxservice

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a short-TTL rate cache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache returns a RedisCache over the given client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached value for key or "" on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return val, nil
}

// Set stores value under key for the given TTL.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}
