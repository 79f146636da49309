package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client interface {
	IncrWithTTL(key string, ttl time.Duration) (int64, error)
	Close() error
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisClient(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{rdb: rdb}, nil
}

// IncrWithTTL increments a counter and sets its expiry on first use.
func (c *RedisCache) IncrWithTTL(key string, ttl time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = c.rdb.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
