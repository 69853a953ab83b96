package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"powerbi-tom-skill/internal/common/config"
)

// RedisClient holds the memory records as hashes. The store only ever issues
// a handful of commands per invocation, so the pool stays small.
type RedisClient struct {
	Client *redis.Client
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*RedisClient, error) {
	c := &RedisClient{Client: redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  pingTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
		MinIdleConns: 1,
	})}

	if err := c.Ping(ctx); err != nil {
		c.Client.Close()
		return nil, err
	}
	return c, nil
}

func (c *RedisClient) Kind() string { return "redis" }

func (c *RedisClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s unreachable: %w", c.Client.Options().Addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
