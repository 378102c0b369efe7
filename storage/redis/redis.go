package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cryptofolio/api/internal/config"
	"github.com/cryptofolio/api/lib/errs"
	"github.com/redis/go-redis/v9"
)

// Cache is a thin wrapper over a shared Redis instance, used by the price
// oracle. Concurrent writers racing on a key are fine: last-writer-wins,
// every value carries its own TTL.
type Cache struct {
	client *redis.Client
	log    *slog.Logger
}

func New(cfg config.RedisConfig, log *slog.Logger) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		log: log,
	}
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errs.ErrNotFound
		}
		c.log.Warn("cache get failed", "key", key, "error", err)
		return "", err
	}

	return value, nil
}

func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
		return err
	}

	return nil
}

func (c *Cache) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.log.Warn("error closing redis client", "error", err)
		}
	}
}
