package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache implements usecase.Cache.
type Cache struct {
	client redis.Cmdable
	logger *logger.Logger
}

func NewCache(client redis.Cmdable, log *logger.Logger) *Cache {
	return &Cache{client: client, logger: log.Named("RedisCache")}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, usecase.ErrCacheMiss
		}
		c.logger.Error("Redis Get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Error("Redis Set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Error("Redis Del failed", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
