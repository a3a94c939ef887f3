package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/squadup/teamfinder/internal/config"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForLikeCount generates the Redis key for a user's incoming-like count
// in one game.
func (c *RedisCache) KeyForLikeCount(userID uint64, game string) string {
	return fmt.Sprintf("likes:count:%s:%d", game, userID)
}

// UpdateLikeCount stores a fresh counter value with a 1h TTL.
func (c *RedisCache) UpdateLikeCount(ctx context.Context, userID uint64, game string, count int64) error {
	return c.Client.Set(ctx, c.KeyForLikeCount(userID, game), count, time.Hour).Err()
}

// GetLikeCount returns the cached counter. A cache miss is reported as
// found=false, not an error.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID uint64, game string) (int64, bool, error) {
	key := c.KeyForLikeCount(userID, game)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, time.Hour).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// InvalidateLikeCount drops the counter so the next read falls back to the
// store. Called when a new like lands for the target.
func (c *RedisCache) InvalidateLikeCount(ctx context.Context, userID uint64, game string) error {
	return c.Del(ctx, c.KeyForLikeCount(userID, game))
}
