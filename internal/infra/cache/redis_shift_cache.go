package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel_ops_bot/internal/domain/shift"

	"github.com/go-redis/redis/v8"
)

const (
	activeShiftPrefix = "shift:active:"
	pingTimeout       = 5 * time.Second
	scanBatch         = 100
)

// RedisShiftCache keeps resolved active shift codes in Redis so several bot replicas share them.
type RedisShiftCache struct {
	rdb *redis.Client
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func NewRedisShiftCache(rdb *redis.Client) *RedisShiftCache {
	return &RedisShiftCache{rdb: rdb}
}

func (c *RedisShiftCache) Get(ctx context.Context, key string) (string, error) {
	code, err := c.rdb.Get(ctx, activeShiftPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", shift.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("error reading shift cache: %w", err)
	}
	return code, nil
}

func (c *RedisShiftCache) Set(ctx context.Context, key, code string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, activeShiftPrefix+key, code, ttl).Err(); err != nil {
		return fmt.Errorf("error writing shift cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached resolution.
func (c *RedisShiftCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, activeShiftPrefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("error scanning shift cache: %w", err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("error clearing shift cache: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
