package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// CacheRepo holds the exchange-rate snapshot so the provider isn't hit
// on every page view. Misses return found=false, never an error.
type CacheRepo struct {
	client *goredis.Client
}

func NewCacheRepo(client *goredis.Client) *CacheRepo {
	return &CacheRepo{client: client}
}

func (r *CacheRepo) GetFloat(ctx context.Context, key string) (float64, bool, error) {
	if r.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return 0, false, fmt.Errorf("cache key is required")
	}

	raw, err := r.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cache key: %w", err)
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached float: %w", err)
	}
	return value, true, nil
}

func (r *CacheRepo) SetFloat(ctx context.Context, key string, value float64, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if key == "" || ttl <= 0 {
		return fmt.Errorf("invalid cache set payload")
	}

	if err := r.client.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64), ttl).Err(); err != nil {
		return fmt.Errorf("set cache key: %w", err)
	}
	return nil
}
