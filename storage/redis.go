package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minus-twelve/budgetgate/types"
)

// RedisLimiter counts attempts in fixed windows shared by every gate instance.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisLimiter(cfg types.RedisConfig, r types.Rate) (*RedisLimiter, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "budgetgate:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisLimiterWithClient(client, cfg.Prefix, r), nil
}

func NewRedisLimiterWithClient(client *redis.Client, prefix string, r types.Rate) *RedisLimiter {
	if r.Limit <= 0 {
		r.Limit = 1
	}
	if r.Period <= 0 {
		r.Period = time.Minute
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(r.Limit),
		window: r.Period,
	}
}

func (r *RedisLimiter) key(key string) string {
	return r.prefix + "login_attempts:" + key
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := r.key(key)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	// The first attempt opens the window; a key left without expiry is
	// repaired on the next attempt.
	if ttl.Val() < 0 {
		if err := r.client.PExpire(ctx, k, r.window).Err(); err != nil {
			return false, err
		}
	}
	return incr.Val() <= r.limit, nil
}

func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

func (r *RedisLimiter) Client() *redis.Client {
	return r.client
}
