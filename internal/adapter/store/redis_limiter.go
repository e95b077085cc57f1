package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts estimates per client in a fixed window.
type RedisLimiter struct {
	client *redis.Client
	limit  int // Max estimates per window
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (r *RedisLimiter) CheckLimit(ctx context.Context, clientID string) (bool, error) {
	val, err := r.client.Get(ctx, r.key(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return true, nil // No usage yet
	}
	if err != nil {
		return false, err
	}
	usage, err := strconv.Atoi(val)
	if err != nil {
		return true, nil // Corrupt counter, let the next Increment overwrite it
	}
	return usage < r.limit, nil
}

func (r *RedisLimiter) Increment(ctx context.Context, clientID string) error {
	key := r.key(clientID)
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.window)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisLimiter) key(clientID string) string {
	bucket := time.Now().UTC().Truncate(r.window).Unix()
	return "usage:" + clientID + ":" + strconv.FormatInt(bucket, 10)
}
