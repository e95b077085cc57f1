package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"estimator-core/internal/domain/entity"

	"github.com/redis/go-redis/v9"
)

// estimateKeys matches the keys written by usecase.CacheKey.
const estimateKeys = "estimate:*"

// RedisEstimateCache stores exact-match estimates as JSON with a TTL.
type RedisEstimateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisEstimateCache(client *redis.Client, ttl time.Duration) *RedisEstimateCache {
	return &RedisEstimateCache{client: client, ttl: ttl}
}

// Get returns nil, nil on a miss.
func (c *RedisEstimateCache) Get(ctx context.Context, key string) (*entity.EstimationResult, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result entity.EstimationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached estimate: %w", err)
	}
	return &result, nil
}

func (c *RedisEstimateCache) Save(ctx context.Context, key string, result *entity.EstimationResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode estimate: %w", err)
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Purge deletes cached estimates in SCAN batches so Redis is never blocked by a KEYS call.
func (c *RedisEstimateCache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, estimateKeys, 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to purge estimates: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan estimates: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to purge estimates: %w", err)
		}
	}
	return nil
}
