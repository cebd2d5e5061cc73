package cacher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	lockTTL        = 10 * time.Second
	waitTimeout    = 10 * time.Second
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
)

// releaseLock deletes the lock only if this caller still owns it.
var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// redisCacher is a Cacher shared through Redis. Values are stored as JSON.
// A SETNX lock per key lets a single instance fetch on a miss while the
// others poll for the result.
type redisCacher[T any] struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCacher creates a Redis-backed Cacher. Every key is stored under
// prefix.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	banners := NewRedisCacher[string](client, "lineserver:")
func NewRedisCacher[T any](client redis.UniversalClient, prefix string) Cacher[T] {
	return &redisCacher[T]{client: client, prefix: prefix}
}

// GetOrFetch implements Cacher.
func (c *redisCacher[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error) {
	var zero T
	key = c.prefix + key

	if val, found, err := c.get(ctx, key); err != nil || found {
		return val, err
	}

	lockKey := key + ":lock"
	lockValue := strconv.FormatInt(time.Now().UnixNano(), 10)
	acquired, err := c.client.SetNX(ctx, lockKey, lockValue, lockTTL).Result()
	if err != nil {
		return zero, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !acquired {
		return c.waitForCache(ctx, key, lockKey)
	}

	defer releaseLock.Run(context.Background(), c.client, []string{lockKey}, lockValue)

	result, err := fetchFn(ctx)
	if err != nil {
		return zero, fmt.Errorf("fetch function failed: %w", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return zero, fmt.Errorf("failed to cache result: %w", err)
	}

	return result, nil
}

// Delete implements Cacher.
func (c *redisCacher[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

func (c *redisCacher[T]) get(ctx context.Context, key string) (T, bool, error) {
	var zero T

	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}

	if err != nil {
		return zero, false, fmt.Errorf("redis get error: %w", err)
	}

	var result T
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return result, true, nil
}

// waitForCache polls with exponential backoff until the lock holder stores
// the value, the lock disappears without a value, or waitTimeout passes.
func (c *redisCacher[T]) waitForCache(ctx context.Context, key, lockKey string) (T, error) {
	var zero T

	backoff := initialBackoff
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if val, found, err := c.get(ctx, key); err != nil || found {
			return val, err
		}

		exists, err := c.client.Exists(ctx, lockKey).Result()
		if err != nil {
			return zero, fmt.Errorf("failed to check lock existence: %w", err)
		}

		if exists == 0 {
			if val, found, err := c.get(ctx, key); err != nil || found {
				return val, err
			}

			return zero, errors.New("fetch operation failed or cache not populated")
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}

	return zero, errors.New("timeout waiting for cache")
}
