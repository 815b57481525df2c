package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/ports"
)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store. All keys are namespaced
// under "pincade:".
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{
		client: client,
		prefix: "pincade:",
	}
}

// Put upserts a key with expiry, overwriting silently
func (s *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", core.ErrStoreUnavailable, key, err)
	}
	return nil
}

// Get retrieves a value by key
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrRecordNotFound
		}
		return "", fmt.Errorf("%w: get %s: %v", core.ErrStoreUnavailable, key, err)
	}
	return val, nil
}

// Delete removes a key, reporting whether it existed
func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: del %s: %v", core.ErrStoreUnavailable, key, err)
	}
	return removed > 0, nil
}

// DeleteAllMatching removes every key under the prefix and reports how
// many were removed. The store may be scanned in batches; partial
// failure leaves some keys alive and is reported through the count.
func (s *RedisStore) DeleteAllMatching(ctx context.Context, prefix string) (int, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("%w: scan %s: %v", core.ErrStoreUnavailable, prefix, err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: del %s: %v", core.ErrStoreUnavailable, prefix, err)
	}

	return int(removed), nil
}

// Ping probes the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}
