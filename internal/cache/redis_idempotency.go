// Package cache holds Redis-backed stores shared by the HTTP layer.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces idempotency keys in a shared Redis.
const DefaultPrefix = "idem:"

// RedisIdempotencyStore keeps idempotent create responses in Redis.
// Save overwrites (plain SET), so like the SQL store it offers no
// compare-and-set between racing first writers.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisIdempotencyStore returns a store writing keys under prefix.
// ttl <= 0 keeps records until evicted.
func NewRedisIdempotencyStore(client *redis.Client, prefix string, ttl time.Duration) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisIdempotencyStore) key(collection, key string) string {
	return s.prefix + collection + ":" + key
}

// Find returns the stored response body for (collection, key).
func (s *RedisIdempotencyStore) Find(ctx context.Context, collection, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, s.key(collection, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get idempotency: %w", err)
	}
	return b, true, nil
}

// Save stores body for (collection, key), replacing any previous value.
func (s *RedisIdempotencyStore) Save(ctx context.Context, collection, key string, body []byte) error {
	if err := s.client.Set(ctx, s.key(collection, key), body, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set idempotency: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable. It backs the readiness probe.
func (s *RedisIdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
