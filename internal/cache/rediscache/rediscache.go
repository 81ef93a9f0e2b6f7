// Package rediscache is the production C1 backend: a connection-pooled
// Redis client behind the plain byte-blob cache.Store contract.
package rediscache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liquidwatch/engine/internal/cache"
)

// Store is a Redis-backed cache.Store.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New dials Redis with a bounded connection pool and per-call timeouts.
func New(addr, password string, db int) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	return &Store{client: client, keyPrefix: "liquidwatch:"}
}

func (s *Store) fullKey(key string) string {
	return s.keyPrefix + key
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.fullKey(key), value, ttl).Err()
}

func (s *Store) GetOrFetch(ctx context.Context, key string, ttl time.Duration, producer func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	return cache.GetOrFetch(ctx, s, key, ttl, producer)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping verifies connectivity, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ cache.Store = (*Store)(nil)
