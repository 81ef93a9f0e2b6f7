// Package cache defines the C1 cache contract: a TTL-keyed byte-blob store
// with a read-through helper. Two implementations satisfy Store: an
// in-process map for tests and local runs, and a Redis-backed store for
// production.
package cache

import (
	"context"
	"time"
)

// Store is the C1 cache contract. Values are opaque byte blobs; callers own
// serialisation.
type Store interface {
	// Get returns the stored bytes and true, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// GetOrFetch reads through to producer on a miss, storing and
	// returning its result. producer is invoked at most once per call;
	// concurrent misses on the same key are not coalesced.
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, producer func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

// GetOrFetch is the shared non-coalescing read-through algorithm. Backend
// implementations delegate their GetOrFetch method to this so the
// miss/store/return sequence lives in exactly one place.
func GetOrFetch(ctx context.Context, s Store, key string, ttl time.Duration, producer func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok, err := s.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return v, nil
	}

	v, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return v, nil
	}
	if err := s.Set(ctx, key, v, ttl); err != nil {
		return nil, err
	}
	return v, nil
}
