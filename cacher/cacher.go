// Package cacher caches values that are expensive or remote to produce, with
// at most one fetch in flight per key. The line server keeps its welcome
// banner here, in process or in Redis when several servers share it.
package cacher

import (
	"context"
	"time"
)

// FetchFunc produces the value for a key on a cache miss.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cacher caches values of type T by key.
type Cacher[T any] interface {
	// GetOrFetch returns the cached value for key, or calls fetchFn, stores
	// its result for ttl and returns it. Concurrent misses on the same key
	// share a single fetch.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - key: The cache key to retrieve or set
	//   - ttl: Time-to-live of a fetched value
	//   - fetchFn: Function to fetch the value if not in cache
	//
	// Returns:
	//   - The cached or fetched value
	//   - An error if the fetch or the cache backend fails
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error)

	// Delete removes key so the next GetOrFetch fetches again.
	Delete(ctx context.Context, key string) error
}
