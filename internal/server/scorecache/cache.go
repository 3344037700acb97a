// Package scorecache holds the serialized scoreboard between ledger writes.
// Redis is used when configured so several server replicas share one entry;
// otherwise an in-process map serves.
package scorecache

import (
	"context"
	"time"
)

// Cache is a byte-value cache with explicit invalidation.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Incr atomically adds one to the integer stored at key and returns the
	// new value. A missing key counts from zero and never expires.
	Incr(ctx context.Context, key string) (int64, error)
}
