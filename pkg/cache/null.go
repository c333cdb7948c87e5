package cache

import (
	"context"
	"time"
)

// NullCache discards everything: every Get is a miss, every write succeeds.
// It is what an Exporter or registry gets when caching is configured off, so
// callers never need a nil check.
type NullCache struct{}

// NewNullCache creates the no-op cache.
func NewNullCache() Cache { return &NullCache{} }

// Get always misses.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set drops the value.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete is a no-op.
func (c *NullCache) Delete(ctx context.Context, key string) error { return nil }

// Close is a no-op.
func (c *NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
