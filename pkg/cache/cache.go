// Package cache provides byte-level caching for graph documents and export
// artifacts.
//
// The cache sits between the registry and its storage backend (full graph
// documents are expensive to fetch repeatedly) and behind the export pipeline
// (rasterization is expensive to repeat for unchanged documents).
//
// # Backends
//
//   - file: directory-based cache for CLI usage
//   - redis: shared cache for server deployments
//   - null: caching disabled
//
// # Keys
//
// Keys are namespaced and content-hashed. Use [Keyer] to build them so CLI,
// server, and tests agree on the scheme:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.DocumentKey(graphID)
//	key := keyer.ExportKey(contentHash, "png")
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache is the interface all cache backends implement.
// Implementations must treat a missing key as a miss, not an error.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds namespaced cache keys.
type Keyer interface {
	// DocumentKey returns the cache key for a full graph document.
	DocumentKey(graphID string) string

	// IndexKey returns the cache key for the registry index blob.
	IndexKey(scope string) string

	// ExportKey returns the cache key for a rendered export artifact.
	ExportKey(contentHash, format string) string
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// DocumentKey returns "doc:<hash(graphID)>".
func (k *DefaultKeyer) DocumentKey(graphID string) string {
	return hashKey("doc", graphID)
}

// IndexKey returns "index:<hash(scope)>".
func (k *DefaultKeyer) IndexKey(scope string) string {
	return hashKey("index", scope)
}

// ExportKey returns "export:<hash(contentHash, format)>".
func (k *DefaultKeyer) ExportKey(contentHash, format string) string {
	return hashKey("export", contentHash, format)
}

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// Different storage scopes (worlds, users) get separate cache namespaces.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// DocumentKey generates a prefixed document key.
func (k *ScopedKeyer) DocumentKey(graphID string) string {
	return k.prefix + k.inner.DocumentKey(graphID)
}

// IndexKey generates a prefixed index key.
func (k *ScopedKeyer) IndexKey(scope string) string {
	return k.prefix + k.inner.IndexKey(scope)
}

// ExportKey generates a prefixed export key.
func (k *ScopedKeyer) ExportKey(contentHash, format string) string {
	return k.prefix + k.inner.ExportKey(contentHash, format)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0}) // separator so ("ab","c") != ("a","bc")
	}
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(h.Sum(nil)))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
