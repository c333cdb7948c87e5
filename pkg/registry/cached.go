package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/cache"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
)

// indexScope keys the single index blob in the cache.
const indexScope = "all"

// Cached wraps a Store with a byte cache for the index blob and full
// documents. Writes invalidate before hitting the backend so a failed save
// never leaves a stale entry serving reads.
//
// Cache failures are logged and degrade to backend reads; they are never
// surfaced as store errors.
type Cached struct {
	inner Store
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
}

// NewCached wraps the store. A zero ttl caches without expiration.
func NewCached(inner Store, c cache.Cache, k cache.Keyer, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, keyer: k, ttl: ttl}
}

// List serves the index from cache when possible.
func (s *Cached) List(ctx context.Context) ([]document.Summary, error) {
	key := s.keyer.IndexKey(indexScope)
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var entries []document.Summary
		if err := json.Unmarshal(data, &entries); err == nil {
			return entries, nil
		}
	}

	entries, err := s.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(entries); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			log.FromContext(ctx).Warn("index cache write failed", "err", err)
		}
	}
	return entries, nil
}

// Load serves the full document from cache when possible.
func (s *Cached) Load(ctx context.Context, id string) (*document.GraphDocument, error) {
	key := s.keyer.DocumentKey(id)
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		if d, err := document.Unmarshal(data); err == nil {
			return d, nil
		}
	}

	d, err := s.inner.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := document.Marshal(d); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			log.FromContext(ctx).Warn("document cache write failed", "graph", id, "err", err)
		}
	}
	return d, nil
}

// Save invalidates the cached document and index, then writes through.
func (s *Cached) Save(ctx context.Context, d *document.GraphDocument, entry document.Summary) error {
	s.invalidate(ctx, d.ID)
	return s.inner.Save(ctx, d, entry)
}

// Delete invalidates the cached document and index, then deletes.
func (s *Cached) Delete(ctx context.Context, id string) error {
	s.invalidate(ctx, id)
	return s.inner.Delete(ctx, id)
}

func (s *Cached) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, s.keyer.DocumentKey(id)); err != nil {
		log.FromContext(ctx).Warn("document cache invalidation failed", "graph", id, "err", err)
	}
	if err := s.cache.Delete(ctx, s.keyer.IndexKey(indexScope)); err != nil {
		log.FromContext(ctx).Warn("index cache invalidation failed", "err", err)
	}
}

// Close closes the backend store; the cache has its own lifecycle.
func (s *Cached) Close() error { return s.inner.Close() }

var _ Store = (*Cached)(nil)
