package registry

import (
	"context"
	"sync"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	apperrors "github.com/gioppoluca/foundry-graph-sub000/pkg/errors"
)

// Store persists the two storage tiers: the index of lightweight summaries
// and the full documents behind them. Deleting removes the index entry only;
// the document blob stays behind for recovery.
//
// Implementations must return ErrCodeGraphNotFound for missing ids and must
// never report a failed write as success.
type Store interface {
	// List returns every index entry.
	List(ctx context.Context) ([]document.Summary, error)

	// Load fetches the full document behind an index entry.
	Load(ctx context.Context, id string) (*document.GraphDocument, error)

	// Save writes the document and its index entry together.
	Save(ctx context.Context, d *document.GraphDocument, entry document.Summary) error

	// Delete removes the index entry. The document blob is kept.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

func notFound(id string) error {
	return apperrors.New(apperrors.ErrCodeGraphNotFound, "graph %q not found", id)
}

// MemoryStore is an in-memory Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu    sync.RWMutex
	index map[string]document.Summary
	order []string
	docs  map[string]*document.GraphDocument
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: map[string]document.Summary{},
		docs:  map[string]*document.GraphDocument{},
	}
}

// List returns index entries in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]document.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]document.Summary, 0, len(s.index))
	for _, id := range s.order {
		if entry, ok := s.index[id]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Load returns a copy of the stored document.
func (s *MemoryStore) Load(ctx context.Context, id string) (*document.GraphDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, indexed := s.index[id]; !indexed {
		return nil, notFound(id)
	}
	d, ok := s.docs[id]
	if !ok {
		return nil, notFound(id)
	}
	return d.Clone(), nil
}

// Save stores copies of the document and its index entry.
func (s *MemoryStore) Save(ctx context.Context, d *document.GraphDocument, entry document.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.docs[d.ID]; !known {
		s.order = append(s.order, d.ID)
	}
	s.docs[d.ID] = d.Clone()
	s.index[d.ID] = entry
	return nil
}

// Delete removes the index entry, keeping the document blob.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return notFound(id)
	}
	delete(s.index, id)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
