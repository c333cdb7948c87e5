package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	apperrors "github.com/gioppoluca/foundry-graph-sub000/pkg/errors"
)

// FileStore persists graphs under a base directory:
//
//	<base>/index.json        all index entries, one small blob
//	<base>/graphs/<id>.json  one file per full document
//
// The index is the source of truth for existence; a graph file without an
// index entry is treated as deleted.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-backed store rooted at baseDir. If baseDir is
// empty it defaults to ~/.config/foundrygraph/graphs/.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "foundrygraph", "graphs")
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "graphs"), 0o700); err != nil {
		return nil, fmt.Errorf("create graph dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) indexPath() string { return filepath.Join(s.baseDir, "index.json") }

func (s *FileStore) graphPath(id string) string {
	return filepath.Join(s.baseDir, "graphs", id+".json")
}

func (s *FileStore) readIndex() ([]document.Summary, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "read index")
	}
	var entries []document.Summary
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "parse index")
	}
	return entries, nil
}

func (s *FileStore) writeIndex(entries []document.Summary) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "marshal index")
	}
	if err := os.WriteFile(s.indexPath(), data, 0o600); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "write index")
	}
	return nil
}

// List returns every index entry.
func (s *FileStore) List(ctx context.Context) ([]document.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readIndex()
}

// Load fetches the full document for an indexed graph.
func (s *FileStore) Load(ctx context.Context, id string) (*document.GraphDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	indexed := false
	for _, e := range entries {
		if e.ID == id {
			indexed = true
			break
		}
	}
	if !indexed {
		return nil, notFound(id)
	}

	d, err := document.ReadFile(s.graphPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(id)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "read graph %s", id)
	}
	return d, nil
}

// Save writes the document file, then updates the index. A crash between the
// two leaves an unindexed file, which reads as deleted; the reverse order
// could index a graph that does not exist.
func (s *FileStore) Save(ctx context.Context, d *document.GraphDocument, entry document.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := document.WriteFile(d, s.graphPath(d.ID)); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "write graph %s", d.ID)
	}

	entries, err := s.readIndex()
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return s.writeIndex(entries)
}

// Delete removes the index entry. The graph file stays on disk.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readIndex()
	if err != nil {
		return err
	}
	kept := entries[:0]
	found := false
	for _, e := range entries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return notFound(id)
	}
	return s.writeIndex(kept)
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
