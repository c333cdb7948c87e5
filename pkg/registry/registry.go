// Package registry is the world-level catalog of graph documents: a
// lightweight always-loaded index plus lazily fetched full documents, with
// three-tier access control in front and the entity-deletion hook behind.
package registry

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
	apperrors "github.com/gioppoluca/foundry-graph-sub000/pkg/errors"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
)

// Registry mediates every read and write of graph documents. Documents are
// migrated on load, so callers always see the current schema; revisions bump
// on every successful save.
type Registry struct {
	store    Store
	types    *document.TypeRegistry
	variants *renderer.Registry
	admins   map[string]bool
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithAdmins marks principals whose access bypasses per-document permissions.
func WithAdmins(principals ...string) Option {
	return func(r *Registry) {
		for _, p := range principals {
			r.admins[p] = true
		}
	}
}

// withClock overrides the timestamp source in tests.
func withClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates a registry over the given store, graph-type catalog, and
// variant registry.
func New(store Store, types *document.TypeRegistry, variants *renderer.Registry, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		types:    types,
		variants: variants,
		admins:   map[string]bool{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// =============================================================================
// Access control
// =============================================================================

// Effective returns the principal's level on the document, with the admin
// override applied.
func (r *Registry) Effective(principal string, perms document.PermissionMap) document.Level {
	if r.admins[principal] {
		return document.LevelOwner
	}
	return perms.Effective(principal)
}

// CanView reports whether the principal sees the graph in listings
// (limited or better).
func (r *Registry) CanView(principal string, perms document.PermissionMap) bool {
	return r.Effective(principal, perms) >= document.LevelLimited
}

// CanOpen reports whether the principal may open the full document
// (observer or better).
func (r *Registry) CanOpen(principal string, perms document.PermissionMap) bool {
	return r.Effective(principal, perms) >= document.LevelObserver
}

// CanEdit reports whether the principal may modify or delete the graph
// (owner only).
func (r *Registry) CanEdit(principal string, perms document.PermissionMap) bool {
	return r.Effective(principal, perms) >= document.LevelOwner
}

func forbidden(principal, id string) error {
	return apperrors.New(apperrors.ErrCodeForbidden, "principal %q has no access to graph %q", principal, id)
}

// =============================================================================
// Graph operations
// =============================================================================

// GraphTypes returns the graph-type catalog.
func (r *Registry) GraphTypes() []*document.GraphType {
	return r.types.All()
}

// Variant constructs the variant handling the document's renderer id.
func (r *Registry) Variant(d *document.GraphDocument) (renderer.Variant, error) {
	v, err := r.variants.New(d.RendererID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRenderer, err, "graph %s", d.ID)
	}
	return v, nil
}

// entry fetches a single index entry.
func (r *Registry) entry(ctx context.Context, id string) (document.Summary, error) {
	entries, err := r.store.List(ctx)
	if err != nil {
		return document.Summary{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return document.Summary{}, notFound(id)
}

// GetAllGraphs returns the index entries the principal may see.
func (r *Registry) GetAllGraphs(ctx context.Context, principal string) ([]document.Summary, error) {
	entries, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]document.Summary, 0, len(entries))
	for _, e := range entries {
		if r.CanView(principal, e.Perms) {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// GetGraph loads, migrates, and returns the full document. Requires observer
// access.
func (r *Registry) GetGraph(ctx context.Context, principal, id string) (*document.GraphDocument, error) {
	entry, err := r.entry(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.CanOpen(principal, entry.Perms) {
		return nil, forbidden(principal, id)
	}

	d, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return document.Migrate(d, r.types), nil
}

// GetAllGraphsFull loads every document the principal may open, migrated.
// Graphs the principal can merely see in listings are skipped, not errors.
func (r *Registry) GetAllGraphsFull(ctx context.Context, principal string) ([]*document.GraphDocument, error) {
	entries, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var docs []*document.GraphDocument
	for _, e := range entries {
		if !r.CanOpen(principal, e.Perms) {
			continue
		}
		d, err := r.GetGraph(ctx, principal, e.ID)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// UpsertGraph persists the document. Creating requires nothing beyond a
// valid document; updating requires owner access on the stored entry, not
// the incoming one, so a client cannot grant itself access by sending edited
// permissions. The returned summary carries the bumped revision.
func (r *Registry) UpsertGraph(ctx context.Context, principal string, d *document.GraphDocument) (document.Summary, error) {
	if err := apperrors.ValidateDocumentID(d.ID); err != nil {
		return document.Summary{}, err
	}
	if _, err := r.variants.New(d.RendererID); err != nil {
		return document.Summary{}, apperrors.Wrap(apperrors.ErrCodeInvalidRenderer, err, "upsert graph %s", d.ID)
	}
	document.Migrate(d, r.types)

	now := r.now()
	entry := document.Summarize(d)

	prev, err := r.entry(ctx, d.ID)
	switch {
	case err == nil:
		if !r.CanEdit(principal, prev.Perms) {
			return document.Summary{}, forbidden(principal, d.ID)
		}
		entry.Revision = prev.Revision + 1
		entry.CreatedAt = prev.CreatedAt
	case apperrors.GetCode(err) == apperrors.ErrCodeGraphNotFound:
		entry.Revision = 1
		entry.CreatedAt = now
	default:
		return document.Summary{}, err
	}
	entry.UpdatedAt = now
	entry.File = d.ID + ".json"

	if err := r.store.Save(ctx, d, entry); err != nil {
		return document.Summary{}, err
	}

	log.FromContext(ctx).Debug("graph saved", "graph", d.ID, "revision", entry.Revision)
	return entry, nil
}

// DeleteGraph removes the graph from the index. Owner access required. The
// document blob stays behind.
func (r *Registry) DeleteGraph(ctx context.Context, principal, id string) error {
	entry, err := r.entry(ctx, id)
	if err != nil {
		return err
	}
	if !r.CanEdit(principal, entry.Perms) {
		return forbidden(principal, id)
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	log.FromContext(ctx).Info("graph deleted", "graph", id, "by", principal)
	return nil
}

// =============================================================================
// Entity-deletion hook
// =============================================================================

// AffectedBy returns the ids of every graph referencing the entity. The scan
// asks each document's own variant, so each payload shape is interrogated
// correctly.
func (r *Registry) AffectedBy(ctx context.Context, ref entity.Ref) ([]string, error) {
	entries, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var affected []string
	for _, e := range entries {
		d, err := r.store.Load(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		v, err := r.variants.New(d.RendererID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRenderer, err, "scan graph %s", e.ID)
		}
		if v.HasEntity(d, ref) {
			affected = append(affected, e.ID)
		}
	}
	return affected, nil
}

// CleanupEntity removes every node referencing the deleted entity from every
// graph, persisting each cleaned document with a revision bump. Returns the
// ids of the graphs cleaned so far. A persistence failure aborts and
// propagates: partial cleanup must never be reported as success.
func (r *Registry) CleanupEntity(ctx context.Context, ref entity.Ref) ([]string, error) {
	affected, err := r.AffectedBy(ctx, ref)
	if err != nil {
		return nil, err
	}

	cleaned := make([]string, 0, len(affected))
	for _, id := range affected {
		d, err := r.store.Load(ctx, id)
		if err != nil {
			return cleaned, err
		}
		v, err := r.variants.New(d.RendererID)
		if err != nil {
			return cleaned, apperrors.Wrap(apperrors.ErrCodeInvalidRenderer, err, "clean graph %s", id)
		}

		out, err := v.RemoveEntity(d, ref)
		if err != nil {
			return cleaned, apperrors.Wrap(apperrors.ErrCodeInternal, err, "clean graph %s", id)
		}

		prev, err := r.entry(ctx, id)
		if err != nil {
			return cleaned, err
		}
		entry := document.Summarize(out)
		entry.Revision = prev.Revision + 1
		entry.CreatedAt = prev.CreatedAt
		entry.UpdatedAt = r.now()
		entry.File = prev.File

		if err := r.store.Save(ctx, out, entry); err != nil {
			return cleaned, err
		}
		cleaned = append(cleaned, id)
		log.FromContext(ctx).Info("entity scrubbed from graph", "graph", id, "entity", ref.String())
	}
	return cleaned, nil
}
