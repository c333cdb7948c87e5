// Package renderer defines the capability contract every visual paradigm
// implements, plus the shared pieces usable by any of them: the per-edit
// session state, the drawing surface abstraction, the variant registry, and
// the radial context-menu helper.
//
// # Architecture
//
// A [document.GraphDocument] carries a renderer id (discriminated union tag).
// The registry resolves that tag to one of a closed set of [Variant]
// implementations:
//
//	network     free node/link graph with a linking-mode state machine
//	familytree  person/union genealogy with cycle-safe reparenting
//	board       slot-constrained placement
//	geo         georeferenced markers
//	lane        time-indexed lanes
//
// Variants own the document's Data payload while it is being edited. The
// serializable form (bare ids, plain coordinates) and the in-memory working
// form (resolved references, live layout state) are deliberately separate;
// Render produces the working form and GraphData reconciles it back.
package renderer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
)

// ErrUnknownRenderer is returned when a document's renderer id resolves to no
// registered variant. This is a programming or data-corruption error and
// callers must fail loudly rather than degrade.
var ErrUnknownRenderer = errors.New("unknown renderer id")

// NodeSpec describes a node to add, typically from the host's drag-and-drop
// contract: an entity reference plus a drop position in the variant's local
// coordinate space. Ref may be zero for freehand nodes.
type NodeSpec struct {
	Ref   entity.Ref
	Kind  string // entity category, validated against the document allow-list
	Label string
	Image string
	X, Y  float64
}

// Variant is the abstract capability set every visual paradigm implements.
//
// Render and Teardown bracket a variant's resource lifetime: Teardown must be
// called before re-rendering on a previously rendered surface, must be safe
// to call repeatedly, and must leave the variant ready to Render from
// scratch.
type Variant interface {
	// ID returns the renderer discriminator this variant handles.
	ID() string

	// InitializeGraphData returns the payload shape's empty value, used when
	// constructing a brand-new document.
	InitializeGraphData() json.RawMessage

	// Render (re)draws the document's current in-memory state onto a surface.
	// It is idempotent: repeated calls with unchanged data produce a visually
	// stable result, and listeners/resources are fully reattached on each
	// call.
	Render(s Surface, d *document.GraphDocument) error

	// GraphData extracts a serializable snapshot of the current editing
	// state, reconciling transient fields back to the stable form.
	GraphData(d *document.GraphDocument) (json.RawMessage, error)

	// Teardown releases everything acquired since the last Render.
	Teardown()

	// HasEntity reports whether any node in the document references ref.
	HasEntity(d *document.GraphDocument, ref entity.Ref) bool

	// RemoveEntity returns a cleaned copy of the document with every node
	// referencing ref removed (cascading incident links). The input document
	// is not mutated.
	RemoveEntity(d *document.GraphDocument, ref entity.Ref) (*document.GraphDocument, error)

	// AddNode validates spec against the document's allow-list and appends a
	// node to the payload.
	AddNode(d *document.GraphDocument, spec NodeSpec) error
}

// Registry resolves renderer ids to variant constructors. The set is closed:
// variants are registered once at startup (see pkg/renderer/variants) and
// lookups of unknown ids fail with ErrUnknownRenderer.
type Registry struct {
	ctors map[string]func() Variant
	order []string
}

// NewRegistry creates an empty variant registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]func() Variant)}
}

// Register adds a variant constructor. Registering the same id twice panics:
// that is a wiring bug, not a runtime condition.
func (r *Registry) Register(id string, ctor func() Variant) {
	if _, dup := r.ctors[id]; dup {
		panic(fmt.Sprintf("renderer: duplicate variant registration %q", id))
	}
	r.ctors[id] = ctor
	r.order = append(r.order, id)
}

// New constructs a fresh variant instance for the given renderer id.
func (r *Registry) New(id string) (Variant, error) {
	ctor, ok := r.ctors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRenderer, id)
	}
	return ctor(), nil
}

// IDs returns the registered renderer ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// ResolveLabel resolves a node spec's display fields through the entity
// resolver. Shared by all variants' AddNode paths: a spec with an entity ref
// but no label borrows the entity's name and image. Resolution failure aborts
// the add (no partial mutation).
func ResolveLabel(ctx context.Context, res entity.Resolver, spec *NodeSpec) error {
	if spec.Ref.IsZero() || res == nil {
		return nil
	}
	resolved, err := res.Resolve(ctx, spec.Ref)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", spec.Ref, err)
	}
	if spec.Label == "" {
		spec.Label = resolved.Name
	}
	if spec.Image == "" {
		spec.Image = resolved.Image
	}
	return nil
}
