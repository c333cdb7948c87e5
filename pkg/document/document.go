package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"
)

// Renderer identifiers. Every GraphDocument carries exactly one of these in
// RendererID; it selects which variant owns the Data payload.
const (
	RendererNetwork    = "network"
	RendererFamilyTree = "familytree"
	RendererBoard      = "board"
	RendererGeo        = "geo"
	RendererLane       = "lane"
)

// GraphDocument is the persisted, versioned description of one relationship
// graph. It is the unit of storage, migration, and permission checks.
//
// The Data payload is opaque at this level - its internal shape is defined by
// the variant selected via RendererID (discriminated union). Use the variant's
// payload types to decode it.
type GraphDocument struct {
	ID          string `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	// GraphTypeID selects default styling and the relation vocabulary.
	GraphTypeID string `json:"graph_type_id" bson:"graph_type_id"`
	// RendererID selects which variant owns the Data payload.
	RendererID string `json:"renderer_id" bson:"renderer_id"`

	// SchemaVersion governs structural migrations and never decreases.
	SchemaVersion int `json:"schema_version" bson:"schema_version"`
	// GraphTypeVersion tracks drift from the graph type's evolving defaults.
	GraphTypeVersion int `json:"graph_type_version" bson:"graph_type_version"`

	// Relations is the controlled vocabulary for edges in this document.
	Relations []RelationKind `json:"relations" bson:"relations"`

	Permissions PermissionMap `json:"permissions" bson:"permissions"`

	Background *Background `json:"background,omitempty" bson:"background,omitempty"`
	Width      float64     `json:"width,omitempty" bson:"width,omitempty"`
	Height     float64     `json:"height,omitempty" bson:"height,omitempty"`

	// Theme and AllowedEntities are backfilled from the graph type by
	// migration when absent.
	Theme           string   `json:"theme,omitempty" bson:"theme,omitempty"`
	AllowedEntities []string `json:"allowed_entities,omitempty" bson:"allowed_entities,omitempty"`

	// Data is the renderer-owned payload. Its shape must match RendererID.
	Data json.RawMessage `json:"data,omitempty" bson:"data,omitempty"`
}

// RelationKind is a named, styled category of edge (e.g. "Enemy of").
// Links copy these display fields at creation time so they survive later
// edits to the vocabulary.
type RelationKind struct {
	ID          string  `json:"id" bson:"id"`
	Label       string  `json:"label" bson:"label"`
	Color       string  `json:"color,omitempty" bson:"color,omitempty"`
	Style       string  `json:"style,omitempty" bson:"style,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty" bson:"stroke_width,omitempty"`
	NoArrow     bool    `json:"no_arrow,omitempty" bson:"no_arrow,omitempty"`
}

// Line styles for relation kinds.
const (
	LineSolid  = "solid"
	LineDashed = "dashed"
	LineDotted = "dotted"
)

// Background describes an image drawn behind the graph.
type Background struct {
	Image  string  `json:"image" bson:"image"`
	Width  float64 `json:"width,omitempty" bson:"width,omitempty"`
	Height float64 `json:"height,omitempty" bson:"height,omitempty"`
	Fit    string  `json:"fit,omitempty" bson:"fit,omitempty"` // "contain", "cover", "stretch"
}

// Relation returns the relation kind with the given id, or false if the
// vocabulary does not contain it.
func (d *GraphDocument) Relation(id string) (RelationKind, bool) {
	for _, r := range d.Relations {
		if r.ID == id {
			return r, true
		}
	}
	return RelationKind{}, false
}

// AllowsEntityKind reports whether the drop allow-list accepts the given
// entity kind. An empty allow-list accepts everything.
func (d *GraphDocument) AllowsEntityKind(kind string) bool {
	if len(d.AllowedEntities) == 0 {
		return true
	}
	return slices.Contains(d.AllowedEntities, kind)
}

// Clone returns a deep copy of the document.
// Variants use this to satisfy the non-mutating RemoveEntity contract.
func (d *GraphDocument) Clone() *GraphDocument {
	out := *d
	out.Relations = slices.Clone(d.Relations)
	out.AllowedEntities = slices.Clone(d.AllowedEntities)
	out.Permissions = d.Permissions.Clone()
	if d.Background != nil {
		bg := *d.Background
		out.Background = &bg
	}
	out.Data = slices.Clone(d.Data)
	return &out
}

// Summary is the lightweight index entry kept in memory by the registry.
// One Summary per document, persisted together as a single small blob.
type Summary struct {
	ID         string        `json:"id" bson:"id"`
	Name       string        `json:"name" bson:"name"`
	GraphType  string        `json:"graph_type" bson:"graph_type"`
	RendererID string        `json:"renderer_id" bson:"renderer_id"`
	Width      float64       `json:"width,omitempty" bson:"width,omitempty"`
	Height     float64       `json:"height,omitempty" bson:"height,omitempty"`
	Perms      PermissionMap `json:"permissions" bson:"permissions"`

	// Revision increments on every successful save.
	Revision int `json:"revision" bson:"revision"`
	// File points at the storage slot holding the full document.
	File string `json:"file,omitempty" bson:"file,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Summarize builds an index entry from a full document.
// Revision, File, and timestamps are owned by the registry and left zero.
func Summarize(d *GraphDocument) Summary {
	return Summary{
		ID:         d.ID,
		Name:       d.Name,
		GraphType:  d.GraphTypeID,
		RendererID: d.RendererID,
		Width:      d.Width,
		Height:     d.Height,
		Perms:      d.Permissions.Clone(),
	}
}

// =============================================================================
// Serialization API
// =============================================================================

// Marshal converts a document to pretty-printed JSON bytes.
func Marshal(d *GraphDocument) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Unmarshal decodes JSON bytes into a document.
// No migration is applied - call Migrate before trusting the structure.
func Unmarshal(data []byte) (*GraphDocument, error) {
	var d GraphDocument
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &d, nil
}

// Write encodes a document as JSON to w.
func Write(d *GraphDocument, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// WriteFile writes a document to a JSON file.
// The file is created with 0644 permissions.
func WriteFile(d *GraphDocument, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(d, f)
}

// ReadFile reads a JSON file and returns the decoded document.
func ReadFile(path string) (*GraphDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
