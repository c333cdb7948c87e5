package document

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// GraphType is a template for new documents: a default relation vocabulary,
// themes, allowed entity kinds, and a default renderer. Graph types evolve
// over time; Version lets migration sync older documents with newly
// introduced defaults.
type GraphType struct {
	ID              string         `json:"id" bson:"id"`
	Label           string         `json:"label" bson:"label"`
	Version         int            `json:"version" bson:"version"`
	DefaultRenderer string         `json:"default_renderer" bson:"default_renderer"`
	Relations       []RelationKind `json:"relations" bson:"relations"`
	Themes          []string       `json:"themes,omitempty" bson:"themes,omitempty"`
	AllowedEntities []string       `json:"allowed_entities,omitempty" bson:"allowed_entities,omitempty"`
	Background      *Background    `json:"background,omitempty" bson:"background,omitempty"`
}

// FirstTheme returns the first theme entry, or "" if the type has none.
func (t *GraphType) FirstTheme() string {
	if len(t.Themes) == 0 {
		return ""
	}
	return t.Themes[0]
}

// TypeRegistry holds the known graph types, keyed by id.
type TypeRegistry struct {
	types map[string]*GraphType
	order []string
}

// NewTypeRegistry creates a registry containing the given types.
func NewTypeRegistry(types ...*GraphType) *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]*GraphType, len(types))}
	for _, t := range types {
		r.types[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	return r
}

// Lookup returns the graph type with the given id, or false if unknown.
func (r *TypeRegistry) Lookup(id string) (*GraphType, bool) {
	t, ok := r.types[id]
	return t, ok
}

// All returns the registered types in registration order.
func (r *TypeRegistry) All() []*GraphType {
	out := make([]*GraphType, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.types[id])
	}
	return out
}

// BuiltinTypes returns the graph types shipped with the module.
func BuiltinTypes() *TypeRegistry {
	return NewTypeRegistry(
		&GraphType{
			ID:              "generic",
			Label:           "Generic Relations",
			Version:         2,
			DefaultRenderer: RendererNetwork,
			Themes:          []string{"parchment", "dark"},
			Relations: []RelationKind{
				{ID: "friend", Label: "Friend of", Color: "#2e7d32", Style: LineSolid, StrokeWidth: 2},
				{ID: "enemy", Label: "Enemy of", Color: "#c62828", Style: LineSolid, StrokeWidth: 2},
				{ID: "knows", Label: "Knows", Color: "#616161", Style: LineDashed, StrokeWidth: 1, NoArrow: true},
			},
		},
		&GraphType{
			ID:              "family",
			Label:           "Family Tree",
			Version:         1,
			DefaultRenderer: RendererFamilyTree,
			AllowedEntities: []string{"actor"},
			Relations: []RelationKind{
				{ID: "parent", Label: "Parent of", Color: "#1565c0", Style: LineSolid, StrokeWidth: 2},
				{ID: "spouse", Label: "Spouse of", Color: "#6a1b9a", Style: LineSolid, StrokeWidth: 2, NoArrow: true},
			},
		},
		&GraphType{
			ID:              "investigation",
			Label:           "Investigation Board",
			Version:         3,
			DefaultRenderer: RendererBoard,
			Themes:          []string{"corkboard"},
			Relations: []RelationKind{
				{ID: "suspects", Label: "Suspects", Color: "#c62828", Style: LineSolid, StrokeWidth: 3},
				{ID: "evidence", Label: "Evidence for", Color: "#ef6c00", Style: LineDotted, StrokeWidth: 2},
				{ID: "alibi", Label: "Alibi for", Color: "#2e7d32", Style: LineDashed, StrokeWidth: 2},
			},
		},
		&GraphType{
			ID:              "campaign",
			Label:           "Campaign Timeline",
			Version:         1,
			DefaultRenderer: RendererLane,
			AllowedEntities: []string{"actor", "place", "document"},
			Relations: []RelationKind{
				{ID: "causes", Label: "Causes", Color: "#37474f", Style: LineSolid, StrokeWidth: 2},
				{ID: "follows", Label: "Follows", Color: "#90a4ae", Style: LineDashed, StrokeWidth: 1},
			},
		},
	)
}

// NewDocument builds a fresh document from a graph-type template.
//
// The template's default relations, background, theme, and allowed entities
// are copied; the creator is seeded with owner-level access; SchemaVersion is
// set to the current schema so new documents never migrate.
func NewDocument(t *GraphType, rendererID, name, creator string) (*GraphDocument, error) {
	if t == nil {
		return nil, fmt.Errorf("graph type is required")
	}
	if rendererID == "" {
		rendererID = t.DefaultRenderer
	}

	d := &GraphDocument{
		ID:               uuid.NewString(),
		Name:             name,
		GraphTypeID:      t.ID,
		RendererID:       rendererID,
		SchemaVersion:    CurrentSchemaVersion,
		GraphTypeVersion: t.Version,
		Relations:        slices.Clone(t.Relations),
		Permissions:      NewPermissionMap(creator),
		Theme:            t.FirstTheme(),
		AllowedEntities:  slices.Clone(t.AllowedEntities),
	}
	if t.Background != nil {
		bg := *t.Background
		d.Background = &bg
	}
	return d, nil
}
