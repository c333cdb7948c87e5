package document

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMigrate(t *testing.T) {
	types := BuiltinTypes()

	tests := []struct {
		name  string
		doc   *GraphDocument
		check func(t *testing.T, d *GraphDocument)
	}{
		{
			name: "V0BackfillsTheme",
			doc:  &GraphDocument{ID: "g1", GraphTypeID: "generic", RendererID: RendererNetwork, SchemaVersion: 0},
			check: func(t *testing.T, d *GraphDocument) {
				if d.SchemaVersion != CurrentSchemaVersion {
					t.Errorf("SchemaVersion = %d, want %d", d.SchemaVersion, CurrentSchemaVersion)
				}
				if d.Theme != "parchment" {
					t.Errorf("Theme = %q, want first theme of generic type", d.Theme)
				}
			},
		},
		{
			name: "V0UnknownTypeKeepsEmptyTheme",
			doc:  &GraphDocument{ID: "g2", GraphTypeID: "nope", RendererID: RendererNetwork, SchemaVersion: 0},
			check: func(t *testing.T, d *GraphDocument) {
				if d.Theme != "" {
					t.Errorf("Theme = %q, want empty", d.Theme)
				}
				if d.SchemaVersion != CurrentSchemaVersion {
					t.Errorf("SchemaVersion = %d, want %d", d.SchemaVersion, CurrentSchemaVersion)
				}
			},
		},
		{
			name: "FutureVersionLeftAlone",
			doc:  &GraphDocument{ID: "g3", GraphTypeID: "generic", RendererID: RendererNetwork, SchemaVersion: 99, Theme: "custom"},
			check: func(t *testing.T, d *GraphDocument) {
				if d.SchemaVersion != 99 {
					t.Errorf("SchemaVersion = %d, future versions must be capped not reduced", d.SchemaVersion)
				}
				if d.Theme != "custom" {
					t.Errorf("Theme = %q, must not be overwritten", d.Theme)
				}
			},
		},
		{
			name: "GraphTypeSyncBackfillsAllowedEntities",
			doc: &GraphDocument{
				ID: "g4", GraphTypeID: "family", RendererID: RendererFamilyTree,
				SchemaVersion: CurrentSchemaVersion, GraphTypeVersion: 0,
			},
			check: func(t *testing.T, d *GraphDocument) {
				if d.GraphTypeVersion != 1 {
					t.Errorf("GraphTypeVersion = %d, want 1", d.GraphTypeVersion)
				}
				if !reflect.DeepEqual(d.AllowedEntities, []string{"actor"}) {
					t.Errorf("AllowedEntities = %v, want [actor]", d.AllowedEntities)
				}
			},
		},
		{
			name: "GraphTypeSyncKeepsExplicitAllowList",
			doc: &GraphDocument{
				ID: "g5", GraphTypeID: "family", RendererID: RendererFamilyTree,
				SchemaVersion: CurrentSchemaVersion, GraphTypeVersion: 0,
				AllowedEntities: []string{"actor", "place"},
			},
			check: func(t *testing.T, d *GraphDocument) {
				if !reflect.DeepEqual(d.AllowedEntities, []string{"actor", "place"}) {
					t.Errorf("AllowedEntities = %v, explicit list must survive sync", d.AllowedEntities)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Migrate(tt.doc, types)
			tt.check(t, got)
		})
	}
}

func TestMigrateNetworkPayload(t *testing.T) {
	types := BuiltinTypes()

	doc := &GraphDocument{
		ID:            "net1",
		GraphTypeID:   "generic",
		RendererID:    RendererNetwork,
		SchemaVersion: CurrentSchemaVersion,
		Relations: []RelationKind{
			{ID: "knows", Label: "Knows", NoArrow: true},
			{ID: "enemy", Label: "Enemy of"},
		},
		Data: json.RawMessage(`{
			"nodes": [{"id":"a"},{"id":"b"}],
			"links": [
				{"source":"a","target":"b","relation_kind_id":"knows","custom":"kept"},
				{"id":"l2","source":"b","target":"a","relation_kind_id":"enemy"}
			]
		}`),
	}

	Migrate(doc, types)

	var payload struct {
		Links []map[string]any `json:"links"`
	}
	if err := json.Unmarshal(doc.Data, &payload); err != nil {
		t.Fatalf("payload no longer decodes: %v", err)
	}
	if len(payload.Links) != 2 {
		t.Fatalf("links = %d, want 2", len(payload.Links))
	}

	first := payload.Links[0]
	if id, _ := first["id"].(string); id == "" {
		t.Error("first link was not assigned an id")
	}
	if noArrow, _ := first["no_arrow"].(bool); !noArrow {
		t.Error("no_arrow not backfilled from relation kind")
	}
	if first["custom"] != "kept" {
		t.Error("unknown payload field was dropped")
	}

	second := payload.Links[1]
	if second["id"] != "l2" {
		t.Errorf("existing link id rewritten: %v", second["id"])
	}
	if _, present := second["no_arrow"]; present {
		t.Error("no_arrow backfilled for relation kind without the flag")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	types := BuiltinTypes()

	doc := &GraphDocument{
		ID:          "idem",
		GraphTypeID: "generic",
		RendererID:  RendererNetwork,
		Relations:   []RelationKind{{ID: "knows", NoArrow: true}},
		Data:        json.RawMessage(`{"nodes":[{"id":"a"}],"links":[{"source":"a","target":"a","relation_kind_id":"knows"}]}`),
	}

	once := Migrate(doc, types).Clone()
	twice := Migrate(doc, types)

	onceJSON, _ := Marshal(once)
	twiceJSON, _ := Marshal(twice)
	if string(onceJSON) != string(twiceJSON) {
		t.Errorf("migration is not idempotent:\nonce:  %s\ntwice: %s", onceJSON, twiceJSON)
	}
}
