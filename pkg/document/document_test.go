package document

import (
	"path/filepath"
	"testing"
)

func TestNewDocument(t *testing.T) {
	types := BuiltinTypes()
	generic, _ := types.Lookup("generic")

	d, err := NewDocument(generic, "", "Court Intrigue", "gm")
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}

	if d.ID == "" {
		t.Error("document id not assigned")
	}
	if d.RendererID != RendererNetwork {
		t.Errorf("RendererID = %q, want type default %q", d.RendererID, RendererNetwork)
	}
	if d.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", d.SchemaVersion, CurrentSchemaVersion)
	}
	if len(d.Relations) != len(generic.Relations) {
		t.Errorf("relations = %d, want copy of template's %d", len(d.Relations), len(generic.Relations))
	}
	if d.Permissions.Effective("gm") != LevelOwner {
		t.Error("creator not seeded with owner access")
	}
	if d.Permissions.Effective("stranger") != LevelNone {
		t.Error("default permission should be none")
	}
	if d.Theme != "parchment" {
		t.Errorf("Theme = %q, want template's first theme", d.Theme)
	}

	// Template relations are copied, not shared.
	d.Relations[0].Label = "changed"
	if generic.Relations[0].Label == "changed" {
		t.Error("document mutation leaked into the graph type template")
	}
}

func TestNewDocumentNilType(t *testing.T) {
	if _, err := NewDocument(nil, RendererNetwork, "x", "gm"); err == nil {
		t.Fatal("expected error for nil graph type")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	types := BuiltinTypes()
	family, _ := types.Lookup("family")
	d, err := NewDocument(family, "", "Dynasty", "gm")
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	d.Description = "the royal line"
	d.Width, d.Height = 1200, 800
	d.Background = &Background{Image: "maps/castle.webp", Fit: "cover"}

	path := filepath.Join(t.TempDir(), "dynasty.json")
	if err := WriteFile(d, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if got.ID != d.ID || got.Name != d.Name || got.Description != d.Description {
		t.Errorf("identity fields did not round-trip: %+v", got)
	}
	if got.Background == nil || got.Background.Image != "maps/castle.webp" {
		t.Errorf("background did not round-trip: %+v", got.Background)
	}
	if got.Permissions.Effective("gm") != LevelOwner {
		t.Error("permissions did not round-trip")
	}
}

func TestClone(t *testing.T) {
	d := &GraphDocument{
		ID:              "orig",
		Relations:       []RelationKind{{ID: "r1", Label: "one"}},
		AllowedEntities: []string{"actor"},
		Permissions:     NewPermissionMap("gm"),
		Background:      &Background{Image: "bg.png"},
		Data:            []byte(`{"nodes":[]}`),
	}

	c := d.Clone()
	c.Relations[0].Label = "mutated"
	c.AllowedEntities[0] = "place"
	c.Permissions.Grant("player", LevelObserver)
	c.Background.Image = "other.png"
	c.Data[0] = 'X'

	if d.Relations[0].Label != "one" {
		t.Error("Clone shares relations slice")
	}
	if d.AllowedEntities[0] != "actor" {
		t.Error("Clone shares allowed entities slice")
	}
	if d.Permissions.Effective("player") != LevelNone {
		t.Error("Clone shares permission map")
	}
	if d.Background.Image != "bg.png" {
		t.Error("Clone shares background")
	}
	if d.Data[0] == 'X' {
		t.Error("Clone shares data payload")
	}
}

func TestPermissionLevels(t *testing.T) {
	if !(LevelNone < LevelLimited && LevelLimited < LevelObserver && LevelObserver < LevelOwner) {
		t.Fatal("levels must form the order none < limited < observer < owner")
	}

	tests := []struct {
		in   string
		want Level
	}{
		{"owner", LevelOwner},
		{"observer", LevelObserver},
		{"limited", LevelLimited},
		{"none", LevelNone},
		{"garbage", LevelNone},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	p := NewPermissionMap("gm")
	p.Default = LevelObserver
	p.Grant("lurker", LevelLimited)

	if p.Effective("gm") != LevelOwner {
		t.Error("explicit owner override lost")
	}
	if p.Effective("lurker") != LevelLimited {
		t.Error("explicit override should beat default")
	}
	if p.Effective("anyone") != LevelObserver {
		t.Error("default level not applied")
	}
}

func TestAllowsEntityKind(t *testing.T) {
	open := &GraphDocument{}
	if !open.AllowsEntityKind("actor") {
		t.Error("empty allow-list must accept everything")
	}

	restricted := &GraphDocument{AllowedEntities: []string{"actor", "place"}}
	if !restricted.AllowsEntityKind("place") {
		t.Error("listed kind rejected")
	}
	if restricted.AllowsEntityKind("item") {
		t.Error("unlisted kind accepted")
	}
}
