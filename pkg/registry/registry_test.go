package registry

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
	apperrors "github.com/gioppoluca/foundry-graph-sub000/pkg/errors"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/network"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/variants"
)

func newRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	opts = append(opts, withClock(func() time.Time {
		return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	}))
	return New(NewMemoryStore(), document.BuiltinTypes(), variants.All(), opts...)
}

func newGraph(t *testing.T, r *Registry, name, creator string) *document.GraphDocument {
	t.Helper()
	gt, ok := document.BuiltinTypes().Lookup("generic")
	if !ok {
		t.Fatal("missing generic graph type")
	}
	d, err := document.NewDocument(gt, document.RendererNetwork, name, creator)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return d
}

func TestUpsertCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	d := newGraph(t, r, "plots", "gm")

	entry, err := r.UpsertGraph(ctx, "gm", d)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.Revision != 1 {
		t.Errorf("create revision = %d, want 1", entry.Revision)
	}
	if entry.CreatedAt.IsZero() || entry.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}

	d.Name = "plots-v2"
	entry, err = r.UpsertGraph(ctx, "gm", d)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if entry.Revision != 2 {
		t.Errorf("update revision = %d, want 2", entry.Revision)
	}

	got, err := r.GetGraph(ctx, "gm", d.ID)
	if err != nil {
		t.Fatalf("GetGraph: %v", err)
	}
	if got.Name != "plots-v2" {
		t.Errorf("name = %q, want plots-v2", got.Name)
	}
}

func TestUpsertRejectsNonOwner(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	d := newGraph(t, r, "plots", "gm")
	if _, err := r.UpsertGraph(ctx, "gm", d); err != nil {
		t.Fatal(err)
	}

	// A non-owner cannot save, even with a payload that grants themselves
	// owner: the stored permissions decide, not the incoming ones.
	stolen := d.Clone()
	stolen.Permissions.Grant("player1", document.LevelOwner)
	_, err := r.UpsertGraph(ctx, "player1", stolen)
	if apperrors.GetCode(err) != apperrors.ErrCodeForbidden {
		t.Errorf("non-owner upsert code = %v, want ErrCodeForbidden", apperrors.GetCode(err))
	}

	got, err := r.GetGraph(ctx, "gm", d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Permissions.Effective("player1") != document.LevelNone {
		t.Error("rejected upsert must not change stored permissions")
	}
}

func TestAccessTiers(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	d := newGraph(t, r, "plots", "gm")
	d.Permissions.Grant("lurker", document.LevelLimited)
	d.Permissions.Grant("watcher", document.LevelObserver)
	if _, err := r.UpsertGraph(ctx, "gm", d); err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		principal         string
		view, open, edit  bool
	}{
		{"gm", true, true, true},
		{"watcher", true, true, false},
		{"lurker", true, false, false},
		{"stranger", false, false, false},
	} {
		entries, err := r.GetAllGraphs(ctx, tt.principal)
		if err != nil {
			t.Fatal(err)
		}
		if got := len(entries) == 1; got != tt.view {
			t.Errorf("%s: listed = %v, want %v", tt.principal, got, tt.view)
		}

		_, err = r.GetGraph(ctx, tt.principal, d.ID)
		if got := err == nil; got != tt.open {
			t.Errorf("%s: open = %v (%v), want %v", tt.principal, got, err, tt.open)
		}

		err = r.DeleteGraph(ctx, tt.principal, d.ID)
		if got := err == nil; got != tt.edit {
			t.Errorf("%s: delete = %v (%v), want %v", tt.principal, got, err, tt.edit)
		}
		if err == nil {
			// Put it back for the remaining principals.
			if _, err := r.UpsertGraph(ctx, "gm", d); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestAdminOverride(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, WithAdmins("admin"))
	d := newGraph(t, r, "plots", "gm")
	if _, err := r.UpsertGraph(ctx, "gm", d); err != nil {
		t.Fatal(err)
	}

	if _, err := r.GetGraph(ctx, "admin", d.ID); err != nil {
		t.Errorf("admin open: %v", err)
	}
	if err := r.DeleteGraph(ctx, "admin", d.ID); err != nil {
		t.Errorf("admin delete: %v", err)
	}
}

func TestDeleteIsSoft(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := New(store, document.BuiltinTypes(), variants.All())
	d := newGraph(t, r, "plots", "gm")
	if _, err := r.UpsertGraph(ctx, "gm", d); err != nil {
		t.Fatal(err)
	}

	if err := r.DeleteGraph(ctx, "gm", d.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := r.GetGraph(ctx, "gm", d.ID); apperrors.GetCode(err) != apperrors.ErrCodeGraphNotFound {
		t.Errorf("GetGraph after delete code = %v, want ErrCodeGraphNotFound", apperrors.GetCode(err))
	}
	entries, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("index entries = %d, want 0", len(entries))
	}
	// The blob survives the index removal.
	if _, ok := store.docs[d.ID]; !ok {
		t.Error("delete must keep the document blob")
	}
}

func TestMigrateOnLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := New(store, document.BuiltinTypes(), variants.All())

	// A pre-theme document written by an older build.
	d := newGraph(t, r, "legacy", "gm")
	d.SchemaVersion = 0
	d.Theme = ""
	if err := store.Save(ctx, d, document.Summarize(d)); err != nil {
		t.Fatal(err)
	}

	got, err := r.GetGraph(ctx, "gm", d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SchemaVersion != document.CurrentSchemaVersion {
		t.Errorf("schema version = %d, want %d", got.SchemaVersion, document.CurrentSchemaVersion)
	}
	if got.Theme == "" {
		t.Error("migration must backfill the theme")
	}
}

func TestCleanupEntity(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	ref := entity.Ref{Kind: entity.KindActor, Key: "villain"}
	v := network.New()

	// Two graphs referencing the entity, one without.
	var withRef []string
	for i, name := range []string{"a", "b", "c"} {
		d := newGraph(t, r, name, "gm")
		spec := renderer.NodeSpec{Label: name + "-node"}
		if i < 2 {
			spec.Ref = ref
			withRef = append(withRef, d.ID)
		}
		if err := v.AddNode(d, spec); err != nil {
			t.Fatal(err)
		}
		if _, err := r.UpsertGraph(ctx, "gm", d); err != nil {
			t.Fatal(err)
		}
	}

	affected, err := r.AffectedBy(ctx, ref)
	if err != nil {
		t.Fatalf("AffectedBy: %v", err)
	}
	if len(affected) != 2 {
		t.Fatalf("affected = %v, want the two referencing graphs", affected)
	}

	cleaned, err := r.CleanupEntity(ctx, ref)
	if err != nil {
		t.Fatalf("CleanupEntity: %v", err)
	}
	if len(cleaned) != 2 {
		t.Errorf("cleaned = %v, want the two referencing graphs", cleaned)
	}
	for _, id := range cleaned {
		if !slices.Contains(withRef, id) {
			t.Errorf("cleaned id %q was never affected", id)
		}
	}

	for _, id := range withRef {
		d, err := r.GetGraph(ctx, "gm", id)
		if err != nil {
			t.Fatal(err)
		}
		if v.HasEntity(d, ref) {
			t.Errorf("graph %s still references the entity", id)
		}
	}
	again, err := r.AffectedBy(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("affected after cleanup = %v, want none", again)
	}
}

func TestCleanupBumpsRevision(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	ref := entity.Ref{Kind: entity.KindActor, Key: "ghost"}

	d := newGraph(t, r, "haunted", "gm")
	if err := network.New().AddNode(d, renderer.NodeSpec{Ref: ref, Label: "ghost"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpsertGraph(ctx, "gm", d); err != nil {
		t.Fatal(err)
	}

	if _, err := r.CleanupEntity(ctx, ref); err != nil {
		t.Fatal(err)
	}

	entries, err := r.GetAllGraphs(ctx, "gm")
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Revision != 2 {
		t.Errorf("revision after cleanup = %d, want 2", entries[0].Revision)
	}
}

func TestUpsertRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	d := newGraph(t, r, "plots", "gm")
	d.ID = "../escape"
	if _, err := r.UpsertGraph(ctx, "gm", d); apperrors.GetCode(err) != apperrors.ErrCodeInvalidDocument {
		t.Errorf("traversal id code = %v, want ErrCodeInvalidDocument", apperrors.GetCode(err))
	}

	d = newGraph(t, r, "plots", "gm")
	d.RendererID = "hologram"
	if _, err := r.UpsertGraph(ctx, "gm", d); apperrors.GetCode(err) != apperrors.ErrCodeInvalidRenderer {
		t.Errorf("unknown renderer code = %v, want ErrCodeInvalidRenderer", apperrors.GetCode(err))
	}
}
