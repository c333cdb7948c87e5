package board

import (
	"errors"
	"testing"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/network"
)

func newTestDoc(t *testing.T) *document.GraphDocument {
	t.Helper()
	types := document.BuiltinTypes()
	gt, ok := types.Lookup("investigation")
	if !ok {
		t.Fatal("missing investigation graph type")
	}
	d, err := document.NewDocument(gt, document.RendererBoard, "case-1", "gm")
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return d
}

func TestPlaceNodeOccupancy(t *testing.T) {
	v := New()
	d := newTestDoc(t)

	if err := v.PlaceNode(d, renderer.NodeSpec{Label: "suspect"}, 2, 3); err != nil {
		t.Fatalf("PlaceNode: %v", err)
	}
	if err := v.PlaceNode(d, renderer.NodeSpec{Label: "witness"}, 2, 3); !errors.Is(err, ErrSlotOccupied) {
		t.Errorf("second placement = %v, want ErrSlotOccupied", err)
	}
	if err := v.PlaceNode(d, renderer.NodeSpec{Label: "witness"}, 2, 4); err != nil {
		t.Errorf("adjacent slot: %v", err)
	}

	p, err := DecodePayload(d)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if len(p.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(p.Nodes))
	}
}

func TestPlaceNodeOutOfRange(t *testing.T) {
	v := New()
	d := newTestDoc(t)

	for _, slot := range [][2]int{{-1, 0}, {0, -1}, {DefaultRows, 0}, {0, DefaultCols}} {
		if err := v.PlaceNode(d, renderer.NodeSpec{}, slot[0], slot[1]); !errors.Is(err, ErrSlotOutOfRange) {
			t.Errorf("slot %v = %v, want ErrSlotOutOfRange", slot, err)
		}
	}
}

func TestAddNodeSnapsToSlot(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	d.Width, d.Height = 1200, 800 // 100x100 cells on the default grid

	if err := v.AddNode(d, renderer.NodeSpec{Label: "pin", X: 350, Y: 150}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	p, _ := DecodePayload(d)
	if p.Nodes[0].Row != 1 || p.Nodes[0].Col != 3 {
		t.Errorf("slot = (%d,%d), want (1,3)", p.Nodes[0].Row, p.Nodes[0].Col)
	}
}

func TestAddNodeOnFreshDocument(t *testing.T) {
	v := New()
	d := newTestDoc(t) // NewDocument leaves Width and Height at zero

	if err := v.AddNode(d, renderer.NodeSpec{Label: "pin", X: 100, Y: 100}); err != nil {
		t.Fatalf("AddNode on zero-size document: %v", err)
	}
	p, _ := DecodePayload(d)
	if p.Nodes[0].Row != 1 || p.Nodes[0].Col != 1 {
		t.Errorf("slot = (%d,%d), want (1,1) from the default canvas", p.Nodes[0].Row, p.Nodes[0].Col)
	}
}

func TestMoveNode(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	if err := v.PlaceNode(d, renderer.NodeSpec{Label: "a"}, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := v.PlaceNode(d, renderer.NodeSpec{Label: "b"}, 0, 1); err != nil {
		t.Fatal(err)
	}
	p, _ := DecodePayload(d)
	a, b := p.Nodes[0].ID, p.Nodes[1].ID

	if err := v.MoveNode(d, a, 0, 1); !errors.Is(err, ErrSlotOccupied) {
		t.Errorf("move onto %q = %v, want ErrSlotOccupied", b, err)
	}
	// Moving onto its own slot is a no-op, not a collision.
	if err := v.MoveNode(d, a, 0, 0); err != nil {
		t.Errorf("move in place: %v", err)
	}
	if err := v.MoveNode(d, a, 5, 5); err != nil {
		t.Errorf("move to free slot: %v", err)
	}
}

func TestRemoveNodeCascade(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	for i := 0; i < 3; i++ {
		if err := v.PlaceNode(d, renderer.NodeSpec{}, 0, i); err != nil {
			t.Fatal(err)
		}
	}
	p, _ := DecodePayload(d)
	a, b, c := p.Nodes[0].ID, p.Nodes[1].ID, p.Nodes[2].ID

	kind := document.RelationKind{ID: "suspects", Label: "suspects"}
	if err := v.CreateLink(d, a, b, kind); err != nil {
		t.Fatal(err)
	}
	if err := v.CreateLink(d, b, c, kind); err != nil {
		t.Fatal(err)
	}
	if err := v.CreateLink(d, b, a, kind); !errors.Is(err, network.ErrDuplicateLink) {
		t.Errorf("reverse duplicate = %v, want ErrDuplicateLink", err)
	}

	if err := v.RemoveNode(d, b); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	p, _ = DecodePayload(d)
	if len(p.Nodes) != 2 || len(p.Links) != 0 {
		t.Errorf("after cascade: %d nodes, %d links, want 2/0", len(p.Nodes), len(p.Links))
	}
}
