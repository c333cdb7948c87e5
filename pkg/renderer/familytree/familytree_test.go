package familytree

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/network"
)

func newTestDoc(t *testing.T) *document.GraphDocument {
	t.Helper()
	types := document.BuiltinTypes()
	ft, ok := types.Lookup("family")
	if !ok {
		t.Fatal("missing family graph type")
	}
	d, err := document.NewDocument(ft, document.RendererFamilyTree, "dynasty", "gm")
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	d.Data = New().InitializeGraphData()
	return d
}

// seedTree places a start person and returns their id.
func seedTree(t *testing.T, v *Variant, d *document.GraphDocument, name string) string {
	t.Helper()
	if err := v.AddNode(d, renderer.NodeSpec{Label: name}); err != nil {
		t.Fatalf("AddNode(%s): %v", name, err)
	}
	p := decode(t, d)
	return p.Start
}

func decode(t *testing.T, d *document.GraphDocument) *Payload {
	t.Helper()
	p, err := DecodePayload(d)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	return p
}

func TestFirstPersonBecomesStart(t *testing.T) {
	v := New()
	d := newTestDoc(t)

	ada := seedTree(t, v, d, "Ada")

	p := decode(t, d)
	if p.Start != ada {
		t.Errorf("start = %q, want %q", p.Start, ada)
	}
	if p.Persons[ada].Name != "Ada" {
		t.Errorf("person name = %q, want Ada", p.Persons[ada].Name)
	}

	if err := v.AddNode(d, renderer.NodeSpec{Label: "Eve"}); !errors.Is(err, ErrTreeNotEmpty) {
		t.Errorf("second free-standing drop = %v, want ErrTreeNotEmpty", err)
	}
}

func TestAddNodeHonorsAllowList(t *testing.T) {
	v := New()
	d := newTestDoc(t) // "family" allows actor drops only

	err := v.AddNode(d, renderer.NodeSpec{Label: "Castle", Kind: "place"})
	if !errors.Is(err, network.ErrKindNotAllowed) {
		t.Errorf("place drop = %v, want ErrKindNotAllowed", err)
	}
	if err := v.AddNode(d, renderer.NodeSpec{Label: "Ada", Kind: "actor"}); err != nil {
		t.Fatalf("actor drop: %v", err)
	}

	p := decode(t, d)
	if _, err := v.addRelative(d, p.Start, ChildOf, renderer.NodeSpec{Label: "Keep", Kind: "place"}); !errors.Is(err, network.ErrKindNotAllowed) {
		t.Errorf("place relative = %v, want ErrKindNotAllowed", err)
	}
}

func TestAddChildSynthesizesUnion(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")

	bob, err := v.AddChild(d, ada, renderer.NodeSpec{Label: "Bob"})
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	p := decode(t, d)
	union := p.Persons[ada].OwnFamily
	if union == "" {
		t.Fatal("AddChild must synthesize the source's own family")
	}
	if _, ok := p.Unions[union]; !ok {
		t.Fatalf("union %q missing from unions map", union)
	}
	if got := p.Persons[bob].ParentFamily; got != union {
		t.Errorf("child parent family = %q, want %q", got, union)
	}
	if !p.hasLink(ada, union) || !p.hasLink(union, bob) {
		t.Errorf("links = %v, want ada→union and union→bob", p.Links)
	}

	// A second child reuses the union.
	carl, err := v.AddChild(d, ada, renderer.NodeSpec{Label: "Carl"})
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	p = decode(t, d)
	if len(p.Unions) != 1 {
		t.Errorf("unions = %d, want 1", len(p.Unions))
	}
	if !p.hasLink(union, carl) {
		t.Error("second child must hang off the same union")
	}
}

func TestAddParentSynthesizesBirthFamily(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")

	mom, err := v.AddParent(d, ada, renderer.NodeSpec{Label: "Mom"})
	if err != nil {
		t.Fatalf("AddParent: %v", err)
	}

	p := decode(t, d)
	union := p.Persons[ada].ParentFamily
	if union == "" {
		t.Fatal("AddParent must synthesize the source's birth family")
	}
	if got := p.Persons[mom].OwnFamily; got != union {
		t.Errorf("parent own family = %q, want %q", got, union)
	}
	if !p.hasLink(mom, union) || !p.hasLink(union, ada) {
		t.Errorf("links = %v, want mom→union and union→ada", p.Links)
	}
}

func TestAddSpouseHasNoBackEdge(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")

	eve, err := v.AddSpouse(d, ada, renderer.NodeSpec{Label: "Eve"})
	if err != nil {
		t.Fatalf("AddSpouse: %v", err)
	}

	p := decode(t, d)
	union := p.Persons[ada].OwnFamily
	if got := p.Persons[eve].OwnFamily; got != union {
		t.Errorf("spouse own family = %q, want %q", got, union)
	}
	if !p.hasLink(eve, union) {
		t.Error("spouse must link into the union")
	}
	// The asymmetry: the union must not link back to the spouse.
	if p.hasLink(union, eve) {
		t.Error("union must not produce a back-edge to a spouse")
	}

	// A child added afterwards belongs to both parents' union.
	kid, err := v.AddChild(d, ada, renderer.NodeSpec{Label: "Kid"})
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	p = decode(t, d)
	if !p.hasLink(union, kid) {
		t.Error("child must hang off the shared union")
	}
}

func TestRemoveOnlyChildDeletesUnion(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")
	bob, err := v.AddChild(d, ada, renderer.NodeSpec{Label: "Bob"})
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	if err := v.RemovePerson(d, bob); err != nil {
		t.Fatalf("RemovePerson: %v", err)
	}

	p := decode(t, d)
	if len(p.Persons) != 1 || len(p.Unions) != 0 || len(p.Links) != 0 {
		t.Errorf("after delete: %d persons, %d unions, %d links, want 1/0/0",
			len(p.Persons), len(p.Unions), len(p.Links))
	}
	if got := p.Persons[ada].OwnFamily; got != "" {
		t.Errorf("ownFamily = %q, want cleared after union deletion", got)
	}
}

func TestRemoveMiddlePersonPrunesBranch(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")
	bob, _ := v.AddChild(d, ada, renderer.NodeSpec{Label: "Bob"})
	carl, _ := v.AddChild(d, bob, renderer.NodeSpec{Label: "Carl"})
	dora, _ := v.AddChild(d, carl, renderer.NodeSpec{Label: "Dora"})

	// Deleting Bob disconnects Carl and Dora from the start person; the
	// traversal must sweep the whole branch.
	if err := v.RemovePerson(d, bob); err != nil {
		t.Fatalf("RemovePerson: %v", err)
	}

	p := decode(t, d)
	if _, ok := p.Persons[carl]; ok {
		t.Error("disconnected grandchild must be pruned")
	}
	if _, ok := p.Persons[dora]; ok {
		t.Error("disconnected great-grandchild must be pruned")
	}
	if len(p.Persons) != 1 || len(p.Unions) != 0 {
		t.Errorf("after prune: %d persons, %d unions, want 1/0", len(p.Persons), len(p.Unions))
	}

	// Pruning is a fixed point: encoding and re-running a deletion-free
	// decode/prune cycle changes nothing.
	before := append([]byte(nil), d.Data...)
	p.prune()
	if err := EncodePayload(d, p); err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	if !bytes.Equal(before, d.Data) {
		t.Error("second prune changed the payload")
	}
}

func TestRemoveStartPromotesParent(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")
	mom, _ := v.AddParent(d, ada, renderer.NodeSpec{Label: "Mom"})

	if err := v.RemovePerson(d, ada); err != nil {
		t.Fatalf("RemovePerson(start): %v", err)
	}

	p := decode(t, d)
	if p.Start != mom {
		t.Errorf("start = %q, want promoted parent %q", p.Start, mom)
	}
	if _, ok := p.Persons[ada]; ok {
		t.Error("deleted start person still present")
	}
}

func TestRemoveStartWithoutParentWipesTree(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")
	if _, err := v.AddChild(d, ada, renderer.NodeSpec{Label: "Bob"}); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	if err := v.RemovePerson(d, ada); err != nil {
		t.Fatalf("RemovePerson(start): %v", err)
	}

	p := decode(t, d)
	if p.Start != "" || len(p.Persons) != 0 || len(p.Unions) != 0 || len(p.Links) != 0 {
		t.Errorf("tree not wiped: start=%q persons=%d unions=%d links=%d",
			p.Start, len(p.Persons), len(p.Unions), len(p.Links))
	}
}

func TestReparentMovesSubtree(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")
	bob, _ := v.AddChild(d, ada, renderer.NodeSpec{Label: "Bob"})
	carl, _ := v.AddChild(d, ada, renderer.NodeSpec{Label: "Carl"})
	dora, _ := v.AddChild(d, carl, renderer.NodeSpec{Label: "Dora"})

	// Move Dora from under Carl to under Bob.
	if err := v.Reparent(d, dora, bob); err != nil {
		t.Fatalf("Reparent: %v", err)
	}

	p := decode(t, d)
	bobFam := p.Persons[bob].OwnFamily
	if bobFam == "" {
		t.Fatal("new parent's own family must be synthesized")
	}
	if got := p.Persons[dora].ParentFamily; got != bobFam {
		t.Errorf("moved person's parent family = %q, want %q", got, bobFam)
	}
	if !p.hasLink(bobFam, dora) {
		t.Error("missing union→child link under the new parent")
	}
	// Carl's union had only Dora; it must be gone and Carl's pointer cleared.
	if got := p.Persons[carl].OwnFamily; got != "" {
		t.Errorf("old parent's own family = %q, want cleared", got)
	}
}

func TestReparentOntoDescendantRejected(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")
	bob, _ := v.AddChild(d, ada, renderer.NodeSpec{Label: "Bob"})
	carl, _ := v.AddChild(d, bob, renderer.NodeSpec{Label: "Carl"})

	before := append([]byte(nil), d.Data...)

	if err := v.Reparent(d, bob, carl); !errors.Is(err, ErrCycle) {
		t.Fatalf("Reparent onto descendant = %v, want ErrCycle", err)
	}
	if !bytes.Equal(before, d.Data) {
		t.Error("rejected reparent must leave the document byte-for-byte unchanged")
	}

	if err := v.Reparent(d, bob, bob); !errors.Is(err, ErrCycle) {
		t.Errorf("Reparent onto self = %v, want ErrCycle", err)
	}
}

func TestAddRelativeRequiresLinkingSource(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")

	sess := renderer.NewSession()
	if _, err := v.AddRelative(sess, d, ChildOf, renderer.NodeSpec{Label: "Bob"}); !errors.Is(err, ErrSourceRequired) {
		t.Errorf("idle session = %v, want ErrSourceRequired", err)
	}

	sess.SetLinkingMode(true)
	if _, err := v.AddRelative(sess, d, ChildOf, renderer.NodeSpec{Label: "Bob"}); !errors.Is(err, ErrSourceRequired) {
		t.Errorf("no held source = %v, want ErrSourceRequired", err)
	}

	sess.HoldSource(ada)
	bob, err := v.AddRelative(sess, d, ChildOf, renderer.NodeSpec{Label: "Bob"})
	if err != nil {
		t.Fatalf("AddRelative: %v", err)
	}
	p := decode(t, d)
	if _, ok := p.Persons[bob]; !ok {
		t.Error("relative not added")
	}
	// The source stays held for follow-up additions.
	if src, ok := sess.Source(); !ok || src != ada {
		t.Errorf("source = %q,%v, want still held", src, ok)
	}
}

func TestRemoveEntityCollapsesUnions(t *testing.T) {
	v := New()
	d := newTestDoc(t)

	ref := entity.Ref{Kind: entity.KindActor, Key: "bob"}
	ada := seedTree(t, v, d, "Ada")
	if _, err := v.AddChild(d, ada, renderer.NodeSpec{Label: "Bob", Ref: ref}); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	before := append([]byte(nil), d.Data...)

	out, err := v.RemoveEntity(d, ref)
	if err != nil {
		t.Fatalf("RemoveEntity: %v", err)
	}
	if !bytes.Equal(before, d.Data) {
		t.Error("RemoveEntity must not mutate its input")
	}

	p := decode(t, out)
	if len(p.Persons) != 1 || len(p.Unions) != 0 || len(p.Links) != 0 {
		t.Errorf("after cleanup: %d persons, %d unions, %d links, want 1/0/0",
			len(p.Persons), len(p.Unions), len(p.Links))
	}
	if v.HasEntity(out, ref) {
		t.Error("cleaned document still reports the entity")
	}
	if !v.HasEntity(d, ref) {
		t.Error("original document must still report the entity")
	}
}

func TestRenderDrawsTree(t *testing.T) {
	v := New()
	d := newTestDoc(t)
	ada := seedTree(t, v, d, "Ada")
	if _, err := v.AddChild(d, ada, renderer.NodeSpec{Label: "Bob"}); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	s := &renderer.NullSurface{}
	if err := v.Render(s, d); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if s.Nodes != 3 { // two persons plus the union
		t.Errorf("drawn nodes = %d, want 3", s.Nodes)
	}
	if s.Edges != 2 {
		t.Errorf("drawn edges = %d, want 2", s.Edges)
	}
}
