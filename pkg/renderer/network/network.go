package network

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
)

// Layouter is the external force-layout black box. It positions unpinned
// nodes between frames; pinned nodes must not be moved. Implementations are
// replaceable and must stop promptly when told to.
type Layouter interface {
	// Start begins simulating. The node slice is shared: the layouter writes
	// X/Y on unpinned nodes in place.
	Start(nodes []*Node, links []Link)

	// Stop halts the simulation. Must be safe to call repeatedly.
	Stop()
}

// workingLink is the ephemeral, in-memory form of a link with endpoints
// resolved to live node references. It exists only between Render and
// Teardown and is never persisted.
type workingLink struct {
	Link
	src, dst *Node
}

// Variant is the network renderer. The zero value is not usable; construct
// with New.
type Variant struct {
	layouter Layouter

	// Working state, valid between Render and Teardown.
	nodes []*Node
	links []workingLink
	hot   bool
}

// New creates a network variant with no layout process. Use SetLayouter to
// attach one before rendering if force simulation is wanted.
func New() *Variant { return &Variant{} }

// NewVariant creates the variant as a renderer.Variant, for registry use.
func NewVariant() renderer.Variant { return New() }

// SetLayouter attaches the external layout process.
func (v *Variant) SetLayouter(l Layouter) { v.layouter = l }

// ID returns the renderer discriminator.
func (v *Variant) ID() string { return document.RendererNetwork }

// InitializeGraphData returns the empty {nodes, links} payload.
func (v *Variant) InitializeGraphData() json.RawMessage {
	return json.RawMessage(`{"nodes":[],"links":[]}`)
}

// Render builds the working form from the document payload and hands it to
// the surface and the layout process.
//
// Render is idempotent and resets everything it attaches: calling it twice
// without Teardown first tears the previous frame down, so repeated renders
// do not leak listeners or leave a stale simulation running.
func (v *Variant) Render(s renderer.Surface, d *document.GraphDocument) error {
	v.Teardown()

	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	v.nodes = make([]*Node, len(p.Nodes))
	byID := make(map[string]*Node, len(p.Nodes))
	for i := range p.Nodes {
		n := p.Nodes[i]
		v.nodes[i] = &n
		byID[n.ID] = v.nodes[i]
	}
	v.links = make([]workingLink, len(p.Links))
	for i, l := range p.Links {
		v.links[i] = workingLink{Link: l, src: byID[l.Source], dst: byID[l.Target]}
	}
	v.hot = true

	s.Reset()
	if d.Background != nil {
		s.DrawBackground(*d.Background, d.Width, d.Height)
	}
	for _, n := range v.nodes {
		s.DrawNode(renderer.NodeDirective{
			ID:     n.ID,
			Label:  n.Label,
			Image:  n.Image,
			Kind:   n.Kind,
			X:      n.X,
			Y:      n.Y,
			Pinned: n.Pinned(),
		})
	}
	for _, l := range v.links {
		s.DrawEdge(renderer.EdgeDirective{
			From:        l.src.ID,
			To:          l.dst.ID,
			Label:       l.Label,
			Color:       l.Color,
			Style:       l.Style,
			StrokeWidth: l.StrokeWidth,
			Arrow:       !l.NoArrow,
		})
	}

	if v.layouter != nil {
		v.layouter.Start(v.nodes, p.Links)
	}
	return s.Finish()
}

// GraphData reconciles the working form back to the serializable one:
// object references collapse to bare ids and pinned coordinates win over
// whatever the simulation last wrote.
func (v *Variant) GraphData(d *document.GraphDocument) (json.RawMessage, error) {
	if !v.hot {
		// Nothing rendered yet; the stored payload is already current.
		if len(d.Data) == 0 {
			return v.InitializeGraphData(), nil
		}
		return d.Data, nil
	}

	p := &Payload{Nodes: make([]Node, len(v.nodes)), Links: make([]Link, len(v.links))}
	for i, n := range v.nodes {
		out := *n
		if out.Pinned() {
			out.X, out.Y = *out.FX, *out.FY
		}
		p.Nodes[i] = out
	}
	for i, l := range v.links {
		link := l.Link
		link.Source, link.Target = l.src.ID, l.dst.ID
		p.Links[i] = link
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode network payload: %w", err)
	}
	return data, nil
}

// Teardown stops the layout process and discards the working state. Safe to
// call repeatedly and before the first Render.
func (v *Variant) Teardown() {
	if v.layouter != nil {
		v.layouter.Stop()
	}
	v.nodes = nil
	v.links = nil
	v.hot = false
}

// AddNode validates the spec against the document's allow-list and appends a
// node at the drop position. Dropped nodes are pinned where they land.
func (v *Variant) AddNode(d *document.GraphDocument, spec renderer.NodeSpec) error {
	if spec.Kind != "" && !d.AllowsEntityKind(spec.Kind) {
		return fmt.Errorf("%w: %q", ErrKindNotAllowed, spec.Kind)
	}

	p, err := DecodePayload(d)
	if err != nil {
		return err
	}

	n := Node{
		ID:    uuid.NewString(),
		Ref:   spec.Ref,
		Label: spec.Label,
		Kind:  spec.Kind,
		Image: spec.Image,
	}
	n.Pin(spec.X, spec.Y)
	p.Nodes = append(p.Nodes, n)

	return EncodePayload(d, p)
}

// ClickResult tells the host how to interpret a node click.
type ClickResult int

// Click interpretations.
const (
	// ClickOpen means linking mode is off: the host opens the entity sheet.
	ClickOpen ClickResult = iota
	// ClickSourceCaptured means the click was captured as a link source.
	ClickSourceCaptured
	// ClickLinkCreated means a link was created and the document changed.
	ClickLinkCreated
)

// ClickNode advances the linking state machine for a node click.
//
// With linking mode off, the click is an ordinary selection (ClickOpen).
// The first click in linking mode captures the source; the second attempts
// to create source→target with the session's selected relation kind. On
// success or rejection the held source is cleared, returning to the
// awaiting-first-click sub-state; linking mode itself stays on until
// explicitly toggled off.
//
// Rejections (no relation selected, self link, duplicate in either
// direction) return the matching sentinel error and leave the document
// unchanged.
func (v *Variant) ClickNode(sess *renderer.Session, d *document.GraphDocument, nodeID string) (ClickResult, error) {
	if !sess.LinkingMode() {
		return ClickOpen, nil
	}

	src, held := sess.Source()
	if !held {
		p, err := DecodePayload(d)
		if err != nil {
			return ClickOpen, err
		}
		if p.Node(nodeID) == nil {
			return ClickOpen, fmt.Errorf("%w: %q", ErrUnknownNode, nodeID)
		}
		sess.HoldSource(nodeID)
		return ClickSourceCaptured, nil
	}

	// Second click: attempt the link, then clear the source either way.
	defer sess.ClearSource()

	kind, selected := sess.Relation()
	if !selected {
		return ClickSourceCaptured, ErrNoRelationSelected
	}
	if err := v.CreateLink(d, src, nodeID, kind); err != nil {
		return ClickSourceCaptured, err
	}
	return ClickLinkCreated, nil
}

// CreateLink appends a link source→target, copying display fields from the
// relation kind. Rejects self-links, duplicates (either direction), and
// unknown endpoints.
func (v *Variant) CreateLink(d *document.GraphDocument, source, target string, kind document.RelationKind) error {
	if source == target {
		return ErrSelfLink
	}

	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	if p.Node(source) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownNode, source)
	}
	if p.Node(target) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownNode, target)
	}
	if p.Linked(source, target) {
		return fmt.Errorf("%w: %s and %s", ErrDuplicateLink, source, target)
	}

	p.Links = append(p.Links, Link{
		ID:             uuid.NewString(),
		Source:         source,
		Target:         target,
		RelationKindID: kind.ID,
		Label:          kind.Label,
		Color:          kind.Color,
		Style:          kind.Style,
		StrokeWidth:    kind.StrokeWidth,
		NoArrow:        kind.NoArrow,
	})

	return EncodePayload(d, p)
}

// RemoveNode deletes a node and cascades to every link whose source or
// target is that node, atomically within the same edit.
func (v *Variant) RemoveNode(d *document.GraphDocument, nodeID string) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	if p.Node(nodeID) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownNode, nodeID)
	}

	p.Nodes = deleteNodes(p.Nodes, func(n Node) bool { return n.ID == nodeID })
	p.Links = deleteLinks(p.Links, func(l Link) bool { return l.Source == nodeID || l.Target == nodeID })

	return EncodePayload(d, p)
}

// HasEntity reports whether any node references ref.
func (v *Variant) HasEntity(d *document.GraphDocument, ref entity.Ref) bool {
	p, err := DecodePayload(d)
	if err != nil {
		return false
	}
	for _, n := range p.Nodes {
		if n.Ref == ref {
			return true
		}
	}
	return false
}

// RemoveEntity returns a cleaned copy of the document with every node
// referencing ref removed, cascading incident links. An external entity may
// appear as multiple local nodes; all of them go. The input is not mutated.
func (v *Variant) RemoveEntity(d *document.GraphDocument, ref entity.Ref) (*document.GraphDocument, error) {
	out := d.Clone()

	p, err := DecodePayload(out)
	if err != nil {
		return nil, err
	}

	removed := make(map[string]bool)
	p.Nodes = deleteNodes(p.Nodes, func(n Node) bool {
		if n.Ref == ref {
			removed[n.ID] = true
			return true
		}
		return false
	})
	p.Links = deleteLinks(p.Links, func(l Link) bool {
		return removed[l.Source] || removed[l.Target]
	})

	if err := EncodePayload(out, p); err != nil {
		return nil, err
	}
	return out, nil
}

func deleteNodes(nodes []Node, drop func(Node) bool) []Node {
	out := nodes[:0]
	for _, n := range nodes {
		if !drop(n) {
			out = append(out, n)
		}
	}
	return out
}

func deleteLinks(links []Link, drop func(Link) bool) []Link {
	out := links[:0]
	for _, l := range links {
		if !drop(l) {
			out = append(out, l)
		}
	}
	return out
}

var _ renderer.Variant = (*Variant)(nil)
