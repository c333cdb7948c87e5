// Package board implements the slot-constrained variant: nodes sit on a
// discrete row/column grid, at most one node per slot. Linking reuses the
// network vocabulary.
package board

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/network"
)

var (
	// ErrSlotOccupied is returned when a node is placed on a slot that
	// already holds one.
	ErrSlotOccupied = errors.New("slot is already occupied")

	// ErrSlotOutOfRange is returned when a slot lies outside the grid.
	ErrSlotOutOfRange = errors.New("slot outside the board grid")

	// ErrUnknownNode mirrors the network sentinel for gesture rejections.
	ErrUnknownNode = network.ErrUnknownNode
)

// Default grid dimensions when the payload does not carry its own.
const (
	DefaultRows = 8
	DefaultCols = 12
)

// Default canvas size when the document carries no dimensions. Freshly built
// documents have zero width and height, and the slot math needs a real cell
// size.
const (
	DefaultWidth  = 1200.0
	DefaultHeight = 800.0
)

// canvas returns the document dimensions, falling back to the defaults.
func canvas(d *document.GraphDocument) (w, h float64) {
	w, h = d.Width, d.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// Node is one card on the board.
type Node struct {
	ID    string     `json:"id" bson:"id"`
	Ref   entity.Ref `json:"external_ref,omitzero" bson:"external_ref,omitempty"`
	Label string     `json:"label,omitempty" bson:"label,omitempty"`
	Kind  string     `json:"kind,omitempty" bson:"kind,omitempty"`
	Image string     `json:"image,omitempty" bson:"image,omitempty"`
	Row   int        `json:"row" bson:"row"`
	Col   int        `json:"col" bson:"col"`
}

// Payload is the board document data. Rows and Cols bound the grid; zero
// values fall back to the defaults.
type Payload struct {
	Rows  int            `json:"rows,omitempty" bson:"rows,omitempty"`
	Cols  int            `json:"cols,omitempty" bson:"cols,omitempty"`
	Nodes []Node         `json:"nodes" bson:"nodes"`
	Links []network.Link `json:"links" bson:"links"`
}

func (p *Payload) dims() (rows, cols int) {
	rows, cols = p.Rows, p.Cols
	if rows <= 0 {
		rows = DefaultRows
	}
	if cols <= 0 {
		cols = DefaultCols
	}
	return rows, cols
}

// Node returns the node with the given id, or nil.
func (p *Payload) Node(id string) *Node {
	for i := range p.Nodes {
		if p.Nodes[i].ID == id {
			return &p.Nodes[i]
		}
	}
	return nil
}

// Occupant returns the node on the slot, or nil.
func (p *Payload) Occupant(row, col int) *Node {
	for i := range p.Nodes {
		if p.Nodes[i].Row == row && p.Nodes[i].Col == col {
			return &p.Nodes[i]
		}
	}
	return nil
}

// DecodePayload parses a document's data as a board payload.
func DecodePayload(d *document.GraphDocument) (*Payload, error) {
	p := &Payload{}
	if len(d.Data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(d.Data, p); err != nil {
		return nil, fmt.Errorf("decode board payload: %w", err)
	}
	return p, nil
}

// EncodePayload writes the payload back into the document's data slot.
func EncodePayload(d *document.GraphDocument, p *Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode board payload: %w", err)
	}
	d.Data = data
	return nil
}

// Variant is the board renderer.
type Variant struct{}

// New creates a board variant.
func New() *Variant { return &Variant{} }

// NewVariant creates the variant as a renderer.Variant, for registry use.
func NewVariant() renderer.Variant { return New() }

// ID returns the renderer discriminator.
func (v *Variant) ID() string { return document.RendererBoard }

// InitializeGraphData returns the empty board payload.
func (v *Variant) InitializeGraphData() json.RawMessage {
	return json.RawMessage(`{"nodes":[],"links":[]}`)
}

// Render draws each occupied slot at its cell center and the links between
// cards.
func (v *Variant) Render(s renderer.Surface, d *document.GraphDocument) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	rows, cols := p.dims()
	w, h := canvas(d)
	cellW := w / float64(cols)
	cellH := h / float64(rows)

	s.Reset()
	if d.Background != nil {
		s.DrawBackground(*d.Background, w, h)
	}
	for _, n := range p.Nodes {
		s.DrawNode(renderer.NodeDirective{
			ID:     n.ID,
			Label:  n.Label,
			Image:  n.Image,
			Kind:   n.Kind,
			X:      (float64(n.Col) + 0.5) * cellW,
			Y:      (float64(n.Row) + 0.5) * cellH,
			Pinned: true,
		})
	}
	for _, l := range p.Links {
		s.DrawEdge(renderer.EdgeDirective{
			From:        l.Source,
			To:          l.Target,
			Label:       l.Label,
			Color:       l.Color,
			Style:       l.Style,
			StrokeWidth: l.StrokeWidth,
			Arrow:       !l.NoArrow,
		})
	}
	return s.Finish()
}

// GraphData returns the stored payload; board edits mutate the document
// directly.
func (v *Variant) GraphData(d *document.GraphDocument) (json.RawMessage, error) {
	if len(d.Data) == 0 {
		return v.InitializeGraphData(), nil
	}
	return d.Data, nil
}

// Teardown is a no-op; the board holds no state between renders.
func (v *Variant) Teardown() {}

// AddNode snaps the drop position to the nearest slot and places the node
// there. Occupied slots reject the drop.
func (v *Variant) AddNode(d *document.GraphDocument, spec renderer.NodeSpec) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	rows, cols := p.dims()
	w, h := canvas(d)

	col := int(spec.X / (w / float64(cols)))
	row := int(spec.Y / (h / float64(rows)))
	return v.place(d, p, spec, row, col)
}

// PlaceNode places the node on an explicit slot.
func (v *Variant) PlaceNode(d *document.GraphDocument, spec renderer.NodeSpec, row, col int) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	return v.place(d, p, spec, row, col)
}

func (v *Variant) place(d *document.GraphDocument, p *Payload, spec renderer.NodeSpec, row, col int) error {
	if spec.Kind != "" && !d.AllowsEntityKind(spec.Kind) {
		return fmt.Errorf("%w: %q", network.ErrKindNotAllowed, spec.Kind)
	}
	rows, cols := p.dims()
	if row < 0 || row >= rows || col < 0 || col >= cols {
		return fmt.Errorf("%w: (%d,%d)", ErrSlotOutOfRange, row, col)
	}
	if occ := p.Occupant(row, col); occ != nil {
		return fmt.Errorf("%w: (%d,%d) holds %q", ErrSlotOccupied, row, col, occ.ID)
	}

	p.Nodes = append(p.Nodes, Node{
		ID:    uuid.NewString(),
		Ref:   spec.Ref,
		Label: spec.Label,
		Kind:  spec.Kind,
		Image: spec.Image,
		Row:   row,
		Col:   col,
	})
	return EncodePayload(d, p)
}

// MoveNode relocates a card to another slot, with the same occupancy check.
func (v *Variant) MoveNode(d *document.GraphDocument, nodeID string, row, col int) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	n := p.Node(nodeID)
	if n == nil {
		return fmt.Errorf("%w: %q", ErrUnknownNode, nodeID)
	}
	rows, cols := p.dims()
	if row < 0 || row >= rows || col < 0 || col >= cols {
		return fmt.Errorf("%w: (%d,%d)", ErrSlotOutOfRange, row, col)
	}
	if occ := p.Occupant(row, col); occ != nil && occ.ID != nodeID {
		return fmt.Errorf("%w: (%d,%d) holds %q", ErrSlotOccupied, row, col, occ.ID)
	}
	n.Row, n.Col = row, col
	return EncodePayload(d, p)
}

// CreateLink connects two cards with the network linking rules: no self
// links, no duplicates in either direction, endpoints must exist.
func (v *Variant) CreateLink(d *document.GraphDocument, source, target string, kind document.RelationKind) error {
	if source == target {
		return network.ErrSelfLink
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
	for _, l := range p.Links {
		if (l.Source == source && l.Target == target) || (l.Source == target && l.Target == source) {
			return fmt.Errorf("%w: %s and %s", network.ErrDuplicateLink, source, target)
		}
	}

	p.Links = append(p.Links, network.Link{
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

// RemoveNode deletes a card and cascades to its links.
func (v *Variant) RemoveNode(d *document.GraphDocument, nodeID string) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	if p.Node(nodeID) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownNode, nodeID)
	}
	p.Nodes = dropNodes(p.Nodes, func(n Node) bool { return n.ID == nodeID })
	p.Links = dropLinks(p.Links, func(l network.Link) bool {
		return l.Source == nodeID || l.Target == nodeID
	})
	return EncodePayload(d, p)
}

// HasEntity reports whether any card references ref.
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

// RemoveEntity returns a cleaned copy with every card referencing ref
// removed, cascading links. The input is not mutated.
func (v *Variant) RemoveEntity(d *document.GraphDocument, ref entity.Ref) (*document.GraphDocument, error) {
	out := d.Clone()
	p, err := DecodePayload(out)
	if err != nil {
		return nil, err
	}
	removed := map[string]bool{}
	p.Nodes = dropNodes(p.Nodes, func(n Node) bool {
		if n.Ref == ref {
			removed[n.ID] = true
			return true
		}
		return false
	})
	p.Links = dropLinks(p.Links, func(l network.Link) bool {
		return removed[l.Source] || removed[l.Target]
	})
	if err := EncodePayload(out, p); err != nil {
		return nil, err
	}
	return out, nil
}

func dropNodes(nodes []Node, drop func(Node) bool) []Node {
	out := nodes[:0]
	for _, n := range nodes {
		if !drop(n) {
			out = append(out, n)
		}
	}
	return out
}

func dropLinks(links []network.Link, drop func(network.Link) bool) []network.Link {
	out := links[:0]
	for _, l := range links {
		if !drop(l) {
			out = append(out, l)
		}
	}
	return out
}

var _ renderer.Variant = (*Variant)(nil)
