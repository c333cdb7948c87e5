// Package lane implements the time-indexed variant: nodes carry a timeline
// value and are bucketed into horizontal lanes by half-open [from, to)
// ranges. Linking reuses the network vocabulary.
package lane

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
	// ErrNoLane is returned when no lane's range covers the node's time.
	ErrNoLane = errors.New("no lane covers the given time")

	// ErrDuplicateLane is returned when a lane id is added twice.
	ErrDuplicateLane = errors.New("lane id already exists")
)

// Lane is one horizontal band of the timeline.
type Lane struct {
	ID    string `json:"id" bson:"id"`
	Label string `json:"label,omitempty" bson:"label,omitempty"`
	From  int64  `json:"from" bson:"from"`
	To    int64  `json:"to" bson:"to"`
}

// Covers reports whether t falls in the lane's half-open range.
func (l Lane) Covers(t int64) bool { return t >= l.From && t < l.To }

// Node is one event on the timeline.
type Node struct {
	ID    string     `json:"id" bson:"id"`
	Ref   entity.Ref `json:"external_ref,omitzero" bson:"external_ref,omitempty"`
	Label string     `json:"label,omitempty" bson:"label,omitempty"`
	Kind  string     `json:"kind,omitempty" bson:"kind,omitempty"`
	Image string     `json:"image,omitempty" bson:"image,omitempty"`
	Time  int64      `json:"time" bson:"time"`

	// LaneID is derived from Time at placement and kept current on moves.
	LaneID string `json:"lane_id" bson:"lane_id"`
}

// Payload is the lane document data.
type Payload struct {
	Lanes []Lane         `json:"lanes" bson:"lanes"`
	Nodes []Node         `json:"nodes" bson:"nodes"`
	Links []network.Link `json:"links" bson:"links"`
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

// Bucket returns the lane covering t.
func (p *Payload) Bucket(t int64) (Lane, bool) {
	for _, l := range p.Lanes {
		if l.Covers(t) {
			return l, true
		}
	}
	return Lane{}, false
}

// DecodePayload parses a document's data as a lane payload.
func DecodePayload(d *document.GraphDocument) (*Payload, error) {
	p := &Payload{}
	if len(d.Data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(d.Data, p); err != nil {
		return nil, fmt.Errorf("decode lane payload: %w", err)
	}
	return p, nil
}

// EncodePayload writes the payload back into the document's data slot.
func EncodePayload(d *document.GraphDocument, p *Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode lane payload: %w", err)
	}
	d.Data = data
	return nil
}

// Variant is the lane renderer.
type Variant struct{}

// New creates a lane variant.
func New() *Variant { return &Variant{} }

// NewVariant creates the variant as a renderer.Variant, for registry use.
func NewVariant() renderer.Variant { return New() }

// ID returns the renderer discriminator.
func (v *Variant) ID() string { return document.RendererLane }

// InitializeGraphData returns the empty lane payload.
func (v *Variant) InitializeGraphData() json.RawMessage {
	return json.RawMessage(`{"lanes":[],"nodes":[],"links":[]}`)
}

// AddLane appends a lane band.
func (v *Variant) AddLane(d *document.GraphDocument, lane Lane) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	for _, l := range p.Lanes {
		if l.ID == lane.ID {
			return fmt.Errorf("%w: %q", ErrDuplicateLane, lane.ID)
		}
	}
	if lane.ID == "" {
		lane.ID = uuid.NewString()
	}
	p.Lanes = append(p.Lanes, lane)
	return EncodePayload(d, p)
}

// Render stacks lanes vertically and spreads each lane's nodes across its
// time range.
func (v *Variant) Render(s renderer.Surface, d *document.GraphDocument) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}

	laneY := map[string]float64{}
	if n := len(p.Lanes); n > 0 {
		bandH := d.Height / float64(n)
		for i, l := range p.Lanes {
			laneY[l.ID] = (float64(i) + 0.5) * bandH
		}
	}

	s.Reset()
	if d.Background != nil {
		s.DrawBackground(*d.Background, d.Width, d.Height)
	}
	for _, n := range p.Nodes {
		x := 0.0
		if lane, ok := p.Bucket(n.Time); ok && lane.To > lane.From {
			x = float64(n.Time-lane.From) / float64(lane.To-lane.From) * d.Width
		}
		s.DrawNode(renderer.NodeDirective{
			ID:     n.ID,
			Label:  n.Label,
			Image:  n.Image,
			Kind:   n.Kind,
			X:      x,
			Y:      laneY[n.LaneID],
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

// GraphData returns the stored payload; lane edits mutate the document
// directly.
func (v *Variant) GraphData(d *document.GraphDocument) (json.RawMessage, error) {
	if len(d.Data) == 0 {
		return v.InitializeGraphData(), nil
	}
	return d.Data, nil
}

// Teardown is a no-op; the variant holds no state between renders.
func (v *Variant) Teardown() {}

// AddNode treats the drop X position as the time value, truncated.
func (v *Variant) AddNode(d *document.GraphDocument, spec renderer.NodeSpec) error {
	return v.AddEvent(d, spec, int64(spec.X))
}

// AddEvent places a node at the given time, bucketed into the covering lane.
func (v *Variant) AddEvent(d *document.GraphDocument, spec renderer.NodeSpec, t int64) error {
	if spec.Kind != "" && !d.AllowsEntityKind(spec.Kind) {
		return fmt.Errorf("%w: %q", network.ErrKindNotAllowed, spec.Kind)
	}
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	lane, ok := p.Bucket(t)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoLane, t)
	}

	p.Nodes = append(p.Nodes, Node{
		ID:     uuid.NewString(),
		Ref:    spec.Ref,
		Label:  spec.Label,
		Kind:   spec.Kind,
		Image:  spec.Image,
		Time:   t,
		LaneID: lane.ID,
	})
	return EncodePayload(d, p)
}

// MoveEvent shifts a node to another time, rebucketing it.
func (v *Variant) MoveEvent(d *document.GraphDocument, nodeID string, t int64) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	n := p.Node(nodeID)
	if n == nil {
		return fmt.Errorf("%w: %q", network.ErrUnknownNode, nodeID)
	}
	lane, ok := p.Bucket(t)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoLane, t)
	}
	n.Time, n.LaneID = t, lane.ID
	return EncodePayload(d, p)
}

// CreateLink connects two events with the network linking rules.
func (v *Variant) CreateLink(d *document.GraphDocument, source, target string, kind document.RelationKind) error {
	if source == target {
		return network.ErrSelfLink
	}
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	if p.Node(source) == nil {
		return fmt.Errorf("%w: %q", network.ErrUnknownNode, source)
	}
	if p.Node(target) == nil {
		return fmt.Errorf("%w: %q", network.ErrUnknownNode, target)
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

// RemoveNode deletes an event and cascades to its links.
func (v *Variant) RemoveNode(d *document.GraphDocument, nodeID string) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	if p.Node(nodeID) == nil {
		return fmt.Errorf("%w: %q", network.ErrUnknownNode, nodeID)
	}
	p.Nodes = dropNodes(p.Nodes, func(n Node) bool { return n.ID == nodeID })
	p.Links = dropLinks(p.Links, func(l network.Link) bool {
		return l.Source == nodeID || l.Target == nodeID
	})
	return EncodePayload(d, p)
}

// HasEntity reports whether any event references ref.
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

// RemoveEntity returns a cleaned copy with every event referencing ref
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
