// Package network implements the free-form node/link variant.
//
// Nodes float (driven by an external force layout) or sit pinned where the
// user placed them. Links are created through a two-click linking gesture
// driven by the session's linking mode, and carry display fields denormalized
// from the relation kind at creation time so they survive later vocabulary
// edits.
//
// The payload exists in two representations: the stable, serializable form
// (bare node ids in links) stored in the document, and an ephemeral working
// form (resolved pointers) built by Render for the layout process and
// discarded by Teardown. The two are never conflated in storage.
package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
)

// Sentinel errors for linking and mutation gestures. All of them are
// validation rejections: the operation aborts with no state change and the
// caller surfaces a transient warning.
var (
	// ErrNoRelationSelected is returned when a link gesture completes without
	// a selected relation kind.
	ErrNoRelationSelected = errors.New("no relation kind selected")

	// ErrSelfLink is returned when a link gesture starts and ends on the same
	// node.
	ErrSelfLink = errors.New("cannot link a node to itself")

	// ErrDuplicateLink is returned when the two nodes are already connected
	// in either direction.
	ErrDuplicateLink = errors.New("nodes are already linked")

	// ErrUnknownNode is returned when a gesture references a node id not
	// present in the payload.
	ErrUnknownNode = errors.New("unknown node")

	// ErrKindNotAllowed is returned when a dropped entity's kind is not in
	// the document's allow-list.
	ErrKindNotAllowed = errors.New("entity kind not allowed on this graph")
)

// Node is one vertex of the network payload.
//
// Ref is the opaque handle to the backing real-world entity; it is zero for
// freehand nodes. FX/FY, when set, pin the node: pinned coordinates are
// authoritative and survive re-renders and persistence round-trips.
type Node struct {
	ID    string     `json:"id" bson:"id"`
	Ref   entity.Ref `json:"external_ref,omitzero" bson:"external_ref,omitempty"`
	Label string     `json:"label,omitempty" bson:"label,omitempty"`
	Kind  string     `json:"kind,omitempty" bson:"kind,omitempty"`
	Image string     `json:"image,omitempty" bson:"image,omitempty"`

	X  float64  `json:"x,omitempty" bson:"x,omitempty"`
	Y  float64  `json:"y,omitempty" bson:"y,omitempty"`
	FX *float64 `json:"fx,omitempty" bson:"fx,omitempty"`
	FY *float64 `json:"fy,omitempty" bson:"fy,omitempty"`
}

// Pinned reports whether the node has authoritative manual coordinates.
func (n *Node) Pinned() bool { return n.FX != nil && n.FY != nil }

// Pin fixes the node at the given position.
func (n *Node) Pin(x, y float64) {
	n.X, n.Y = x, y
	n.FX, n.FY = &x, &y
}

// Link is one directed edge of the network payload. Source and Target are
// bare node ids on disk; they are resolved to object references only while
// loaded into an active layout (see workingLink).
//
// The display fields are copies taken from the relation kind at creation
// time.
type Link struct {
	ID             string  `json:"id" bson:"id"`
	Source         string  `json:"source" bson:"source"`
	Target         string  `json:"target" bson:"target"`
	RelationKindID string  `json:"relation_kind_id,omitempty" bson:"relation_kind_id,omitempty"`
	Label          string  `json:"label,omitempty" bson:"label,omitempty"`
	Color          string  `json:"color,omitempty" bson:"color,omitempty"`
	Style          string  `json:"style,omitempty" bson:"style,omitempty"`
	StrokeWidth    float64 `json:"stroke_width,omitempty" bson:"stroke_width,omitempty"`
	NoArrow        bool    `json:"no_arrow,omitempty" bson:"no_arrow,omitempty"`
}

// Payload is the network variant's document data: {nodes, links}.
type Payload struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Links []Link `json:"links" bson:"links"`
}

// DecodePayload parses a document's data as a network payload.
// An empty data blob decodes to the empty payload.
func DecodePayload(d *document.GraphDocument) (*Payload, error) {
	p := &Payload{}
	if len(d.Data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(d.Data, p); err != nil {
		return nil, fmt.Errorf("decode network payload: %w", err)
	}
	return p, nil
}

// EncodePayload writes the payload back into the document's data slot.
func EncodePayload(d *document.GraphDocument, p *Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode network payload: %w", err)
	}
	d.Data = data
	return nil
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

// Linked reports whether a link already connects the pair, in either
// direction.
func (p *Payload) Linked(a, b string) bool {
	for _, l := range p.Links {
		if (l.Source == a && l.Target == b) || (l.Source == b && l.Target == a) {
			return true
		}
	}
	return false
}

// Validate checks referential integrity: every link endpoint must resolve to
// a node present in Nodes. Broken links are unreachable by construction
// (deletion cascades), so a failure here indicates outside corruption.
func (p *Payload) Validate() error {
	ids := make(map[string]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node with empty id", ErrUnknownNode)
		}
		ids[n.ID] = true
	}
	for _, l := range p.Links {
		if !ids[l.Source] {
			return fmt.Errorf("%w: link %s source %q", ErrUnknownNode, l.ID, l.Source)
		}
		if !ids[l.Target] {
			return fmt.Errorf("%w: link %s target %q", ErrUnknownNode, l.ID, l.Target)
		}
	}
	return nil
}
