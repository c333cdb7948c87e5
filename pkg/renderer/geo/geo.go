// Package geo implements the georeferenced variant: nodes are markers with
// latitude/longitude coordinates validated against the map's bounds. Linking
// reuses the network vocabulary.
package geo

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

// ErrOutOfBounds is returned when a marker lies outside the map bounds.
var ErrOutOfBounds = errors.New("marker outside map bounds")

// Bounds is the visible map window. The zero value means the whole world.
type Bounds struct {
	MinLat float64 `json:"min_lat,omitempty" bson:"min_lat,omitempty"`
	MaxLat float64 `json:"max_lat,omitempty" bson:"max_lat,omitempty"`
	MinLon float64 `json:"min_lon,omitempty" bson:"min_lon,omitempty"`
	MaxLon float64 `json:"max_lon,omitempty" bson:"max_lon,omitempty"`
}

func (b Bounds) zero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLon == 0 && b.MaxLon == 0
}

// Contains reports whether the coordinate is on the map. Coordinates must be
// valid lat/lon regardless of the window.
func (b Bounds) Contains(lat, lon float64) bool {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	if b.zero() {
		return true
	}
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Marker is one georeferenced node.
type Marker struct {
	ID    string     `json:"id" bson:"id"`
	Ref   entity.Ref `json:"external_ref,omitzero" bson:"external_ref,omitempty"`
	Label string     `json:"label,omitempty" bson:"label,omitempty"`
	Kind  string     `json:"kind,omitempty" bson:"kind,omitempty"`
	Image string     `json:"image,omitempty" bson:"image,omitempty"`
	Lat   float64    `json:"lat" bson:"lat"`
	Lon   float64    `json:"lon" bson:"lon"`
}

// Payload is the geo document data.
type Payload struct {
	Bounds  Bounds         `json:"bounds,omitzero" bson:"bounds,omitempty"`
	Markers []Marker       `json:"markers" bson:"markers"`
	Links   []network.Link `json:"links" bson:"links"`
}

// Marker returns the marker with the given id, or nil.
func (p *Payload) Marker(id string) *Marker {
	for i := range p.Markers {
		if p.Markers[i].ID == id {
			return &p.Markers[i]
		}
	}
	return nil
}

// DecodePayload parses a document's data as a geo payload.
func DecodePayload(d *document.GraphDocument) (*Payload, error) {
	p := &Payload{}
	if len(d.Data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(d.Data, p); err != nil {
		return nil, fmt.Errorf("decode geo payload: %w", err)
	}
	return p, nil
}

// EncodePayload writes the payload back into the document's data slot.
func EncodePayload(d *document.GraphDocument, p *Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode geo payload: %w", err)
	}
	d.Data = data
	return nil
}

// Variant is the geo renderer.
type Variant struct{}

// New creates a geo variant.
func New() *Variant { return &Variant{} }

// NewVariant creates the variant as a renderer.Variant, for registry use.
func NewVariant() renderer.Variant { return New() }

// ID returns the renderer discriminator.
func (v *Variant) ID() string { return document.RendererGeo }

// InitializeGraphData returns the empty geo payload.
func (v *Variant) InitializeGraphData() json.RawMessage {
	return json.RawMessage(`{"markers":[],"links":[]}`)
}

// Render projects markers into document space with a linear lat/lon mapping
// over the bounds and draws the links between them.
func (v *Variant) Render(s renderer.Surface, d *document.GraphDocument) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	b := p.Bounds
	// A window with no span cannot project; treat it like no window at all.
	if b.zero() || b.MaxLat <= b.MinLat || b.MaxLon <= b.MinLon {
		b = Bounds{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	}
	spanLat, spanLon := b.MaxLat-b.MinLat, b.MaxLon-b.MinLon

	s.Reset()
	if d.Background != nil {
		s.DrawBackground(*d.Background, d.Width, d.Height)
	}
	for _, m := range p.Markers {
		s.DrawNode(renderer.NodeDirective{
			ID:     m.ID,
			Label:  m.Label,
			Image:  m.Image,
			Kind:   m.Kind,
			X:      (m.Lon - b.MinLon) / spanLon * d.Width,
			Y:      (b.MaxLat - m.Lat) / spanLat * d.Height,
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

// GraphData returns the stored payload; geo edits mutate the document
// directly.
func (v *Variant) GraphData(d *document.GraphDocument) (json.RawMessage, error) {
	if len(d.Data) == 0 {
		return v.InitializeGraphData(), nil
	}
	return d.Data, nil
}

// Teardown is a no-op; the variant holds no state between renders.
func (v *Variant) Teardown() {}

// AddNode treats the drop position as lat/lon directly (Y is latitude,
// X longitude).
func (v *Variant) AddNode(d *document.GraphDocument, spec renderer.NodeSpec) error {
	return v.AddMarker(d, spec, spec.Y, spec.X)
}

// AddMarker places a marker at the coordinate, rejecting positions outside
// the map bounds.
func (v *Variant) AddMarker(d *document.GraphDocument, spec renderer.NodeSpec, lat, lon float64) error {
	if spec.Kind != "" && !d.AllowsEntityKind(spec.Kind) {
		return fmt.Errorf("%w: %q", network.ErrKindNotAllowed, spec.Kind)
	}
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	if !p.Bounds.Contains(lat, lon) {
		return fmt.Errorf("%w: (%f,%f)", ErrOutOfBounds, lat, lon)
	}

	p.Markers = append(p.Markers, Marker{
		ID:    uuid.NewString(),
		Ref:   spec.Ref,
		Label: spec.Label,
		Kind:  spec.Kind,
		Image: spec.Image,
		Lat:   lat,
		Lon:   lon,
	})
	return EncodePayload(d, p)
}

// MoveMarker relocates a marker, with the same bounds check.
func (v *Variant) MoveMarker(d *document.GraphDocument, markerID string, lat, lon float64) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	m := p.Marker(markerID)
	if m == nil {
		return fmt.Errorf("%w: %q", network.ErrUnknownNode, markerID)
	}
	if !p.Bounds.Contains(lat, lon) {
		return fmt.Errorf("%w: (%f,%f)", ErrOutOfBounds, lat, lon)
	}
	m.Lat, m.Lon = lat, lon
	return EncodePayload(d, p)
}

// CreateLink connects two markers with the network linking rules.
func (v *Variant) CreateLink(d *document.GraphDocument, source, target string, kind document.RelationKind) error {
	if source == target {
		return network.ErrSelfLink
	}
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	if p.Marker(source) == nil {
		return fmt.Errorf("%w: %q", network.ErrUnknownNode, source)
	}
	if p.Marker(target) == nil {
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

// RemoveNode deletes a marker and cascades to its links.
func (v *Variant) RemoveNode(d *document.GraphDocument, markerID string) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	if p.Marker(markerID) == nil {
		return fmt.Errorf("%w: %q", network.ErrUnknownNode, markerID)
	}
	p.Markers = dropMarkers(p.Markers, func(m Marker) bool { return m.ID == markerID })
	p.Links = dropLinks(p.Links, func(l network.Link) bool {
		return l.Source == markerID || l.Target == markerID
	})
	return EncodePayload(d, p)
}

// HasEntity reports whether any marker references ref.
func (v *Variant) HasEntity(d *document.GraphDocument, ref entity.Ref) bool {
	p, err := DecodePayload(d)
	if err != nil {
		return false
	}
	for _, m := range p.Markers {
		if m.Ref == ref {
			return true
		}
	}
	return false
}

// RemoveEntity returns a cleaned copy with every marker referencing ref
// removed, cascading links. The input is not mutated.
func (v *Variant) RemoveEntity(d *document.GraphDocument, ref entity.Ref) (*document.GraphDocument, error) {
	out := d.Clone()
	p, err := DecodePayload(out)
	if err != nil {
		return nil, err
	}
	removed := map[string]bool{}
	p.Markers = dropMarkers(p.Markers, func(m Marker) bool {
		if m.Ref == ref {
			removed[m.ID] = true
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

func dropMarkers(markers []Marker, drop func(Marker) bool) []Marker {
	out := markers[:0]
	for _, m := range markers {
		if !drop(m) {
			out = append(out, m)
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
