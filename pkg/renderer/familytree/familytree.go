package familytree

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/network"
)

// Relation is the kind of relative being added to a selected source person.
type Relation int

const (
	// ChildOf adds a child below the source's own family.
	ChildOf Relation = iota
	// ParentOf adds a parent above the source's birth family.
	ParentOf
	// SpouseOf adds a partner into the source's own family, with a
	// person→union edge only.
	SpouseOf
)

// Variant is the family-tree renderer.
type Variant struct{}

// New creates a family-tree variant.
func New() *Variant { return &Variant{} }

// NewVariant creates the variant as a renderer.Variant, for registry use.
func NewVariant() renderer.Variant { return New() }

// ID returns the renderer discriminator.
func (v *Variant) ID() string { return document.RendererFamilyTree }

// InitializeGraphData returns the empty tree payload.
func (v *Variant) InitializeGraphData() json.RawMessage {
	return json.RawMessage(`{"start":"","persons":{},"unions":{},"links":[]}`)
}

// Render draws persons and unions as nodes and the directed family links as
// edges. The tree has no layout process; positions are the surface's problem.
func (v *Variant) Render(s renderer.Surface, d *document.GraphDocument) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}

	s.Reset()
	if d.Background != nil {
		s.DrawBackground(*d.Background, d.Width, d.Height)
	}
	for id, person := range p.Persons {
		s.DrawNode(renderer.NodeDirective{
			ID:    id,
			Label: person.Name,
			Kind:  person.Ref.Kind,
		})
	}
	for id := range p.Unions {
		s.DrawNode(renderer.NodeDirective{ID: id})
	}
	for _, l := range p.Links {
		s.DrawEdge(renderer.EdgeDirective{From: l[0], To: l[1]})
	}
	return s.Finish()
}

// GraphData returns the stored payload; family-tree edits mutate the document
// directly, so there is no working form to reconcile.
func (v *Variant) GraphData(d *document.GraphDocument) (json.RawMessage, error) {
	if len(d.Data) == 0 {
		return v.InitializeGraphData(), nil
	}
	return d.Data, nil
}

// Teardown is a no-op; the variant holds no state between renders.
func (v *Variant) Teardown() {}

// AddNode places the first person of an empty tree, who becomes the start
// person. Every later person must be added as a relative of a selected
// source, so a non-empty tree rejects free-standing drops.
func (v *Variant) AddNode(d *document.GraphDocument, spec renderer.NodeSpec) error {
	if spec.Kind != "" && !d.AllowsEntityKind(spec.Kind) {
		return fmt.Errorf("%w: %q", network.ErrKindNotAllowed, spec.Kind)
	}
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	if p.Start != "" {
		return ErrTreeNotEmpty
	}

	id := uuid.NewString()
	p.Persons[id] = Person{Name: spec.Label, Ref: spec.Ref}
	p.Start = id
	return EncodePayload(d, p)
}

// AddRelative adds a person relative to the session's held source. Linking
// mode must be active with a source person selected; the source stays held so
// several relatives can be added in a row.
func (v *Variant) AddRelative(sess *renderer.Session, d *document.GraphDocument, rel Relation, spec renderer.NodeSpec) (string, error) {
	if !sess.LinkingMode() {
		return "", ErrSourceRequired
	}
	src, held := sess.Source()
	if !held {
		return "", ErrSourceRequired
	}
	return v.addRelative(d, src, rel, spec)
}

func (v *Variant) addRelative(d *document.GraphDocument, sourceID string, rel Relation, spec renderer.NodeSpec) (string, error) {
	if spec.Kind != "" && !d.AllowsEntityKind(spec.Kind) {
		return "", fmt.Errorf("%w: %q", network.ErrKindNotAllowed, spec.Kind)
	}
	p, err := DecodePayload(d)
	if err != nil {
		return "", err
	}
	source, ok := p.Persons[sourceID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPerson, sourceID)
	}

	newID := uuid.NewString()
	person := Person{Name: spec.Label, Ref: spec.Ref}

	switch rel {
	case ChildOf:
		// The child hangs off the source's own family, synthesized on first
		// use.
		union := source.OwnFamily
		if union == "" {
			union = uuid.NewString()
			p.Unions[union] = Union{}
			p.addLink(sourceID, union)
			source.OwnFamily = union
			p.Persons[sourceID] = source
		}
		person.ParentFamily = union
		p.addLink(union, newID)

	case ParentOf:
		// The parent joins the source's birth family, synthesized on first
		// use.
		union := source.ParentFamily
		if union == "" {
			union = uuid.NewString()
			p.Unions[union] = Union{}
			p.addLink(union, sourceID)
			source.ParentFamily = union
			p.Persons[sourceID] = source
		}
		person.OwnFamily = union
		p.addLink(newID, union)

	case SpouseOf:
		// The spouse joins the source's own family with a person→union edge
		// only. No union→spouse back-edge: the union did not produce them.
		union := source.OwnFamily
		if union == "" {
			union = uuid.NewString()
			p.Unions[union] = Union{}
			p.addLink(sourceID, union)
			source.OwnFamily = union
			p.Persons[sourceID] = source
		}
		person.OwnFamily = union
		p.addLink(newID, union)

	default:
		return "", fmt.Errorf("unknown relation %d", rel)
	}

	p.Persons[newID] = person
	return newID, EncodePayload(d, p)
}

// AddChild adds a child of the given person.
func (v *Variant) AddChild(d *document.GraphDocument, sourceID string, spec renderer.NodeSpec) (string, error) {
	return v.addRelative(d, sourceID, ChildOf, spec)
}

// AddParent adds a parent of the given person.
func (v *Variant) AddParent(d *document.GraphDocument, sourceID string, spec renderer.NodeSpec) (string, error) {
	return v.addRelative(d, sourceID, ParentOf, spec)
}

// AddSpouse adds a partner of the given person.
func (v *Variant) AddSpouse(d *document.GraphDocument, sourceID string, spec renderer.NodeSpec) (string, error) {
	return v.addRelative(d, sourceID, SpouseOf, spec)
}

// RemovePerson deletes a person and everything that only existed because of
// them.
//
// Deleting the start person first promotes a parent to start, found by
// scanning for the union feeding into them and a person feeding into that
// union; with no parent the whole tree is wiped. A union that loses its last
// child is deleted too, clearing ownFamily on the persons who pointed to it.
// Whatever the targeted deletions leave behind, the BFS prune from the start
// person has the final word on what survives.
func (v *Variant) RemovePerson(d *document.GraphDocument, personID string) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	person, ok := p.Persons[personID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPerson, personID)
	}

	if p.Start == personID {
		parent, found := p.firstParentOf(personID)
		if !found {
			// No parent to promote: the tree is gone.
			*p = *NewPayload()
			return EncodePayload(d, p)
		}
		p.Start = parent
	}

	delete(p.Persons, personID)
	p.removeLinksTouching(personID)

	// The person's birth family may now be childless.
	if person.ParentFamily != "" {
		p.dropIfChildless(person.ParentFamily)
	}

	p.prune()
	return EncodePayload(d, p)
}

// dropIfChildless deletes the union when no union→child link remains,
// removing its remaining links and clearing family pointers at it.
func (p *Payload) dropIfChildless(unionID string) {
	if _, ok := p.Unions[unionID]; !ok {
		return
	}
	if len(p.childrenOf(unionID)) > 0 {
		return
	}
	delete(p.Unions, unionID)
	p.removeLinksTouching(unionID)
	for id, person := range p.Persons {
		changed := false
		if person.OwnFamily == unionID {
			person.OwnFamily = ""
			changed = true
		}
		if person.ParentFamily == unionID {
			person.ParentFamily = ""
			changed = true
		}
		if changed {
			p.Persons[id] = person
		}
	}
}

// Reparent moves a person (with their whole subtree) under a new parent.
//
// The move is rejected with ErrCycle when the new parent is a descendant of
// the moved person, since attaching there would make the person their own
// ancestor. On rejection the document is untouched.
func (v *Variant) Reparent(d *document.GraphDocument, personID, newParentID string) error {
	p, err := DecodePayload(d)
	if err != nil {
		return err
	}
	person, ok := p.Persons[personID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPerson, personID)
	}
	newParent, ok := p.Persons[newParentID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPerson, newParentID)
	}
	if personID == newParentID || p.descendants(personID)[newParentID] {
		return fmt.Errorf("%w: %q under %q", ErrCycle, personID, newParentID)
	}

	// Detach from the old birth family.
	if person.ParentFamily != "" {
		old := person.ParentFamily
		p.removeLink(old, personID)
		person.ParentFamily = ""
		p.Persons[personID] = person
		p.dropIfChildless(old)
		person = p.Persons[personID] // dropIfChildless may clear pointers
	}

	// Attach under the new parent's own family, synthesized on first use.
	union := p.Persons[newParentID].OwnFamily
	if union == "" {
		union = uuid.NewString()
		p.Unions[union] = Union{}
		p.addLink(newParentID, union)
		newParent = p.Persons[newParentID]
		newParent.OwnFamily = union
		p.Persons[newParentID] = newParent
	}
	person.ParentFamily = union
	p.Persons[personID] = person
	p.addLink(union, personID)

	p.prune()
	return EncodePayload(d, p)
}

// HasEntity reports whether any person references ref.
func (v *Variant) HasEntity(d *document.GraphDocument, ref entity.Ref) bool {
	p, err := DecodePayload(d)
	if err != nil {
		return false
	}
	for _, person := range p.Persons {
		if person.Ref == ref {
			return true
		}
	}
	return false
}

// RemoveEntity returns a cleaned copy of the document with every person
// referencing ref removed through the normal deletion path, so unions and
// disconnected branches collapse the same way an interactive delete would.
// The input is not mutated.
func (v *Variant) RemoveEntity(d *document.GraphDocument, ref entity.Ref) (*document.GraphDocument, error) {
	out := d.Clone()

	for {
		p, err := DecodePayload(out)
		if err != nil {
			return nil, err
		}
		target := ""
		for id, person := range p.Persons {
			if person.Ref == ref {
				target = id
				break
			}
		}
		if target == "" {
			return out, nil
		}
		if err := v.RemovePerson(out, target); err != nil {
			return nil, err
		}
	}
}

var _ renderer.Variant = (*Variant)(nil)
