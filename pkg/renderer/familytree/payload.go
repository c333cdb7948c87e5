// Package familytree implements the genealogical variant.
//
// The model has two node kinds: persons and unions. A union is a parental
// pairing with no data of its own; it links parents to children. Links are
// directed pairs of exactly two conventional kinds - parent→union (the parent
// belongs to the union) and union→child (the union produced the child) -
// distinguished by direction and endpoint kind, not by a type tag.
//
// Spouses are the deliberate asymmetry: a spouse joins the union with a
// person→union edge only, no union→person back-edge, because spouses are not
// "produced by" the union. Downstream code must preserve this.
//
// After any structural deletion, a breadth-first traversal from the start
// person over the undirected closure of the links computes the connected id
// set; everything outside it is pruned. That traversal, not descendant
// deletion, is the authoritative consistency check for what gets persisted.
package familytree

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
)

// Sentinel errors. All are validation rejections: the operation aborts with
// no state change.
var (
	// ErrUnknownPerson is returned when an operation references a person id
	// not present in the payload.
	ErrUnknownPerson = errors.New("unknown person")

	// ErrSourceRequired is returned when a relative is added without an
	// active linking-mode source person.
	ErrSourceRequired = errors.New("a source person must be selected in linking mode")

	// ErrTreeNotEmpty is returned when a free-standing person is added to a
	// non-empty tree; only the first person may be placed without a source.
	ErrTreeNotEmpty = errors.New("tree already has a start person")

	// ErrCycle is returned when a reparent would make a person an ancestor
	// of themselves. Without this guard the family graph could become cyclic
	// and the BFS prune would behave unpredictably.
	ErrCycle = errors.New("new parent is a descendant of the moved person")
)

// Person is a family member.
type Person struct {
	Name string     `json:"name" bson:"name"`
	Ref  entity.Ref `json:"external_ref,omitzero" bson:"external_ref,omitempty"`

	// OwnFamily is the union this person founded as a parent, if any.
	OwnFamily string `json:"own_family,omitempty" bson:"own_family,omitempty"`
	// ParentFamily is the union this person was born into, if any.
	ParentFamily string `json:"parent_family,omitempty" bson:"parent_family,omitempty"`
}

// Union is a parental pairing. It carries no data beyond presentational
// flags; its meaning comes entirely from the links around it.
type Union struct {
	Collapsed bool `json:"collapsed,omitempty" bson:"collapsed,omitempty"`
}

// Payload is the family-tree document data.
type Payload struct {
	// Start is the person the tree is drawn from. It is empty only when the
	// whole tree is empty.
	Start   string            `json:"start" bson:"start"`
	Persons map[string]Person `json:"persons" bson:"persons"`
	Unions  map[string]Union  `json:"unions" bson:"unions"`
	Links   [][2]string       `json:"links" bson:"links"`
}

// NewPayload returns the empty tree.
func NewPayload() *Payload {
	return &Payload{Persons: map[string]Person{}, Unions: map[string]Union{}, Links: [][2]string{}}
}

// DecodePayload parses a document's data as a family-tree payload.
func DecodePayload(d *document.GraphDocument) (*Payload, error) {
	if len(d.Data) == 0 {
		return NewPayload(), nil
	}
	p := NewPayload()
	if err := json.Unmarshal(d.Data, p); err != nil {
		return nil, fmt.Errorf("decode familytree payload: %w", err)
	}
	if p.Persons == nil {
		p.Persons = map[string]Person{}
	}
	if p.Unions == nil {
		p.Unions = map[string]Union{}
	}
	return p, nil
}

// EncodePayload writes the payload back into the document's data slot.
// Links are sorted for deterministic output.
func EncodePayload(d *document.GraphDocument, p *Payload) error {
	slices.SortFunc(p.Links, func(a, b [2]string) int {
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		if a[1] < b[1] {
			return -1
		}
		if a[1] > b[1] {
			return 1
		}
		return 0
	})
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode familytree payload: %w", err)
	}
	d.Data = data
	return nil
}

// hasLink reports whether the exact directed link exists.
func (p *Payload) hasLink(from, to string) bool {
	for _, l := range p.Links {
		if l[0] == from && l[1] == to {
			return true
		}
	}
	return false
}

// addLink appends a directed link if not already present.
func (p *Payload) addLink(from, to string) {
	if !p.hasLink(from, to) {
		p.Links = append(p.Links, [2]string{from, to})
	}
}

// removeLink deletes the exact directed link.
func (p *Payload) removeLink(from, to string) {
	p.Links = slices.DeleteFunc(p.Links, func(l [2]string) bool {
		return l[0] == from && l[1] == to
	})
}

// removeLinksTouching deletes every link with id as either endpoint.
func (p *Payload) removeLinksTouching(id string) {
	p.Links = slices.DeleteFunc(p.Links, func(l [2]string) bool {
		return l[0] == id || l[1] == id
	})
}

// childrenOf returns the ids a union links to (union→child edges).
func (p *Payload) childrenOf(unionID string) []string {
	var out []string
	for _, l := range p.Links {
		if l[0] == unionID {
			out = append(out, l[1])
		}
	}
	return out
}

// parentsOf returns the persons feeding into a union (person→union edges).
func (p *Payload) parentsOf(unionID string) []string {
	var out []string
	for _, l := range p.Links {
		if l[1] == unionID {
			if _, isPerson := p.Persons[l[0]]; isPerson {
				out = append(out, l[0])
			}
		}
	}
	return out
}

// firstParentOf returns a parent of the person: scan for the union feeding
// into them, then for a person feeding into that union.
func (p *Payload) firstParentOf(personID string) (string, bool) {
	for _, l := range p.Links {
		if l[1] != personID {
			continue
		}
		if _, isUnion := p.Unions[l[0]]; !isUnion {
			continue
		}
		parents := p.parentsOf(l[0])
		if len(parents) > 0 {
			return parents[0], true
		}
	}
	return "", false
}

// connected computes the id set reachable from Start over the undirected
// closure of the links, via breadth-first traversal. Start itself is always
// in the set when non-empty.
func (p *Payload) connected() map[string]bool {
	seen := map[string]bool{}
	if p.Start == "" {
		return seen
	}

	adj := map[string][]string{}
	for _, l := range p.Links {
		adj[l[0]] = append(adj[l[0]], l[1])
		adj[l[1]] = append(adj[l[1]], l[0])
	}

	queue := []string{p.Start}
	seen[p.Start] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// prune deletes every person and union unreachable from Start, plus links
// touching them, and clears family pointers at deleted unions. Pruning is a
// fixed point: running it twice yields the same sets.
func (p *Payload) prune() {
	keep := p.connected()

	for id := range p.Persons {
		if !keep[id] {
			delete(p.Persons, id)
			p.removeLinksTouching(id)
		}
	}
	for id := range p.Unions {
		if !keep[id] {
			delete(p.Unions, id)
			p.removeLinksTouching(id)
		}
	}

	// Family pointers must correspond to unions still present.
	for id, person := range p.Persons {
		changed := false
		if person.OwnFamily != "" {
			if _, ok := p.Unions[person.OwnFamily]; !ok {
				person.OwnFamily = ""
				changed = true
			}
		}
		if person.ParentFamily != "" {
			if _, ok := p.Unions[person.ParentFamily]; !ok {
				person.ParentFamily = ""
				changed = true
			}
		}
		if changed {
			p.Persons[id] = person
		}
	}
}

// descendants returns the set of persons below the given person, following
// ownFamily→child edges forward.
func (p *Payload) descendants(personID string) map[string]bool {
	out := map[string]bool{}
	queue := []string{personID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		person, ok := p.Persons[cur]
		if !ok || person.OwnFamily == "" {
			continue
		}
		for _, child := range p.childrenOf(person.OwnFamily) {
			if !out[child] {
				out[child] = true
				queue = append(queue, child)
			}
		}
	}
	return out
}
