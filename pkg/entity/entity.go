// Package entity defines the boundary to the host's real-world entities.
//
// Graph documents reference people, places, objects, and journal documents
// owned by the host application. The core never stores those entities - it
// stores opaque references ([Ref]) and resolves them through a [Resolver]
// supplied by the host. Resolution may fail at any time (the entity was
// deleted elsewhere); callers must treat failures as user-visible warnings
// and abort the triggering gesture without partial mutation.
package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Entity kinds understood by the drop/add contract. A document's graph type
// restricts which kinds may be dropped onto it via its allowed-entities list.
const (
	KindActor    = "actor"
	KindPlace    = "place"
	KindItem     = "item"
	KindDocument = "document"
)

// ErrNotResolvable is returned by resolvers when a reference no longer points
// at a live entity.
var ErrNotResolvable = errors.New("entity reference cannot be resolved")

// Ref is an opaque, stable handle to a host entity.
//
// The wire form is "kind:key" (e.g. "actor:xKq2mP"). Refs compare by value;
// two nodes holding equal refs represent the same real-world entity even if
// they are distinct nodes in the same document.
type Ref struct {
	Kind string `json:"kind" bson:"kind"`
	Key  string `json:"key" bson:"key"`
}

// ParseRef parses the "kind:key" wire form.
func ParseRef(s string) (Ref, error) {
	kind, key, ok := strings.Cut(s, ":")
	if !ok || kind == "" || key == "" {
		return Ref{}, fmt.Errorf("malformed entity ref %q", s)
	}
	return Ref{Kind: kind, Key: key}, nil
}

// String returns the "kind:key" wire form.
func (r Ref) String() string { return r.Kind + ":" + r.Key }

// IsZero reports whether the ref is empty (freehand node, no backing entity).
func (r Ref) IsZero() bool { return r.Kind == "" && r.Key == "" }

// Resolved is the minimal entity projection the core needs for display.
type Resolved struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Resolver resolves refs to displayable entities. Implemented by the host.
// Resolve may block (the host may need a storage round-trip), so it takes a
// context.
type Resolver interface {
	Resolve(ctx context.Context, ref Ref) (Resolved, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ref Ref) (Resolved, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, ref Ref) (Resolved, error) {
	return f(ctx, ref)
}

// StaticResolver resolves refs from a fixed in-memory table.
// Used in tests and by the CLI when no host is attached.
type StaticResolver map[Ref]Resolved

// Resolve returns the table entry or ErrNotResolvable.
func (s StaticResolver) Resolve(ctx context.Context, ref Ref) (Resolved, error) {
	if r, ok := s[ref]; ok {
		return r, nil
	}
	return Resolved{}, fmt.Errorf("%w: %s", ErrNotResolvable, ref)
}
