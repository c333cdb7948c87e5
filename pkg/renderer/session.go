package renderer

import "github.com/gioppoluca/foundry-graph-sub000/pkg/document"

// Session holds the mutable state of one editing session: whether linking
// mode is active, the held link source, and the selected relation kind.
//
// Scoping this to an explicit object (instead of variant-global state) keeps
// concurrent sessions representable, even though the core assumes a single
// writer per document today. A Session is not safe for concurrent use.
type Session struct {
	linking  bool
	source   string
	relation *document.RelationKind
}

// NewSession creates an idle session.
func NewSession() *Session { return &Session{} }

// SetLinkingMode toggles linking mode. Turning it off clears any held source
// and returns the session fully to idle; there are no other cleanup
// obligations (cancellation is synchronous).
func (s *Session) SetLinkingMode(enabled bool) {
	s.linking = enabled
	if !enabled {
		s.source = ""
	}
}

// LinkingMode reports whether node clicks are interpreted as link gestures.
func (s *Session) LinkingMode() bool { return s.linking }

// HoldSource captures the first endpoint of a link gesture.
func (s *Session) HoldSource(nodeID string) { s.source = nodeID }

// Source returns the held link source, if any.
func (s *Session) Source() (string, bool) { return s.source, s.source != "" }

// ClearSource releases the held source but stays in linking mode, returning
// to the awaiting-first-click sub-state.
func (s *Session) ClearSource() { s.source = "" }

// SetRelationData selects the relation kind used for subsequently created
// links. Pass nil to deselect.
func (s *Session) SetRelationData(kind *document.RelationKind) {
	if kind == nil {
		s.relation = nil
		return
	}
	k := *kind
	s.relation = &k
}

// Relation returns the selected relation kind, if any.
func (s *Session) Relation() (document.RelationKind, bool) {
	if s.relation == nil {
		return document.RelationKind{}, false
	}
	return *s.relation, true
}
