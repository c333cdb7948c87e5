package export

import (
	"bytes"
	"fmt"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
)

// DOTSurface is a drawing surface that records directives into Graphviz DOT
// text. Any variant can render onto it, which is how exports stay independent
// of the visual paradigm.
type DOTSurface struct {
	nodes []renderer.NodeDirective
	edges []renderer.EdgeDirective
	bg    *document.Background
	w, h  float64
	done  bool
}

// NewDOTSurface creates an empty DOT surface.
func NewDOTSurface() *DOTSurface { return &DOTSurface{} }

// Reset discards everything drawn so far.
func (s *DOTSurface) Reset() {
	s.nodes = s.nodes[:0]
	s.edges = s.edges[:0]
	s.bg = nil
	s.done = false
}

// DrawBackground records the canvas background.
func (s *DOTSurface) DrawBackground(bg document.Background, w, h float64) {
	s.bg = &bg
	s.w, s.h = w, h
}

// DrawNode records a node directive.
func (s *DOTSurface) DrawNode(n renderer.NodeDirective) {
	s.nodes = append(s.nodes, n)
}

// DrawEdge records an edge directive.
func (s *DOTSurface) DrawEdge(e renderer.EdgeDirective) {
	s.edges = append(s.edges, e)
}

// Finish marks the frame complete.
func (s *DOTSurface) Finish() error {
	s.done = true
	return nil
}

// DOT serializes the recorded frame as a Graphviz digraph.
func (s *DOTSurface) DOT() string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("\n")

	for _, n := range s.nodes {
		label := n.Label
		if label == "" {
			label = n.ID
		}
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if n.Image != "" {
			attrs = append(attrs, fmt.Sprintf("image=%q", n.Image))
		}
		if n.Pinned {
			attrs = append(attrs, fmt.Sprintf("pos=\"%f,%f!\"", n.X, n.Y))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, joinAttrs(attrs))
	}

	buf.WriteString("\n")
	for _, e := range s.edges {
		attrs := []string{}
		if e.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
		}
		if e.Color != "" {
			attrs = append(attrs, fmt.Sprintf("color=%q", e.Color))
		}
		switch e.Style {
		case document.LineDashed:
			attrs = append(attrs, "style=dashed")
		case document.LineDotted:
			attrs = append(attrs, "style=dotted")
		}
		if !e.Arrow {
			attrs = append(attrs, "dir=none")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, joinAttrs(attrs))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func joinAttrs(attrs []string) string {
	var buf bytes.Buffer
	for i, a := range attrs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a)
	}
	return buf.String()
}

var _ renderer.Surface = (*DOTSurface)(nil)
