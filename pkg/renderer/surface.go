package renderer

import "github.com/gioppoluca/foundry-graph-sub000/pkg/document"

// Surface is the small directive set through which variants talk to the
// external rendering engine. Implementations draw; variants decide what to
// draw.
//
// A surface is single-use per frame: Reset, zero or more Draw* calls, Finish.
// Callers must not pipeline overlapping frames on the same surface.
type Surface interface {
	// Reset clears the surface and any listeners attached by a previous
	// frame. Variants call it at the top of every Render.
	Reset()

	// DrawBackground places the document background, scaled to the frame.
	DrawBackground(bg document.Background, width, height float64)

	// DrawNode places one node.
	DrawNode(n NodeDirective)

	// DrawEdge places one edge between two already-drawn nodes.
	DrawEdge(e EdgeDirective)

	// Finish completes the frame.
	Finish() error
}

// NodeDirective is the drawing description of one node.
type NodeDirective struct {
	ID     string
	Label  string
	Image  string
	Kind   string
	X, Y   float64
	Pinned bool // manually placed; position is authoritative
}

// EdgeDirective is the drawing description of one edge.
type EdgeDirective struct {
	From, To    string
	Label       string
	Color       string
	Style       string // document.LineSolid, LineDashed, LineDotted
	StrokeWidth float64
	Arrow       bool
}

// NullSurface discards all directives. Used in tests and by GraphData paths
// that need a render pass without visual output.
type NullSurface struct {
	Nodes  int
	Edges  int
	Resets int
}

// Reset counts the call.
func (s *NullSurface) Reset() { s.Resets++; s.Nodes = 0; s.Edges = 0 }

// DrawBackground does nothing.
func (s *NullSurface) DrawBackground(bg document.Background, width, height float64) {}

// DrawNode counts the node.
func (s *NullSurface) DrawNode(n NodeDirective) { s.Nodes++ }

// DrawEdge counts the edge.
func (s *NullSurface) DrawEdge(e EdgeDirective) { s.Edges++ }

// Finish does nothing.
func (s *NullSurface) Finish() error { return nil }

var _ Surface = (*NullSurface)(nil)
