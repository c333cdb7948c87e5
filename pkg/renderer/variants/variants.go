// Package variants wires every built-in renderer into a registry. It exists
// so that pkg/renderer can stay free of imports on the concrete variants
// while callers still get a fully populated registry from one place.
package variants

import (
	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/board"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/familytree"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/geo"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/lane"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/network"
)

// All returns a registry with every built-in variant registered.
func All() *renderer.Registry {
	r := renderer.NewRegistry()
	r.Register(document.RendererNetwork, network.NewVariant)
	r.Register(document.RendererFamilyTree, familytree.NewVariant)
	r.Register(document.RendererBoard, board.NewVariant)
	r.Register(document.RendererGeo, geo.NewVariant)
	r.Register(document.RendererLane, lane.NewVariant)
	return r
}
