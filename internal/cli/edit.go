package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
)

func newAddNodeCmd(flags *rootFlags) *cobra.Command {
	var (
		label string
		ref   string
		kind  string
		x, y  float64
	)

	cmd := &cobra.Command{
		Use:   "add-node GRAPH_ID",
		Short: "Add a node to a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, flags.config)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.registry.GetGraph(ctx, flags.principal, args[0])
			if err != nil {
				return err
			}
			v, err := a.registry.Variant(d)
			if err != nil {
				return err
			}

			spec := renderer.NodeSpec{Label: label, Kind: kind, X: x, Y: y}
			if ref != "" {
				r, err := entity.ParseRef(ref)
				if err != nil {
					return err
				}
				spec.Ref = r
				if spec.Kind == "" {
					spec.Kind = r.Kind
				}
			}

			if err := v.AddNode(d, spec); err != nil {
				return err
			}
			if _, err := a.registry.UpsertGraph(ctx, flags.principal, d); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successf("added %s to %s",
				StyleHighlight.Render(label), StyleDim.Render(args[0])))
			return nil
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "node label")
	cmd.Flags().StringVar(&ref, "ref", "", "entity reference (kind:key)")
	cmd.Flags().StringVar(&kind, "kind", "", "entity kind for allow-list checks")
	cmd.Flags().Float64Var(&x, "x", 0, "drop x position")
	cmd.Flags().Float64Var(&y, "y", 0, "drop y position")
	return cmd
}

// linker is implemented by every variant with the two-endpoint linking
// vocabulary. The family tree is the exception: its edges come from the
// add-child/add-parent/add-spouse gestures, not free linking.
type linker interface {
	CreateLink(d *document.GraphDocument, source, target string, kind document.RelationKind) error
}

func newLinkCmd(flags *rootFlags) *cobra.Command {
	var relationID string

	cmd := &cobra.Command{
		Use:   "link GRAPH_ID SOURCE_NODE TARGET_NODE",
		Short: "Link two nodes with a relation from the graph's vocabulary",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, flags.config)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.registry.GetGraph(ctx, flags.principal, args[0])
			if err != nil {
				return err
			}
			v, err := a.registry.Variant(d)
			if err != nil {
				return err
			}
			l, ok := v.(linker)
			if !ok {
				return fmt.Errorf("renderer %q does not support free linking", d.RendererID)
			}

			kind, ok := d.Relation(relationID)
			if !ok {
				return fmt.Errorf("relation %q not in the graph's vocabulary", relationID)
			}

			if err := l.CreateLink(d, args[1], args[2], kind); err != nil {
				return err
			}
			if _, err := a.registry.UpsertGraph(ctx, flags.principal, d); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successf("linked %s %s %s",
				StyleHighlight.Render(args[1]), StyleDim.Render("→"), StyleHighlight.Render(args[2])))
			return nil
		},
	}

	cmd.Flags().StringVarP(&relationID, "relation", "r", "", "relation kind id (required)")
	_ = cmd.MarkFlagRequired("relation")
	return cmd
}
