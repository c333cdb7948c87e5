package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
)

func newCreateCmd(flags *rootFlags) *cobra.Command {
	var (
		typeID     string
		rendererID string
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new graph document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			a, err := newApp(ctx, flags.config)
			if err != nil {
				return err
			}
			defer a.Close()

			gt, ok := document.BuiltinTypes().Lookup(typeID)
			if !ok {
				return fmt.Errorf("unknown graph type %q (see 'foundrygraph list --types')", typeID)
			}
			if rendererID == "" {
				rendererID = gt.DefaultRenderer
			}

			d, err := document.NewDocument(gt, rendererID, args[0], flags.principal)
			if err != nil {
				return err
			}
			entry, err := a.registry.UpsertGraph(ctx, flags.principal, d)
			if err != nil {
				return err
			}

			logger.Debug("graph created", "id", d.ID, "type", typeID, "renderer", rendererID)
			fmt.Fprintln(cmd.OutOrStdout(), successf("created %s (%s)",
				StyleHighlight.Render(args[0]), StyleDim.Render(entry.ID)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeID, "type", "t", "generic", "graph type id")
	cmd.Flags().StringVarP(&rendererID, "renderer", "r", "", "renderer id (default: the type's default)")
	return cmd
}

func newShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a graph document",
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

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, StyleTitle.Render(d.Name))
			fmt.Fprintf(out, "%s %s\n", styleHeader.Render("id:"), StyleValue.Render(d.ID))
			fmt.Fprintf(out, "%s %s (%s)\n", styleHeader.Render("type:"),
				StyleValue.Render(d.GraphTypeID), StyleDim.Render(d.RendererID))
			if d.Description != "" {
				fmt.Fprintf(out, "%s %s\n", styleHeader.Render("description:"), d.Description)
			}
			fmt.Fprintf(out, "%s %d relation kinds, schema v%d\n",
				styleHeader.Render("vocabulary:"), len(d.Relations), d.SchemaVersion)
			fmt.Fprintf(out, "%s %s\n", styleHeader.Render("data:"), StyleDim.Render(fmt.Sprintf("%d bytes", len(d.Data))))
			return nil
		},
	}
}

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a graph from the registry (the document file is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, flags.config)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.registry.DeleteGraph(ctx, flags.principal, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successf("deleted %s", StyleHighlight.Render(args[0])))
			return nil
		},
	}
}
