package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/export"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export GRAPH_ID",
		Short: "Export a graph as DOT, SVG, or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			a, err := newApp(ctx, flags.config)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.registry.GetGraph(ctx, flags.principal, args[0])
			if err != nil {
				return err
			}
			revision := 0
			if entries, err := a.registry.GetAllGraphs(ctx, flags.principal); err == nil {
				for _, e := range entries {
					if e.ID == args[0] {
						revision = e.Revision
						break
					}
				}
			}

			sp := newSpinner(ctx, fmt.Sprintf("rendering %s", format))
			sp.Start()
			p := newProgress(logger)
			data, err := a.exporter.Export(ctx, d, revision, format)
			sp.Stop()
			if err != nil {
				return err
			}
			p.done(fmt.Sprintf("Rendered %s as %s", d.Name, strings.ToUpper(format)))

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successf("wrote %s", StyleHighlight.Render(output)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", export.FormatSVG, "export format: dot, svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
