package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version. Called by
// the main package with values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	verbose   bool
	config    string
	principal string
}

// Execute runs the foundrygraph CLI.
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext. --principal sets the acting user for permission checks;
// it defaults to the OS username.
func Execute(ctx context.Context) error {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "foundrygraph",
		Short:        "foundrygraph manages relationship-graph documents",
		Long:         `foundrygraph is a CLI for creating, editing, and exporting relationship graphs: free-form networks, family trees, investigation boards, maps, and timelines.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if flags.verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(os.Stderr, level)
			ctx := withLogger(cmd.Context(), logger)
			ctx = charmlog.WithContext(ctx, logger)
			cmd.SetContext(ctx)

			if flags.principal == "" {
				flags.principal = osUsername()
			}
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("foundrygraph %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&flags.config, "config", "", "config file path")
	root.PersistentFlags().StringVar(&flags.principal, "principal", "", "acting user for permission checks (default: OS user)")

	root.AddCommand(newCreateCmd(flags))
	root.AddCommand(newListCmd(flags))
	root.AddCommand(newShowCmd(flags))
	root.AddCommand(newAddNodeCmd(flags))
	root.AddCommand(newLinkCmd(flags))
	root.AddCommand(newDeleteCmd(flags))
	root.AddCommand(newExportCmd(flags))
	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newCacheCmd(flags))

	return root.ExecuteContext(ctx)
}

func osUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	return "local"
}
