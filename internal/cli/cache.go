package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gioppoluca/foundry-graph-sub000/internal/config"
)

func newCacheCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the document and export cache",
	}
	cmd.AddCommand(newCacheInfoCmd(flags))
	cmd.AddCommand(newCacheClearCmd(flags))
	return cmd
}

func newCacheInfoCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache backend and location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.config)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", styleHeader.Render("backend:"), StyleValue.Render(cfg.Cache.Backend))
			switch cfg.Cache.Backend {
			case "file":
				dir := cfg.CacheDir()
				fmt.Fprintf(out, "%s %s\n", styleHeader.Render("dir:"), StyleValue.Render(dir))
				if size, count, err := dirStats(dir); err == nil {
					fmt.Fprintf(out, "%s %d entries, %d bytes\n", styleHeader.Render("usage:"), count, size)
				}
			case "redis":
				fmt.Fprintf(out, "%s %s\n", styleHeader.Render("addr:"), StyleValue.Render(cfg.Cache.RedisAddr))
			}
			return nil
		},
	}
}

func newCacheClearCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.config)
			if err != nil {
				return err
			}
			if cfg.Cache.Backend != "file" {
				return fmt.Errorf("cache clear supports the file backend only, not %q", cfg.Cache.Backend)
			}

			dir := cfg.CacheDir()
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("clear cache %s: %w", dir, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successf("cleared %s", StyleHighlight.Render(dir)))
			return nil
		},
	}
}

// dirStats walks the cache directory totaling file sizes and counts.
func dirStats(dir string) (size int64, count int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		if e.IsDir() {
			s, c, err := dirStats(dir + string(os.PathSeparator) + e.Name())
			if err != nil {
				continue
			}
			size += s
			count += c
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		size += info.Size()
		count++
	}
	return size, count, nil
}
