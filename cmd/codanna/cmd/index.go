package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bartolli/codanna/internal/facade"
)

func newIndexCmd() *cobra.Command {
	var force bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory (spec.md index_directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			p, err := openProject(root)
			if err != nil {
				return fmt.Errorf("failed to open project: %w", err)
			}
			defer p.Close()

			stats, err := p.facade.IndexDirectory(cmd.Context(), root, facade.DirectoryOptions{
				Force:  force,
				DryRun: dryRun,
			})
			if err != nil {
				return fmt.Errorf("indexing failed: %w", err)
			}

			slog.Info("index complete",
				slog.Int("files_discovered", stats.FilesDiscovered),
				slog.Int("files_read", stats.FilesRead),
				slog.Int("files_skipped", stats.FilesSkipped),
				slog.Int("errors", stats.Errors))
			fmt.Printf("discovered=%d read=%d skipped=%d errors=%d\n",
				stats.FilesDiscovered, stats.FilesRead, stats.FilesSkipped, stats.Errors)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-index every file, ignoring content hashes")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}
