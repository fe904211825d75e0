package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [path]",
		Short: "Show index size and file coverage for a project",
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

			stats, err := p.facade.Stats()
			if err != nil {
				return fmt.Errorf("failed to read stats: %w", err)
			}

			fmt.Printf("symbols=%d relationships=%d files=%d documents=%d indexed_paths=%d\n",
				stats.SymbolCount, stats.RelationshipCount, stats.FileCount, stats.DocumentCount,
				len(p.facade.IndexedPaths()))
			return nil
		},
	}
}
