package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bartolli/codanna/internal/hotreload"
	"github.com/bartolli/codanna/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a project and keep its index current (spec.md §4.12-§4.13)",
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

			hw, err := watcher.NewHybridWatcher(watcher.Options{
				DebounceWindow: p.settings.DebounceWindow(),
			})
			if err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}

			holder := hotreload.NewHolder(p.facade)
			manager := watcher.NewManager(hw, holder, p.settings, p.root, watcher.ManagerOptions{})
			reloader := hotreload.New(holder, p.metaPath(), p.settings.CheckInterval(), p.reopen)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("watching", slog.String("root", p.root))
			go reloader.Run(ctx)
			return manager.Run(ctx)
		},
	}
}
