// Package cmd provides the CLI commands for codanna.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bartolli/codanna/internal/logging"
	"github.com/bartolli/codanna/pkg/version"
)

// Debug logging flag, mirroring the teacher's --debug convention.
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the codanna CLI. Unlike the
// teacher's amanmcp root command, this one never runs a smart default
// flow of its own (no preflight checks, no MCP server): spec.md §1
// scopes this core to the indexing pipeline and the Facade, so every
// subcommand exercises the Facade directly and explicitly.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codanna",
		Short: "Source-code intelligence indexing core",
		Long: `codanna builds and serves a cross-language symbol index: a
DocumentIndex of symbols and relationships plus an optional
EmbeddingStore for semantic search, kept current by a live file
watcher and an out-of-process hot reloader.

This binary is a thin exerciser around the Facade; it contains no
indexing logic of its own.`,
		Version: version.Version,
	}
	cmd.SetVersionTemplate("codanna version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to .codanna/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}
