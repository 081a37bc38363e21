// Package cli wires the cobra command tree: adis run (the pipeline) and
// adis eval (gold-set evaluation).
package cli

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the adis command tree.
func NewRootCmd() *cobra.Command {
	var verbose, debug bool

	cmd := &cobra.Command{
		Use:   "adis",
		Short: "Incremental author name disambiguation",
		Long: `adis resolves author mentions in bibliographic records to persistent
author profiles, incrementally: each mention is blocked against the live
profile index, scored, and merged, created, or routed to review.

Examples:
  adis run --crossref-authors authors.json --dois dois.json
  adis run --crossref-authors authors.json --mode fs --mu-table mu.json
  adis eval --results out/results.json --crossref-authors authors.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose, debug)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging with source locations")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newEvalCmd())
	return cmd
}

// setupLogging installs the process logger: text on a terminal, JSON when
// piped.
func setupLogging(verbose, debug bool) {
	level := slog.LevelInfo
	if verbose || debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: debug}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
