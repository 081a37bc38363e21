package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/istina-lab/adis/internal/config"
	"github.com/istina-lab/adis/internal/runner"
	"github.com/istina-lab/adis/internal/score"
)

func newRunCmd() *cobra.Command {
	cfg := config.Default()
	var configFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the disambiguation pipeline",
		Long: `Run ingests the mention corpus, deduplicates publications, resolves
every author mention with the configured scoring backend, and writes the
decision trace, review queue, results, and run manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				// File first, then flags override.
				fileCfg := config.Default()
				if err := fileCfg.LoadFile(configFile); err != nil {
					return err
				}
				overlayChanged(cmd, &fileCfg, cfg)
				cfg = fileCfg
			}
			if !cmd.Flags().Changed("accept-threshold") && !cmd.Flags().Changed("reject-threshold") {
				cfg.AcceptThreshold, cfg.RejectThreshold = config.DefaultThresholds(cfg.Mode)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			sum, err := runner.New(cfg, slog.Default()).Run(cmd.Context())
			if err != nil {
				return err
			}

			c := sum.Manifest.Counts
			fmt.Fprintf(cmd.OutOrStdout(),
				"run %s: %d publications (%d duplicates), %d mentions: %d merged, %d new, %d review\n",
				sum.Manifest.RunID, c.Publications, c.Duplicates, c.Mentions, c.Merged, c.Created, c.Unknown)
			fmt.Fprintf(cmd.OutOrStdout(), "trace: %s\nresults: %s\nmanifest: %s\n",
				sum.TracePath, sum.ResultsPath, sum.ManifestPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "TOML config file (flags override)")
	f.StringVar(&cfg.CrossrefAuthors, "crossref-authors", "", "mention records JSON file (required)")
	f.StringVar(&cfg.DOIs, "dois", "", "DOI list JSON file fixing the processing order")
	f.StringVar(&cfg.MUTablePath, "mu-table", "", "MU probability table for fs mode")
	f.StringVar(&cfg.Mode, "mode", score.ModeBaseline, "scoring backend: baseline or fs")
	f.Float64Var(&cfg.AcceptThreshold, "accept-threshold", config.BaselineAccept, "merge at or above this score")
	f.Float64Var(&cfg.RejectThreshold, "reject-threshold", config.BaselineReject, "new profile at or below this score")
	f.Float64Var(&cfg.TitleThreshold, "title-threshold", config.DefaultTitleThreshold, "fuzzy title duplicate threshold")
	f.Int64Var(&cfg.Seed, "seed", config.DefaultSeed, "run seed for logical timestamps")
	f.StringVar(&cfg.RunID, "run-id", "", "run identifier (random when empty)")
	f.StringVar(&cfg.RedactionSalt, "redaction-salt", "", "salt for name hashing in the trace")
	f.IntVar(&cfg.Limit, "limit", 0, "cap on publications processed, 0 for all")
	f.IntVar(&cfg.MaxWorkers, "max-workers", cfg.MaxWorkers, "prepare worker pool size")
	f.StringVar(&cfg.TraceJSONL, "trace-jsonl", cfg.TraceJSONL, "decision trace output")
	f.StringVar(&cfg.ReviewJSONL, "review-jsonl", cfg.ReviewJSONL, "review queue output")
	f.StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "output directory")

	return cmd
}

// overlayChanged copies every flag-set field from flags onto dst, so the
// precedence is defaults < config file < flags.
func overlayChanged(cmd *cobra.Command, dst *config.RunConfig, flags config.RunConfig) {
	set := map[string]func(){
		"crossref-authors": func() { dst.CrossrefAuthors = flags.CrossrefAuthors },
		"dois":             func() { dst.DOIs = flags.DOIs },
		"mu-table":         func() { dst.MUTablePath = flags.MUTablePath },
		"mode":             func() { dst.Mode = flags.Mode },
		"accept-threshold": func() { dst.AcceptThreshold = flags.AcceptThreshold },
		"reject-threshold": func() { dst.RejectThreshold = flags.RejectThreshold },
		"title-threshold":  func() { dst.TitleThreshold = flags.TitleThreshold },
		"seed":             func() { dst.Seed = flags.Seed },
		"run-id":           func() { dst.RunID = flags.RunID },
		"redaction-salt":   func() { dst.RedactionSalt = flags.RedactionSalt },
		"limit":            func() { dst.Limit = flags.Limit },
		"max-workers":      func() { dst.MaxWorkers = flags.MaxWorkers },
		"trace-jsonl":      func() { dst.TraceJSONL = flags.TraceJSONL },
		"review-jsonl":     func() { dst.ReviewJSONL = flags.ReviewJSONL },
		"output":           func() { dst.OutputDir = flags.OutputDir },
	}
	for name, apply := range set {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
}
