package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/istina-lab/adis/internal/config"
	"github.com/istina-lab/adis/internal/runner"
)

func newEvalCmd() *cobra.Command {
	var (
		resultsPath  string
		mentionsPath string
		doisPath     string
		limit        int
		minMentions  int
		format       string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score a run against the ORCID gold set",
		Long: `Eval rebuilds the ORCID ground truth from the mention corpus, joins it
with a run's results.json, and reports pairwise and B-cubed metrics. Pass
the same --dois and --limit as the run so mention ids line up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runner.Eval(resultsPath, mentionsPath, doisPath, limit, minMentions)
			if err != nil {
				return err
			}

			var out []byte
			switch format {
			case "json":
				if out, err = json.MarshalIndent(res, "", "  "); err != nil {
					return err
				}
			case "yaml":
				if out, err = yaml.Marshal(res); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: unknown format %q", config.ErrConfig, format)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&resultsPath, "results", "results.json", "results.json from a run")
	f.StringVar(&mentionsPath, "crossref-authors", "", "mention records JSON file (required)")
	f.StringVar(&doisPath, "dois", "", "DOI list used by the run, if any")
	f.IntVar(&limit, "limit", 0, "publication limit used by the run")
	f.IntVar(&minMentions, "min-mentions", config.DefaultMinMentions, "minimum mentions per ORCID in the gold set")
	f.StringVar(&format, "format", "json", "output format: json or yaml")
	_ = cmd.MarkFlagRequired("crossref-authors")

	return cmd
}
