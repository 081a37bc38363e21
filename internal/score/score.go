// Package score implements the two scoring backends over comparison
// vectors: a weighted-sum baseline in [0,1] and an unbounded Fellegi-Sunter
// log-likelihood-ratio backend. Both backends are always available;
// the decision engine picks one per run. Both produce the same per-feature
// component breakdown shape for the decision trace.
package score

import (
	"errors"
	"fmt"
	"math"

	"github.com/istina-lab/adis/internal/compare"
)

// Mode names the scoring backend for a run.
const (
	ModeBaseline = "baseline"
	ModeFS       = "fs"
)

// ErrWeights is returned when the baseline weights do not sum to 1.
var ErrWeights = errors.New("similarity weights must sum to 1.0")

// Weights are the baseline backend's per-feature weights.
type Weights map[string]float64

// DefaultWeights returns the fixed baseline weights.
func DefaultWeights() Weights {
	return Weights{
		compare.FeatureName:        0.40,
		compare.FeatureORCID:       0.30,
		compare.FeatureCoauthor:    0.15,
		compare.FeatureJournal:     0.10,
		compare.FeatureAffiliation: 0.05,
	}
}

// Validate checks the weights cover exactly the known features and sum to 1.
func (w Weights) Validate() error {
	var sum float64
	for _, f := range compare.Features {
		wt, ok := w[f]
		if !ok {
			return fmt.Errorf("missing weight for feature %q", f)
		}
		if wt < 0 {
			return fmt.Errorf("negative weight for feature %q", f)
		}
		sum += wt
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("%w: got %.6f", ErrWeights, sum)
	}
	return nil
}

// Component is one feature's contribution to a score: the comparator's raw
// similarity and the backend-specific contribution (weighted similarity for
// baseline, LLR weight for Fellegi-Sunter).
type Component struct {
	Raw          float64 `json:"raw"`
	Bin          string  `json:"bin"`
	Contribution float64 `json:"contribution"`
}

// Breakdown maps feature name to component. Serialized into every trace
// record.
type Breakdown map[string]Component

// Scorer exposes both backends over a fixed weight set and MU table.
type Scorer struct {
	weights Weights
	mu      MUTable
}

// New builds a scorer. The MU table may be nil when only the baseline
// backend will be used; ScoreFS on a nil table is an error.
func New(weights Weights, mu MUTable) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if mu != nil {
		if err := mu.Validate(); err != nil {
			return nil, err
		}
	}
	return &Scorer{weights: weights, mu: mu}, nil
}

// ScoreBaseline computes the weighted sum of raw similarities. The missing
// ORCID bin scores 0.5 at the comparator, so an absent ORCID contributes
// its weight's neutral midpoint rather than zero.
func (s *Scorer) ScoreBaseline(v compare.Vector) (float64, Breakdown) {
	bd := make(Breakdown, len(compare.Features))
	var total float64
	for _, f := range compare.Features {
		c := v.Get(f)
		contrib := c.Sim * s.weights[f]
		bd[f] = Component{Raw: c.Sim, Bin: c.Bin, Contribution: contrib}
		total += contrib
	}
	return total, bd
}

// ScoreFS sums per-feature log2(m/u) evidence weights looked up by bin.
// A lookup miss is a configuration error: the table is validated for full
// bin coverage at load time, so a miss here means the table and the
// comparators disagree.
func (s *Scorer) ScoreFS(v compare.Vector) (float64, Breakdown, error) {
	if s.mu == nil {
		return 0, nil, errors.New("fellegi-sunter backend requires an mu table")
	}
	bd := make(Breakdown, len(compare.Features))
	var total float64
	for _, f := range compare.Features {
		c := v.Get(f)
		mu, ok := s.mu.lookup(f, c.Bin)
		if !ok {
			return 0, nil, fmt.Errorf("%w: feature %q bin %q", ErrMUIncomplete, f, c.Bin)
		}
		w := mu.LLR()
		bd[f] = Component{Raw: c.Sim, Bin: c.Bin, Contribution: w}
		total += w
	}
	return total, bd, nil
}
