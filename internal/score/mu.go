package score

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"

	"github.com/istina-lab/adis/internal/compare"
)

// llrEpsilon floors m and u before the ratio so a zero probability cannot
// produce an infinite weight.
const llrEpsilon = 1e-9

// ErrMUIncomplete is returned when the MU table does not cover every
// (feature, bin) pair the comparators can produce.
var ErrMUIncomplete = errors.New("mu table missing entries")

// MU holds one bin's match and non-match probabilities.
type MU struct {
	M float64 `json:"m"`
	U float64 `json:"u"`
}

// LLR is the Fellegi-Sunter evidence weight log2(m/u), with both
// probabilities floored at llrEpsilon.
func (p MU) LLR() float64 {
	return math.Log2(math.Max(p.M, llrEpsilon) / math.Max(p.U, llrEpsilon))
}

// MUTable maps feature -> bin -> probabilities.
type MUTable map[string]map[string]MU

// LoadMUTable reads and validates an MU table from a JSON file.
func LoadMUTable(path string) (MUTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mu table: %w", err)
	}
	var t MUTable
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse mu table %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("mu table %s: %w", path, err)
	}
	return t, nil
}

// Validate demands an entry for every bin every comparator can produce, and
// rejects probabilities outside (0, 1] or non-finite.
func (t MUTable) Validate() error {
	for _, f := range compare.Features {
		bins, ok := t[f]
		if !ok {
			return fmt.Errorf("%w: feature %q absent", ErrMUIncomplete, f)
		}
		for _, b := range compare.BinsFor(f) {
			mu, ok := bins[b]
			if !ok {
				return fmt.Errorf("%w: feature %q bin %q", ErrMUIncomplete, f, b)
			}
			if err := checkProb(mu.M); err != nil {
				return fmt.Errorf("feature %q bin %q m: %w", f, b, err)
			}
			if err := checkProb(mu.U); err != nil {
				return fmt.Errorf("feature %q bin %q u: %w", f, b, err)
			}
		}
	}
	return nil
}

func checkProb(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return errors.New("not finite")
	}
	if p <= 0 || p > 1 {
		return fmt.Errorf("%g outside (0, 1]", p)
	}
	return nil
}

func (t MUTable) lookup(feature, bin string) (MU, bool) {
	bins, ok := t[feature]
	if !ok {
		return MU{}, false
	}
	mu, ok := bins[bin]
	return mu, ok
}

// DefaultMUTable returns the built-in probabilities used when no table file
// is supplied. Values were fit on an ORCID-grouped sample of the corpus and
// rounded; they are priors, not ground truth.
func DefaultMUTable() MUTable {
	return MUTable{
		compare.FeatureName: {
			compare.BinExact:  {M: 0.70, U: 0.02},
			compare.BinHigh:   {M: 0.20, U: 0.05},
			compare.BinMedium: {M: 0.07, U: 0.13},
			compare.BinLow:    {M: 0.02, U: 0.30},
			compare.BinNone:   {M: 0.01, U: 0.50},
		},
		compare.FeatureORCID: {
			compare.BinMatch:    {M: 0.40, U: 0.001},
			compare.BinMismatch: {M: 0.01, U: 0.40},
			compare.BinMissing:  {M: 0.59, U: 0.599},
		},
		compare.FeatureCoauthor: {
			compare.BinHigh:   {M: 0.35, U: 0.01},
			compare.BinMedium: {M: 0.25, U: 0.04},
			compare.BinLow:    {M: 0.15, U: 0.10},
			compare.BinNone:   {M: 0.25, U: 0.85},
		},
		compare.FeatureJournal: {
			compare.BinHigh:   {M: 0.30, U: 0.03},
			compare.BinMedium: {M: 0.25, U: 0.07},
			compare.BinLow:    {M: 0.15, U: 0.15},
			compare.BinNone:   {M: 0.30, U: 0.75},
		},
		compare.FeatureAffiliation: {
			compare.BinExact:  {M: 0.40, U: 0.02},
			compare.BinHigh:   {M: 0.20, U: 0.04},
			compare.BinMedium: {M: 0.15, U: 0.09},
			compare.BinLow:    {M: 0.10, U: 0.20},
			compare.BinNone:   {M: 0.15, U: 0.65},
		},
	}
}
