package score

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/istina-lab/adis/internal/compare"
)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := New(DefaultWeights(), DefaultMUTable())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestDefaultWeightsValid(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
}

func TestWeightsValidate(t *testing.T) {
	w := DefaultWeights()
	w[compare.FeatureName] = 0.50
	if err := w.Validate(); !errors.Is(err, ErrWeights) {
		t.Errorf("sum 1.1 accepted: %v", err)
	}

	w = DefaultWeights()
	delete(w, compare.FeatureJournal)
	if err := w.Validate(); err == nil {
		t.Error("missing feature accepted")
	}
}

func TestScoreBaselineORCIDMatch(t *testing.T) {
	// Strong name plus ORCID match, no history evidence.
	v := compare.Vector{
		Name:        compare.Comparison{Sim: 0.90, Bin: compare.BinHigh},
		ORCID:       compare.Comparison{Sim: 1.0, Bin: compare.BinMatch},
		Coauthor:    compare.Comparison{Sim: 0, Bin: compare.BinNone},
		Journal:     compare.Comparison{Sim: 0, Bin: compare.BinNone},
		Affiliation: compare.Comparison{Sim: 0, Bin: compare.BinNone},
	}
	total, bd := newScorer(t).ScoreBaseline(v)
	if math.Abs(total-0.66) > 1e-9 {
		t.Errorf("total = %f, want 0.66", total)
	}
	if c := bd[compare.FeatureName]; math.Abs(c.Contribution-0.36) > 1e-9 {
		t.Errorf("name contribution = %f, want 0.36", c.Contribution)
	}
	if c := bd[compare.FeatureORCID]; math.Abs(c.Contribution-0.30) > 1e-9 {
		t.Errorf("orcid contribution = %f, want 0.30", c.Contribution)
	}
	if len(bd) != len(compare.Features) {
		t.Errorf("breakdown has %d entries, want %d", len(bd), len(compare.Features))
	}
}

func TestScoreBaselineMissingORCIDNeutral(t *testing.T) {
	// A missing ORCID contributes 0.5 * 0.30, not zero.
	v := compare.Vector{
		Name:  compare.Comparison{Sim: 0.80, Bin: compare.BinMedium},
		ORCID: compare.Comparison{Sim: 0.5, Bin: compare.BinMissing},
	}
	total, _ := newScorer(t).ScoreBaseline(v)
	want := 0.40*0.80 + 0.30*0.5
	if math.Abs(total-want) > 1e-9 {
		t.Errorf("total = %f, want %f", total, want)
	}
}

func TestScoreFSSigns(t *testing.T) {
	s := newScorer(t)

	strong := compare.Vector{
		Name:        compare.Comparison{Sim: 1.0, Bin: compare.BinExact},
		ORCID:       compare.Comparison{Sim: 1.0, Bin: compare.BinMatch},
		Coauthor:    compare.Comparison{Sim: 0.6, Bin: compare.BinHigh},
		Journal:     compare.Comparison{Sim: 0.5, Bin: compare.BinHigh},
		Affiliation: compare.Comparison{Sim: 1.0, Bin: compare.BinExact},
	}
	total, bd, err := s.ScoreFS(strong)
	if err != nil {
		t.Fatalf("ScoreFS: %v", err)
	}
	if total <= 3.0 {
		t.Errorf("agreeing vector scored %f, want strongly positive", total)
	}
	if bd[compare.FeatureORCID].Contribution <= 0 {
		t.Errorf("orcid match weight = %f, want positive", bd[compare.FeatureORCID].Contribution)
	}

	weak := compare.Vector{
		Name:        compare.Comparison{Sim: 0.3, Bin: compare.BinNone},
		ORCID:       compare.Comparison{Sim: 0, Bin: compare.BinMismatch},
		Coauthor:    compare.Comparison{Sim: 0, Bin: compare.BinNone},
		Journal:     compare.Comparison{Sim: 0, Bin: compare.BinNone},
		Affiliation: compare.Comparison{Sim: 0, Bin: compare.BinNone},
	}
	total, bd, err = s.ScoreFS(weak)
	if err != nil {
		t.Fatalf("ScoreFS: %v", err)
	}
	if total >= -3.0 {
		t.Errorf("disagreeing vector scored %f, want strongly negative", total)
	}
	if bd[compare.FeatureORCID].Contribution >= 0 {
		t.Errorf("orcid mismatch weight = %f, want negative", bd[compare.FeatureORCID].Contribution)
	}
}

func TestScoreFSMissingORCIDNearZero(t *testing.T) {
	s := newScorer(t)
	v := compare.Vector{
		Name:        compare.Comparison{Sim: 1.0, Bin: compare.BinExact},
		ORCID:       compare.Comparison{Sim: 0.5, Bin: compare.BinMissing},
		Coauthor:    compare.Comparison{Sim: 0, Bin: compare.BinNone},
		Journal:     compare.Comparison{Sim: 0, Bin: compare.BinNone},
		Affiliation: compare.Comparison{Sim: 0, Bin: compare.BinNone},
	}
	_, bd, err := s.ScoreFS(v)
	if err != nil {
		t.Fatalf("ScoreFS: %v", err)
	}
	if w := bd[compare.FeatureORCID].Contribution; math.Abs(w) > 0.1 {
		t.Errorf("missing orcid weight = %f, want near zero", w)
	}
}

func TestScoreFSNilTable(t *testing.T) {
	s, err := New(DefaultWeights(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := s.ScoreFS(compare.Vector{}); err == nil {
		t.Error("nil mu table accepted by ScoreFS")
	}
}

func TestLLREpsilonFloor(t *testing.T) {
	// Zero u is floored, not a division by zero.
	w := MU{M: 0.5, U: 0}.LLR()
	if math.IsInf(w, 0) || math.IsNaN(w) {
		t.Fatalf("LLR with zero u not finite: %f", w)
	}
	want := math.Log2(0.5 / llrEpsilon)
	if math.Abs(w-want) > 1e-9 {
		t.Errorf("LLR = %f, want %f", w, want)
	}
}

func TestDefaultMUTableComplete(t *testing.T) {
	if err := DefaultMUTable().Validate(); err != nil {
		t.Fatalf("default mu table invalid: %v", err)
	}
}

func TestMUTableValidateMissingBin(t *testing.T) {
	table := DefaultMUTable()
	delete(table[compare.FeatureName], compare.BinMedium)
	if err := table.Validate(); !errors.Is(err, ErrMUIncomplete) {
		t.Errorf("missing bin accepted: %v", err)
	}

	table = DefaultMUTable()
	delete(table, compare.FeatureJournal)
	if err := table.Validate(); !errors.Is(err, ErrMUIncomplete) {
		t.Errorf("missing feature accepted: %v", err)
	}
}

func TestMUTableValidateBadProbability(t *testing.T) {
	table := DefaultMUTable()
	table[compare.FeatureName][compare.BinExact] = MU{M: 1.5, U: 0.02}
	if err := table.Validate(); err == nil {
		t.Error("m > 1 accepted")
	}

	table = DefaultMUTable()
	table[compare.FeatureORCID][compare.BinMatch] = MU{M: math.NaN(), U: 0.001}
	if err := table.Validate(); err == nil {
		t.Error("NaN m accepted")
	}
}

func TestLoadMUTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mu.json")

	data, err := json.Marshal(DefaultMUTable())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	table, err := LoadMUTable(path)
	if err != nil {
		t.Fatalf("LoadMUTable: %v", err)
	}
	got := table[compare.FeatureName][compare.BinExact]
	want := DefaultMUTable()[compare.FeatureName][compare.BinExact]
	if got != want {
		t.Errorf("round-trip name/exact = %+v, want %+v", got, want)
	}
}

func TestLoadMUTableErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadMUTable(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("missing file accepted")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadMUTable(bad); err == nil {
		t.Error("malformed json accepted")
	}

	incomplete := filepath.Join(dir, "incomplete.json")
	table := DefaultMUTable()
	delete(table[compare.FeatureCoauthor], compare.BinLow)
	data, err := json.Marshal(table)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(incomplete, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadMUTable(incomplete); !errors.Is(err, ErrMUIncomplete) {
		t.Errorf("incomplete table accepted: %v", err)
	}
}
