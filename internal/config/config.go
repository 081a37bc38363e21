// Package config holds the immutable run configuration. All defaults are
// centralized here; the CLI layer overlays flags, and an optional TOML file
// overlays before the flags do.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/istina-lab/adis/internal/score"
)

// ErrConfig marks fatal configuration errors. The CLI maps it to exit
// code 2.
var ErrConfig = errors.New("config error")

// Default thresholds per backend.
const (
	BaselineAccept = 0.90
	BaselineReject = 0.20
	FSAccept       = 3.0
	FSReject       = -3.0

	DefaultTitleThreshold = 0.95
	DefaultSeed           = 42
	DefaultMinMentions    = 2
)

// RunConfig is the complete, immutable configuration of one run. Passed by
// value everywhere below the CLI.
type RunConfig struct {
	Mode string `toml:"mode" json:"mode"`

	AcceptThreshold float64 `toml:"accept_threshold" json:"accept_threshold"`
	RejectThreshold float64 `toml:"reject_threshold" json:"reject_threshold"`
	TitleThreshold  float64 `toml:"title_threshold" json:"title_threshold"`

	Seed          int64  `toml:"seed" json:"seed"`
	RunID         string `toml:"run_id" json:"run_id"`
	RedactionSalt string `toml:"redaction_salt" json:"redaction_salt"`

	// Limit caps how many publications are processed; 0 means all.
	Limit      int `toml:"limit" json:"limit"`
	MaxWorkers int `toml:"max_workers" json:"max_workers"`

	CrossrefAuthors string `toml:"crossref_authors" json:"crossref_authors"`
	DOIs            string `toml:"dois" json:"dois"`
	MUTablePath     string `toml:"mu_table" json:"mu_table,omitempty"`

	TraceJSONL  string `toml:"trace_jsonl" json:"trace_jsonl"`
	ReviewJSONL string `toml:"review_jsonl" json:"review_jsonl"`
	OutputDir   string `toml:"output" json:"output"`
}

// Default returns the baseline-mode configuration.
func Default() RunConfig {
	return RunConfig{
		Mode:            score.ModeBaseline,
		AcceptThreshold: BaselineAccept,
		RejectThreshold: BaselineReject,
		TitleThreshold:  DefaultTitleThreshold,
		Seed:            DefaultSeed,
		MaxWorkers:      runtime.NumCPU(),
		TraceJSONL:      "trace.jsonl",
		ReviewJSONL:     "review.jsonl",
		OutputDir:       ".",
	}
}

// DefaultThresholds returns the decision band for a backend.
func DefaultThresholds(mode string) (accept, reject float64) {
	if mode == score.ModeFS {
		return FSAccept, FSReject
	}
	return BaselineAccept, BaselineReject
}

// LoadFile overlays a TOML file onto c. Unknown keys are rejected so typos
// fail loudly instead of silently keeping a default.
func (c *RunConfig) LoadFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: %s: unknown key %q", ErrConfig, path, undecoded[0].String())
	}
	return nil
}

// Validate checks the cross-field constraints.
func (c RunConfig) Validate() error {
	switch c.Mode {
	case score.ModeBaseline, score.ModeFS:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrConfig, c.Mode)
	}
	if c.RejectThreshold > c.AcceptThreshold {
		return fmt.Errorf("%w: reject threshold %g above accept threshold %g",
			ErrConfig, c.RejectThreshold, c.AcceptThreshold)
	}
	if c.TitleThreshold <= 0 || c.TitleThreshold > 1 {
		return fmt.Errorf("%w: title threshold %g outside (0, 1]", ErrConfig, c.TitleThreshold)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("%w: max_workers %d below 1", ErrConfig, c.MaxWorkers)
	}
	if c.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrConfig, c.Limit)
	}
	if c.CrossrefAuthors == "" {
		return fmt.Errorf("%w: crossref_authors input is required", ErrConfig)
	}
	return nil
}

// Hash returns a short fingerprint of the decision-relevant configuration
// for the run manifest. Input and output paths are excluded: the same
// logical config hashed on two machines should agree.
func (c RunConfig) Hash() string {
	canonical := fmt.Sprintf("mode=%s|accept=%.6f|reject=%.6f|title=%.6f|seed=%d|limit=%d|salt=%s|mu=%s",
		c.Mode, c.AcceptThreshold, c.RejectThreshold, c.TitleThreshold, c.Seed, c.Limit, c.RedactionSalt, c.MUTablePath)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:16]
}
