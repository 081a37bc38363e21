// Package runner wires the pipeline together for one run: ingest, the
// prepare worker pool, the serial decision lane, and the output artifacts
// (trace, review queue, results, manifest). The runner owns every file
// handle and guarantees a flush on all exit paths.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/errgroup"

	"github.com/istina-lab/adis/internal/config"
	"github.com/istina-lab/adis/internal/dedup"
	"github.com/istina-lab/adis/internal/engine"
	"github.com/istina-lab/adis/internal/entity"
	"github.com/istina-lab/adis/internal/evaluate"
	"github.com/istina-lab/adis/internal/index"
	"github.com/istina-lab/adis/internal/ingest"
	"github.com/istina-lab/adis/internal/score"
	"github.com/istina-lab/adis/internal/trace"
)

// version identifies the pipeline build in manifests.
const version = "0.3.0"

// Run statuses recorded in the manifest.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusAborted   = "aborted"
)

// RuntimeStats snapshots process resource usage at run end. Manifest only;
// never part of the deterministic outputs.
type RuntimeStats struct {
	RSSBytes      uint64  `json:"rss_bytes,omitempty"`
	CPUUserSec    float64 `json:"cpu_user_sec,omitempty"`
	CPUSystemSec  float64 `json:"cpu_system_sec,omitempty"`
	NumGoroutines int     `json:"num_goroutines"`
}

// Manifest is run_manifest.json.
type Manifest struct {
	RunID      string `json:"run_id"`
	Version    string `json:"version"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Cancelled  bool   `json:"cancelled"`
	ConfigHash string `json:"config_hash"`

	Mode       string           `json:"mode"`
	Seed       int64            `json:"seed"`
	Thresholds trace.Thresholds `json:"thresholds"`

	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`

	Counts   engine.Counts `json:"counts"`
	Ingest   ingest.Stats  `json:"ingest"`
	Profiles int           `json:"profiles"`
	ORCIDs   int           `json:"orcids"`

	Runtime RuntimeStats `json:"runtime"`
}

// Results is results.json: the final cluster assignment plus counts.
type Results struct {
	RunID       string            `json:"run_id"`
	Assignments map[string]string `json:"assignments"`
	Counts      engine.Counts     `json:"counts"`
}

// Summary is what Run hands back to the CLI.
type Summary struct {
	Manifest Manifest
	Results  Results

	TracePath    string
	ReviewPath   string
	ResultsPath  string
	ManifestPath string
}

// Runner executes one configured run.
type Runner struct {
	cfg config.RunConfig
	log *slog.Logger
}

// New builds a runner. The config must already be validated.
func New(cfg config.RunConfig, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{cfg: cfg, log: log}
}

// Run executes the pipeline. On cancellation the in-flight publication is
// completed, outputs are flushed, and the manifest carries cancelled: true;
// the returned error is ctx.Err(). On a fatal engine error the manifest is
// written with status aborted before the error is returned.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	cfg := r.cfg
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	started := time.Now().UTC()

	records, err := ingest.LoadMentions(cfg.CrossrefAuthors)
	if err != nil {
		return nil, err
	}
	var dois []string
	if cfg.DOIs != "" {
		if dois, err = ingest.LoadDOIs(cfg.DOIs); err != nil {
			return nil, err
		}
	}
	pubs, stats := ingest.Assemble(records, dois, cfg.Limit)
	r.log.Info("ingest complete",
		"records", stats.Records,
		"publications", len(pubs),
		"skipped_empty_name", stats.SkippedEmptyName,
		"invalid_orcids", stats.InvalidORCIDs,
		"failed_dois", len(stats.FailedDOIs))

	var mu score.MUTable
	if cfg.Mode == score.ModeFS {
		if cfg.MUTablePath != "" {
			if mu, err = score.LoadMUTable(cfg.MUTablePath); err != nil {
				return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
			}
		} else {
			mu = score.DefaultMUTable()
		}
	}
	scorer, err := score.New(score.DefaultWeights(), mu)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
	}

	traceW, err := trace.NewWriter(r.outPath(cfg.TraceJSONL))
	if err != nil {
		return nil, err
	}
	defer traceW.Close()
	reviewW, err := trace.NewWriter(r.outPath(cfg.ReviewJSONL))
	if err != nil {
		return nil, err
	}
	defer reviewW.Close()

	eng, err := engine.New(engine.Options{
		RunID:    cfg.RunID,
		Mode:     cfg.Mode,
		Accept:   cfg.AcceptThreshold,
		Reject:   cfg.RejectThreshold,
		Scorer:   scorer,
		Index:    index.New(),
		Dedup:    dedup.New(cfg.TitleThreshold),
		Redactor: trace.NewRedactor(cfg.RedactionSalt),
		Clock:    trace.NewClock(cfg.Seed),
		Trace:    traceW,
		Review:   reviewW,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
	}

	sum := &Summary{
		TracePath:    r.outPath(cfg.TraceJSONL),
		ReviewPath:   r.outPath(cfg.ReviewJSONL),
		ResultsPath:  r.outPath("results.json"),
		ManifestPath: r.outPath("run_manifest.json"),
	}
	sum.Results = Results{RunID: cfg.RunID, Assignments: make(map[string]string)}

	runErr := r.drive(ctx, eng, pubs, &sum.Results)

	if err := traceW.Flush(); err != nil && runErr == nil {
		runErr = err
	}
	if err := reviewW.Flush(); err != nil && runErr == nil {
		runErr = err
	}

	sum.Results.Counts = eng.Counts()
	m := Manifest{
		RunID:      cfg.RunID,
		Version:    version,
		Status:     StatusCompleted,
		ConfigHash: cfg.Hash(),
		Mode:       cfg.Mode,
		Seed:       cfg.Seed,
		Thresholds: trace.Thresholds{Accept: cfg.AcceptThreshold, Reject: cfg.RejectThreshold},
		StartedAt:  started.Format(time.RFC3339),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
		Counts:     eng.Counts(),
		Ingest:     stats,
		Profiles:   eng.Index().Len(),
		ORCIDs:     eng.Index().ORCIDCount(),
		Runtime:    runtimeStats(),
	}
	switch {
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		m.Status = StatusCancelled
		m.Cancelled = true
		m.Reason = runErr.Error()
	case runErr != nil:
		m.Status = StatusAborted
		m.Reason = runErr.Error()
	}
	sum.Manifest = m

	if err := writeJSON(sum.ResultsPath, sum.Results); err != nil && runErr == nil {
		runErr = err
	}
	if err := writeJSON(sum.ManifestPath, m); err != nil && runErr == nil {
		runErr = err
	}

	r.log.Info("run finished",
		"run_id", cfg.RunID,
		"status", m.Status,
		"publications", m.Counts.Publications,
		"merged", m.Counts.Merged,
		"created", m.Counts.Created,
		"unknown", m.Counts.Unknown)
	return sum, runErr
}

// drive fans publication preparation out over a bounded worker pool and
// feeds the serial decision lane in ingest order. Workers only touch their
// own publication; every index and trace mutation happens on this
// goroutine.
func (r *Runner) drive(ctx context.Context, eng *engine.Engine, pubs []*entity.Publication, res *Results) error {
	workers := r.cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(pubs) && len(pubs) > 0 {
		workers = len(pubs)
	}

	jobs := make(chan int, workers)
	ready := make([]chan struct{}, len(pubs))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range pubs {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				prepare(pubs[i])
				close(ready[i])
			}
			return nil
		})
	}

	var laneErr error
	for i, pub := range pubs {
		// Cancellation is polled between publications only; the
		// in-flight one always completes.
		if err := ctx.Err(); err != nil {
			laneErr = err
			break
		}
		select {
		case <-ready[i]:
		case <-gctx.Done():
			// The publication never entered the lane and a worker may
			// still be writing it in prepare; stop here rather than
			// submit a half-prepared value.
			laneErr = gctx.Err()
		}
		if laneErr != nil {
			break
		}

		out, err := eng.Submit(pub)
		if err != nil {
			laneErr = err
			break
		}
		if out.Duplicate {
			r.log.Debug("duplicate publication",
				"publication_id", pub.PublicationID,
				"existing_id", out.DupResult.ExistingID,
				"reason", out.DupResult.Reason)
			continue
		}
		for mid, aid := range out.Assignments {
			res.Assignments[mid] = aid
		}
	}

	if err := g.Wait(); err != nil && laneErr == nil && !errors.Is(err, context.Canceled) {
		laneErr = err
	}
	return laneErr
}

// prepare precomputes the derived fields a publication needs before it
// reaches the decision lane. CPU-only, no shared state.
func prepare(pub *entity.Publication) {
	if pub.NormalizedTitle == "" && pub.Title != "" {
		pub.NormalizedTitle = entity.NormalizeTitle(pub.Title)
	}
	pub.DOI = entity.NormalizeDOI(pub.DOI)
}

// Eval loads results.json plus the input corpus, rebuilds the ORCID gold
// set, and scores the predicted assignment. doisPath and limit must match
// the run that produced the results, otherwise mention ids don't line up.
func Eval(resultsPath, mentionsPath, doisPath string, limit, minMentions int) (*evaluate.Result, error) {
	data, err := os.ReadFile(resultsPath)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var res Results
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", resultsPath, err)
	}

	records, err := ingest.LoadMentions(mentionsPath)
	if err != nil {
		return nil, err
	}
	var dois []string
	if doisPath != "" {
		if dois, err = ingest.LoadDOIs(doisPath); err != nil {
			return nil, err
		}
	}
	pubs, _ := ingest.Assemble(records, dois, limit)
	gold, goldStats := evaluate.GoldSetStats(pubs, minMentions)

	pred := make(evaluate.Clustering, len(res.Assignments))
	for mid, aid := range res.Assignments {
		pred[mid] = aid
	}
	out := evaluate.Evaluate(pred, gold)
	out.Gold = goldStats
	return &out, nil
}

func (r *Runner) outPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	dir := r.cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func runtimeStats() RuntimeStats {
	stats := RuntimeStats{NumGoroutines: runtime.NumGoroutine()}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return stats
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := proc.Times(); err == nil && cpu != nil {
		stats.CPUUserSec = cpu.User
		stats.CPUSystemSec = cpu.System
	}
	return stats
}
