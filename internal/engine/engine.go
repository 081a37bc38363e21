// Package engine drives the per-mention decision loop: block candidates,
// score them, apply the three-way threshold decision, and mutate the author
// index. Publications commit atomically; a publication either contributes a
// trace record for every mention or none at all.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/istina-lab/adis/internal/compare"
	"github.com/istina-lab/adis/internal/dedup"
	"github.com/istina-lab/adis/internal/entity"
	"github.com/istina-lab/adis/internal/index"
	"github.com/istina-lab/adis/internal/score"
	"github.com/istina-lab/adis/internal/trace"
)

// Decision outcomes.
const (
	DecisionMerge   = "merge"
	DecisionNew     = "new"
	DecisionUnknown = "unknown"
)

// topKSize is how many ranked candidates each trace record retains.
const topKSize = 5

// ErrContradiction marks fatal data contradictions: an ORCID collision on a
// NEW decision, or a comparator producing NaN.
var ErrContradiction = errors.New("data contradiction")

// Options configures an engine instance for one run.
type Options struct {
	RunID  string
	Mode   string // score.ModeBaseline or score.ModeFS
	Accept float64
	Reject float64

	Scorer   *score.Scorer
	Index    *index.Index
	Dedup    *dedup.Deduplicator
	Redactor *trace.Redactor
	Clock    *trace.Clock

	// Trace receives every decision record; Review receives the UNKNOWN
	// subset. Either may be nil in tests.
	Trace  recordSink
	Review recordSink
}

type recordSink interface {
	Append(v any) error
}

// Counts aggregates run totals for the manifest.
type Counts struct {
	Publications int `json:"publications"`
	Duplicates   int `json:"duplicates"`
	Mentions     int `json:"mentions"`
	Merged       int `json:"merged"`
	Created      int `json:"created"`
	Unknown      int `json:"unknown"`
}

// PubResult reports one submitted publication's outcome.
type PubResult struct {
	Duplicate bool
	DupResult dedup.Result

	// Assignments maps mention_id to the author the mention resolved to.
	// UNKNOWN mentions are absent.
	Assignments map[string]string
}

// Engine owns the decision loop state: the index, the deduplicator, the
// trace sequence counter, and the author id counter. Not safe for
// concurrent use; the runner keeps it on a single decision lane.
type Engine struct {
	opts Options

	seq        uint64
	nextAuthor int
	counts     Counts
}

// New validates the options and returns an engine.
func New(opts Options) (*Engine, error) {
	switch opts.Mode {
	case score.ModeBaseline, score.ModeFS:
	default:
		return nil, fmt.Errorf("unknown scoring mode %q", opts.Mode)
	}
	if opts.Reject > opts.Accept {
		return nil, fmt.Errorf("reject threshold %g above accept threshold %g", opts.Reject, opts.Accept)
	}
	if opts.Scorer == nil || opts.Index == nil || opts.Dedup == nil {
		return nil, errors.New("engine requires scorer, index, and dedup")
	}
	if opts.Redactor == nil {
		opts.Redactor = trace.NewRedactor("")
	}
	if opts.Clock == nil {
		opts.Clock = trace.NewClock(0)
	}
	e := &Engine{opts: opts}
	// Profile updated_at uses the logical clock so reruns with the same
	// seed produce identical profile state, not just identical traces.
	opts.Index.SetClock(func() time.Time { return opts.Clock.At(e.seq) })
	return e, nil
}

// Counts returns the running totals.
func (e *Engine) Counts() Counts { return e.counts }

// Index exposes the author index for evaluation and result export.
func (e *Engine) Index() *index.Index { return e.opts.Index }

// Submit runs one publication through dedup and the decision loop. A
// duplicate produces no decisions. Mentions are processed in position
// order; trace records are buffered and emitted only once every mention has
// decided, so a fatal error mid-publication leaves no partial trace.
func (e *Engine) Submit(pub *entity.Publication) (*PubResult, error) {
	if r := e.opts.Dedup.Check(pub); r.Duplicate {
		e.counts.Duplicates++
		return &PubResult{Duplicate: true, DupResult: r}, nil
	}
	e.opts.Dedup.Admit(pub)
	e.counts.Publications++

	res := &PubResult{Assignments: make(map[string]string, len(pub.Mentions))}
	records := make([]trace.Record, 0, len(pub.Mentions))
	var reviews []trace.ReviewRecord
	resolved := make([]string, 0, len(pub.Mentions))

	for i := range pub.Mentions {
		m := pub.Mentions[i]
		rec, authorID, err := e.decide(pub, m)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		if rec.Decision == DecisionUnknown {
			reviews = append(reviews, trace.ReviewRecord{Record: rec, ReviewStatus: trace.ReviewPending})
		} else {
			res.Assignments[m.MentionID] = authorID
			resolved = append(resolved, authorID)
		}
	}

	if err := e.wireCoauthors(resolved); err != nil {
		return nil, err
	}
	if err := e.emit(records, reviews); err != nil {
		return nil, err
	}
	return res, nil
}

// decide resolves one mention against the current index state. MERGE and
// NEW mutate the index immediately so later mentions in the same
// publication block against the updated state.
func (e *Engine) decide(pub *entity.Publication, m entity.AuthorMention) (trace.Record, string, error) {
	e.counts.Mentions++
	seq := e.seq
	e.seq++

	candidateIDs := e.opts.Index.Block(m)

	type scored struct {
		author    *entity.Author
		total     float64
		breakdown score.Breakdown
	}
	ranked := make([]scored, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		cand := e.opts.Index.Get(id)
		if cand == nil {
			continue
		}
		v := e.compareVector(pub, m, cand)
		for _, f := range compare.Features {
			if math.IsNaN(v.Get(f).Sim) {
				return trace.Record{}, "", fmt.Errorf("%w: comparator %q returned NaN for %s", ErrContradiction, f, m.MentionID)
			}
		}
		var total float64
		var bd score.Breakdown
		if e.opts.Mode == score.ModeFS {
			var err error
			total, bd, err = e.opts.Scorer.ScoreFS(v)
			if err != nil {
				return trace.Record{}, "", err
			}
		} else {
			total, bd = e.opts.Scorer.ScoreBaseline(v)
		}
		ranked = append(ranked, scored{author: cand, total: total, breakdown: bd})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].total != ranked[j].total {
			return ranked[i].total > ranked[j].total
		}
		return ranked[i].author.AuthorID < ranked[j].author.AuthorID
	})

	rec := trace.Record{
		RunID:               e.opts.RunID,
		Seq:                 seq,
		Timestamp:           e.opts.Clock.Stamp(seq),
		PublicationID:       pub.PublicationID,
		Position:            m.Position,
		MentionNameRedacted: e.opts.Redactor.Name(m.Name),
		MentionNameStruct:   trace.Structure(m.Name),
		Mode:                e.opts.Mode,
		Thresholds:          trace.Thresholds{Accept: e.opts.Accept, Reject: e.opts.Reject},
		CandidateCount:      len(candidateIDs),
	}
	for _, k := range e.opts.Index.BlockingKeys(m) {
		rec.BlockingKeys = append(rec.BlockingKeys, trace.BlockingKey{
			Kind:  k[0],
			Value: e.opts.Redactor.Key(k[1]),
		})
	}
	for i, s := range ranked {
		if i == topKSize {
			break
		}
		rec.TopK = append(rec.TopK, trace.CandidateScore{AuthorID: s.author.AuthorID, Score: s.total})
	}

	var authorID string
	switch {
	case len(ranked) == 0:
		rec.Decision = DecisionNew
		id, err := e.createAuthor(pub, m, seq)
		if err != nil {
			return trace.Record{}, "", err
		}
		authorID = id
	default:
		best := ranked[0]
		bestID := best.author.AuthorID
		rec.BestAuthorID = &bestID
		rec.ScoreTotal = best.total
		rec.ScoreParts = best.breakdown
		switch {
		case best.total >= e.opts.Accept:
			rec.Decision = DecisionMerge
			if err := e.mergeInto(best.author.AuthorID, pub, m); err != nil {
				return trace.Record{}, "", err
			}
			authorID = best.author.AuthorID
		case best.total <= e.opts.Reject:
			rec.Decision = DecisionNew
			id, err := e.createAuthor(pub, m, seq)
			if err != nil {
				return trace.Record{}, "", err
			}
			authorID = id
		default:
			rec.Decision = DecisionUnknown
			e.counts.Unknown++
		}
	}
	rec.AuthorID = authorID
	rec.DeterministicHash = rec.Fingerprint()
	return rec, authorID, nil
}

// compareVector builds the full comparison vector for one candidate.
func (e *Engine) compareVector(pub *entity.Publication, m entity.AuthorMention, cand *entity.Author) compare.Vector {
	mentionJournals := map[string]struct{}{}
	if pub.Journal != "" {
		mentionJournals[pub.Journal] = struct{}{}
	}
	return compare.Vector{
		Name:        compare.Name(m.Name, cand.CanonicalName, cand.Aliases),
		ORCID:       compare.ORCID(m.ORCID, cand.ORCID),
		Coauthor:    compare.Coauthors(compare.CoauthorKeys(pub.CoauthorNames(m.Position)), e.profileCoauthorKeys(cand)),
		Journal:     compare.Journals(mentionJournals, cand.Journals),
		Affiliation: compare.Affiliations(m.Affiliations, cand.Affiliations),
	}
}

// profileCoauthorKeys projects a profile's coauthor ids to surname/initial
// keys via the referenced profiles' canonical names.
func (e *Engine) profileCoauthorKeys(a *entity.Author) map[string]struct{} {
	names := make([]string, 0, len(a.CoauthorIDs))
	for id := range a.CoauthorIDs {
		if co := e.opts.Index.Get(id); co != nil {
			names = append(names, co.CanonicalName)
		}
	}
	return compare.CoauthorKeys(names)
}

// createAuthor mints a new profile for a mention. A NEW decision whose
// ORCID already belongs to another profile is a data contradiction and
// aborts the run.
func (e *Engine) createAuthor(pub *entity.Publication, m entity.AuthorMention, seq uint64) (string, error) {
	e.nextAuthor++
	a := entity.NewAuthor(fmt.Sprintf("au_%06d", e.nextAuthor), m.Name, entity.CleanORCID(m.ORCID), e.opts.Clock.At(seq))
	for _, aff := range m.Affiliations {
		if aff != "" {
			a.Affiliations[aff] = struct{}{}
		}
	}
	a.PublicationIDs[pub.PublicationID] = struct{}{}
	if pub.Journal != "" {
		a.Journals[pub.Journal] = struct{}{}
	}
	if err := e.opts.Index.Insert(a); err != nil {
		if errors.Is(err, index.ErrDuplicateORCID) {
			return "", fmt.Errorf("%w: new profile for %s collides on orcid %s", ErrContradiction, m.MentionID, a.ORCID)
		}
		return "", err
	}
	e.counts.Created++
	return a.AuthorID, nil
}

// mergeInto applies the MERGE mutation to an existing profile. The alias is
// only kept when it differs from the canonical name; the index handles
// that filter.
func (e *Engine) mergeInto(authorID string, pub *entity.Publication, m entity.AuthorMention) error {
	d := entity.Delta{
		Aliases:        []string{m.Name},
		Affiliations:   m.Affiliations,
		PublicationIDs: []string{pub.PublicationID},
	}
	if pub.Journal != "" {
		d.Journals = []string{pub.Journal}
	}
	if err := e.opts.Index.Update(authorID, d); err != nil {
		return err
	}
	e.counts.Merged++
	return nil
}

// wireCoauthors records within-publication co-authorship between every pair
// of resolved mentions once the whole publication has decided.
func (e *Engine) wireCoauthors(resolved []string) error {
	if len(resolved) < 2 {
		return nil
	}
	for _, id := range resolved {
		others := make([]string, 0, len(resolved)-1)
		for _, other := range resolved {
			if other != id {
				others = append(others, other)
			}
		}
		if err := e.opts.Index.Update(id, entity.Delta{CoauthorIDs: others}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) emit(records []trace.Record, reviews []trace.ReviewRecord) error {
	if e.opts.Trace != nil {
		for i := range records {
			if err := e.opts.Trace.Append(records[i]); err != nil {
				return err
			}
		}
	}
	if e.opts.Review != nil {
		for i := range reviews {
			if err := e.opts.Review.Append(reviews[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
