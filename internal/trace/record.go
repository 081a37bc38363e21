package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/istina-lab/adis/internal/score"
)

// Thresholds snapshots the decision band in effect for a record.
type Thresholds struct {
	Accept float64 `json:"accept"`
	Reject float64 `json:"reject"`
}

// BlockingKey is one index probe that contributed candidates. The value is
// redacted before it reaches a record.
type BlockingKey struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// CandidateScore is one entry of a record's top-k list.
type CandidateScore struct {
	AuthorID string  `json:"author_id"`
	Score    float64 `json:"score"`
}

// Record is one decision-trace line. Every mention processed by the engine
// produces exactly one, in mention order.
type Record struct {
	RunID     string `json:"run_id"`
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"timestamp"`

	PublicationID string `json:"publication_id"`
	Position      int    `json:"position"`

	MentionNameRedacted string        `json:"mention_name_redacted"`
	MentionNameStruct   NameStructure `json:"mention_name_structure"`

	Mode     string `json:"mode"`
	Decision string `json:"decision"`
	AuthorID string `json:"author_id"`

	// BestAuthorID is null when blocking produced no candidates; the key is
	// always present in the serialized record.
	BestAuthorID   *string         `json:"best_author_id"`
	ScoreTotal     float64         `json:"score_total"`
	ScoreParts     score.Breakdown `json:"score_components"`
	Thresholds     Thresholds      `json:"thresholds"`
	CandidateCount int             `json:"candidate_count"`

	BlockingKeys []BlockingKey    `json:"blocking_keys"`
	TopK         []CandidateScore `json:"topk"`

	DeterministicHash string `json:"deterministic_hash"`
}

// ReviewRecord is a Record queued for manual review, written to the review
// JSONL alongside the trace line.
type ReviewRecord struct {
	Record
	ReviewStatus string `json:"review_status"`
}

// ReviewPending is the only status this tool writes; downstream review
// tooling rewrites it.
const ReviewPending = "pending"

// Clock produces logical per-record timestamps so reruns with the same seed
// emit byte-identical traces. The base instant is derived from the seed and
// each record advances it by its sequence number in milliseconds; wall-clock
// time appears only in the run manifest.
type Clock struct {
	base time.Time
}

// NewClock derives the logical base instant from the run seed.
func NewClock(seed int64) *Clock {
	return &Clock{base: time.Unix(seed, 0).UTC()}
}

// Stamp formats the logical timestamp for a sequence number.
func (c *Clock) Stamp(seq uint64) string {
	return c.At(seq).Format("2006-01-02T15:04:05.000Z")
}

// At returns the logical instant for a sequence number. Profile created_at
// and updated_at fields use this too, so rerun outputs carry no wall-clock
// time anywhere but the manifest.
func (c *Clock) At(seq uint64) time.Time {
	return c.base.Add(time.Duration(seq) * time.Millisecond)
}

// Fingerprint computes the record's deterministic hash from its
// decision-relevant fields. Map and slice fields are folded in sorted order
// and the score is rounded to 6 decimals, so the hash is independent of
// iteration order and float formatting noise.
func (r *Record) Fingerprint() string {
	parts := make([]string, 0, len(r.ScoreParts))
	for feature, c := range r.ScoreParts {
		parts = append(parts, feature+":"+c.Bin)
	}
	sort.Strings(parts)

	ids := make([]string, 0, len(r.TopK))
	for _, cs := range r.TopK {
		ids = append(ids, cs.AuthorID)
	}
	sort.Strings(ids)

	var best string
	if r.BestAuthorID != nil {
		best = *r.BestAuthorID
	}
	canonical := strings.Join([]string{
		r.RunID,
		r.PublicationID,
		fmt.Sprintf("%d", r.Position),
		r.MentionNameRedacted,
		r.Decision,
		r.Mode,
		fmt.Sprintf("%.6f", r.ScoreTotal),
		strings.Join(parts, ","),
		fmt.Sprintf("%.6f|%.6f", r.Thresholds.Accept, r.Thresholds.Reject),
		best,
		strings.Join(ids, ","),
	}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
