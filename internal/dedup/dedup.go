// Package dedup implements the article deduplicator: an incoming
// publication is admitted at most once, keyed first by normalized DOI, then
// by exact normalized title, then by fuzzy title match.
package dedup

import (
	"sort"

	"github.com/istina-lab/adis/internal/entity"
	"github.com/istina-lab/adis/internal/textsim"
)

// Reason identifies which index matched a duplicate.
type Reason string

const (
	ReasonDOI        Reason = "doi"
	ReasonTitleExact Reason = "title_exact"
	ReasonTitleFuzzy Reason = "title_fuzzy"
)

// Result is the outcome of a duplicate check.
type Result struct {
	Duplicate  bool
	ExistingID string
	Reason     Reason

	// Similarity is set for title_fuzzy matches only.
	Similarity float64
}

// Deduplicator maintains the DOI and normalized-title maps over admitted
// publications. Single-writer, like the author index.
type Deduplicator struct {
	titleThreshold float64

	byDOI   map[string]string // normalized DOI -> publication_id
	byTitle map[string]string // normalized title -> publication_id

	// titles holds byTitle's keys sorted lexicographically so the fuzzy
	// scan visits candidates in a stable order.
	titles []string
}

// New returns an empty deduplicator. titleThreshold is the minimum
// Damerau-Levenshtein ratio for a fuzzy title duplicate (default 0.95 at
// the config layer).
func New(titleThreshold float64) *Deduplicator {
	return &Deduplicator{
		titleThreshold: titleThreshold,
		byDOI:          make(map[string]string),
		byTitle:        make(map[string]string),
	}
}

// Check classifies pub against the admitted set without mutating it.
func (d *Deduplicator) Check(pub *entity.Publication) Result {
	if doi := entity.NormalizeDOI(pub.DOI); doi != "" {
		if id, ok := d.byDOI[doi]; ok {
			return Result{Duplicate: true, ExistingID: id, Reason: ReasonDOI}
		}
	}

	title := pub.NormalizedTitle
	if title == "" {
		title = entity.NormalizeTitle(pub.Title)
	}
	if title == "" {
		return Result{}
	}
	if id, ok := d.byTitle[title]; ok {
		return Result{Duplicate: true, ExistingID: id, Reason: ReasonTitleExact}
	}
	for _, existing := range d.titles {
		if s := textsim.DamerauLevenshteinRatio(title, existing); s >= d.titleThreshold {
			return Result{
				Duplicate:  true,
				ExistingID: d.byTitle[existing],
				Reason:     ReasonTitleFuzzy,
				Similarity: s,
			}
		}
	}
	return Result{}
}

// Admit inserts pub into both maps. The title map is only touched when the
// normalized title is non-empty. Admit assumes Check reported no duplicate;
// re-admitting an identical key overwrites nothing (first admission wins).
func (d *Deduplicator) Admit(pub *entity.Publication) {
	if doi := entity.NormalizeDOI(pub.DOI); doi != "" {
		if _, ok := d.byDOI[doi]; !ok {
			d.byDOI[doi] = pub.PublicationID
		}
	}
	title := pub.NormalizedTitle
	if title == "" {
		title = entity.NormalizeTitle(pub.Title)
	}
	if title == "" {
		return
	}
	if _, ok := d.byTitle[title]; ok {
		return
	}
	d.byTitle[title] = pub.PublicationID
	i := sort.SearchStrings(d.titles, title)
	d.titles = append(d.titles, "")
	copy(d.titles[i+1:], d.titles[i:])
	d.titles[i] = title
}

// Stats reports index sizes for the run manifest.
func (d *Deduplicator) Stats() (byDOI, byTitle int) {
	return len(d.byDOI), len(d.byTitle)
}
