// Package ingest parses the raw mention and DOI input files and assembles
// Publications for the decision lane. Parsing is the only place malformed
// input is tolerated: bad mentions are skipped and counted, never fatal.
package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/istina-lab/adis/internal/entity"
)

// RawMention is one record of the crossref_authors input file.
type RawMention struct {
	ArticleID    string `json:"article_id"`
	OriginalName string `json:"original_name"`
	Lastname     string `json:"lastname"`
	Firstname    string `json:"firstname"`
	ORCID        string `json:"orcid,omitempty"`
	Affiliation  string `json:"affiliation,omitempty"`

	// Optional bibliographic fields; present in enriched dumps, absent in
	// the minimal export.
	Title   string `json:"title,omitempty"`
	Journal string `json:"journal,omitempty"`
	Year    int    `json:"year,omitempty"`
}

// Stats counts what ingest dropped or repaired. Reported in the manifest.
type Stats struct {
	Records          int      `json:"records"`
	SkippedEmptyName int      `json:"skipped_empty_name"`
	SkippedNoArticle int      `json:"skipped_no_article"`
	InvalidORCIDs    int      `json:"invalid_orcids"`
	FailedDOIs       []string `json:"failed_dois,omitempty"`
}

// LoadMentions reads the crossref_authors JSON array.
func LoadMentions(path string) ([]RawMention, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mentions: %w", err)
	}
	var records []RawMention
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse mentions %s: %w", path, err)
	}
	return records, nil
}

// LoadDOIs reads the dois JSON array, dropping empty strings.
func LoadDOIs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dois: %w", err)
	}
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse dois %s: %w", path, err)
	}
	dois := raw[:0]
	for _, d := range raw {
		if strings.TrimSpace(d) != "" {
			dois = append(dois, d)
		}
	}
	return dois, nil
}

// name resolves the mention's display name: original_name when present,
// otherwise firstname + lastname.
func (r RawMention) name() string {
	if n := strings.TrimSpace(r.OriginalName); n != "" {
		return n
	}
	return strings.TrimSpace(strings.TrimSpace(r.Firstname) + " " + strings.TrimSpace(r.Lastname))
}

// Assemble groups mention records into Publications. When dois is non-empty
// it fixes the processing order and acts as a filter; DOIs with no mention
// records land in Stats.FailedDOIs (the upstream fetch never yielded them).
// Otherwise articles are processed in first-appearance order. limit > 0
// caps the number of publications.
//
// Publication and mention ids are deterministic: pub_%06d in processing
// order, mention ids publication_id:position.
func Assemble(records []RawMention, dois []string, limit int) ([]*entity.Publication, Stats) {
	stats := Stats{Records: len(records)}

	grouped := make(map[string][]RawMention)
	var order []string
	for _, r := range records {
		key := entity.NormalizeDOI(r.ArticleID)
		if key == "" {
			stats.SkippedNoArticle++
			continue
		}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], r)
	}

	if len(dois) > 0 {
		filtered := make([]string, 0, len(dois))
		seen := make(map[string]struct{}, len(dois))
		for _, d := range dois {
			key := entity.NormalizeDOI(d)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if _, ok := grouped[key]; !ok {
				stats.FailedDOIs = append(stats.FailedDOIs, key)
				continue
			}
			filtered = append(filtered, key)
		}
		order = filtered
	}

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	pubs := make([]*entity.Publication, 0, len(order))
	for i, key := range order {
		pubID := fmt.Sprintf("pub_%06d", i+1)
		pub := &entity.Publication{
			PublicationID: pubID,
			DOI:           key,
		}
		position := 0
		for _, r := range grouped[key] {
			name := r.name()
			if name == "" {
				stats.SkippedEmptyName++
				continue
			}
			position++
			orcid := entity.CleanORCID(r.ORCID)
			if orcid != "" && !entity.ValidORCID(orcid) {
				stats.InvalidORCIDs++
				orcid = ""
			}
			m := entity.AuthorMention{
				MentionID: fmt.Sprintf("%s:%d", pubID, position),
				Name:      name,
				ORCID:     orcid,
				Position:  position,
			}
			if aff := strings.TrimSpace(r.Affiliation); aff != "" {
				m.Affiliations = []string{aff}
			}
			pub.Mentions = append(pub.Mentions, m)

			if pub.Title == "" && r.Title != "" {
				pub.Title = r.Title
				pub.NormalizedTitle = entity.NormalizeTitle(r.Title)
			}
			if pub.Journal == "" && r.Journal != "" {
				pub.Journal = r.Journal
			}
			if pub.Year == 0 && r.Year != 0 {
				pub.Year = r.Year
			}
		}
		pubs = append(pubs, pub)
	}
	return pubs, stats
}
