// Package entity defines the core value types of the disambiguation
// pipeline: author profiles, publications, and per-publication author
// mentions, plus the pure normalization functions applied at the ingest
// boundary. Cross-references between entities are always by id, never by
// pointer, so the object graph is acyclic by construction.
package entity

import (
	"time"
)

// Author is a persistent author profile aggregating many mentions.
// Identity is the opaque AuthorID; equality is by AuthorID only.
type Author struct {
	AuthorID      string
	CanonicalName string

	// ORCID is empty when unknown. When set it is unique across the index
	// and never changes for the lifetime of the profile.
	ORCID string

	Aliases        map[string]struct{}
	Affiliations   map[string]struct{}
	CoauthorIDs    map[string]struct{}
	Journals       map[string]struct{}
	PublicationIDs map[string]struct{}

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAuthor builds a profile with all collection fields allocated empty.
func NewAuthor(authorID, canonicalName, orcid string, now time.Time) *Author {
	return &Author{
		AuthorID:       authorID,
		CanonicalName:  canonicalName,
		ORCID:          orcid,
		Aliases:        make(map[string]struct{}),
		Affiliations:   make(map[string]struct{}),
		CoauthorIDs:    make(map[string]struct{}),
		Journals:       make(map[string]struct{}),
		PublicationIDs: make(map[string]struct{}),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Delta carries the set additions of a profile update. CanonicalName and
// ORCID are deliberately absent: neither ever changes after creation.
type Delta struct {
	Aliases        []string
	Affiliations   []string
	CoauthorIDs    []string
	Journals       []string
	PublicationIDs []string
}

// Empty reports whether applying the delta would be a no-op.
func (d Delta) Empty() bool {
	return len(d.Aliases) == 0 && len(d.Affiliations) == 0 &&
		len(d.CoauthorIDs) == 0 && len(d.Journals) == 0 &&
		len(d.PublicationIDs) == 0
}

// AuthorMention is one surface occurrence of an author in one publication.
// Mentions are immutable once ingested.
type AuthorMention struct {
	// MentionID is assigned deterministically at ingest time
	// (publication id + 1-based position).
	MentionID string

	Name         string
	ORCID        string
	Affiliations []string

	// Position is the 1-based author position within the publication.
	Position int
}

// Publication is an admitted bibliographic record. Publications are created
// at dedup-admit time and never mutated afterwards.
type Publication struct {
	PublicationID   string
	DOI             string
	Title           string
	NormalizedTitle string
	Year            int
	Journal         string
	Mentions        []AuthorMention
}

// CoauthorNames returns the names of every other mention in the publication,
// in mention order. Used to build the coauthor comparison set for a mention.
func (p *Publication) CoauthorNames(position int) []string {
	var names []string
	for _, m := range p.Mentions {
		if m.Position == position {
			continue
		}
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names
}
