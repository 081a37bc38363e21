// Package index implements the in-memory author store. The index is the
// exclusive owner of Author profiles; everything else refers to profiles by
// author_id. Alongside the primary id map it maintains the blocking indices
// used for candidate retrieval: ORCID, surname, surname+initial, and
// normalized affiliation.
//
// The index is single-writer: all mutation happens on the decision lane, so
// no internal locking is needed.
package index

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/istina-lab/adis/internal/entity"
)

var (
	// ErrDuplicateID is returned by Insert when the author_id is taken.
	ErrDuplicateID = errors.New("author id already present")

	// ErrDuplicateORCID is returned by Insert when another profile already
	// carries the same ORCID. ORCID uniqueness is a hard invariant.
	ErrDuplicateORCID = errors.New("orcid already present")

	// ErrUnknownAuthor is returned by Update for an id with no profile.
	ErrUnknownAuthor = errors.New("unknown author id")
)

// Index is the live profile set with its blocking indices.
type Index struct {
	byID             map[string]*entity.Author
	byORCID          map[string]*entity.Author
	bySurname        map[string][]string
	bySurnameInitial map[string][]string
	byAffiliation    map[string][]string

	now func() time.Time
}

// New returns an empty index.
func New() *Index {
	return &Index{
		byID:             make(map[string]*entity.Author),
		byORCID:          make(map[string]*entity.Author),
		bySurname:        make(map[string][]string),
		bySurnameInitial: make(map[string][]string),
		byAffiliation:    make(map[string][]string),
		now:              time.Now,
	}
}

// SetClock overrides the update timestamp source. The engine installs the
// run's logical clock here so profile timestamps are reproducible.
func (ix *Index) SetClock(now func() time.Time) { ix.now = now }

// Get returns the profile for id, or nil.
func (ix *Index) Get(id string) *entity.Author {
	return ix.byID[id]
}

// FindByORCID returns the unique profile carrying orcid, or nil.
func (ix *Index) FindByORCID(orcid string) *entity.Author {
	if orcid == "" {
		return nil
	}
	return ix.byORCID[orcid]
}

// Len returns the number of live profiles. Profile count is non-decreasing
// for the lifetime of a run: profiles are never deleted.
func (ix *Index) Len() int { return len(ix.byID) }

// ORCIDCount returns the number of distinct ORCIDs held by profiles.
func (ix *Index) ORCIDCount() int { return len(ix.byORCID) }

// Authors returns all profiles ordered by author_id.
func (ix *Index) Authors() []*entity.Author {
	ids := make([]string, 0, len(ix.byID))
	for id := range ix.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*entity.Author, len(ids))
	for i, id := range ids {
		out[i] = ix.byID[id]
	}
	return out
}

// Insert adds a new profile. It fails if the author_id or a non-empty ORCID
// is already present; on the ORCID path the index is left untouched.
func (ix *Index) Insert(a *entity.Author) error {
	if a.AuthorID == "" {
		return errors.New("empty author id")
	}
	if a.CanonicalName == "" {
		return errors.New("empty canonical name")
	}
	if _, ok := ix.byID[a.AuthorID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, a.AuthorID)
	}
	if a.ORCID != "" {
		if _, ok := ix.byORCID[a.ORCID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateORCID, a.ORCID)
		}
	}

	ix.byID[a.AuthorID] = a
	if a.ORCID != "" {
		ix.byORCID[a.ORCID] = a
	}
	surname := entity.Surname(a.CanonicalName)
	if surname != "" {
		ix.bySurname[surname] = insertSorted(ix.bySurname[surname], a.AuthorID)
		key := entity.SurnameInitialKey(a.CanonicalName)
		ix.bySurnameInitial[key] = insertSorted(ix.bySurnameInitial[key], a.AuthorID)
	}
	for aff := range a.Affiliations {
		ix.indexAffiliation(aff, a.AuthorID)
	}
	return nil
}

// Update merges the delta's sets into the profile and refreshes updated_at.
// CanonicalName and ORCID are never touched. New affiliations are added to
// the affiliation blocking index so later mentions can block on them.
func (ix *Index) Update(id string, delta entity.Delta) error {
	a, ok := ix.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAuthor, id)
	}
	for _, alias := range delta.Aliases {
		if alias != "" && alias != a.CanonicalName {
			a.Aliases[alias] = struct{}{}
		}
	}
	for _, aff := range delta.Affiliations {
		if aff == "" {
			continue
		}
		if _, seen := a.Affiliations[aff]; !seen {
			a.Affiliations[aff] = struct{}{}
			ix.indexAffiliation(aff, id)
		}
	}
	for _, co := range delta.CoauthorIDs {
		// A profile is never its own coauthor.
		if co != "" && co != id {
			a.CoauthorIDs[co] = struct{}{}
		}
	}
	for _, j := range delta.Journals {
		if j != "" {
			a.Journals[j] = struct{}{}
		}
	}
	for _, p := range delta.PublicationIDs {
		if p != "" {
			a.PublicationIDs[p] = struct{}{}
		}
	}
	a.UpdatedAt = ix.now()
	return nil
}

func (ix *Index) indexAffiliation(raw, authorID string) {
	key := entity.NormalizeInstitution(raw)
	if key == "" {
		return
	}
	ix.byAffiliation[key] = insertSorted(ix.byAffiliation[key], authorID)
}

// Block returns the candidate author_ids for a mention: the union of the
// ORCID hit, the surname block, the surname+initial block, and one block
// per mention affiliation, deduplicated and ordered by author_id. A stable
// ordering here is what makes candidate iteration reproducible.
func (ix *Index) Block(m entity.AuthorMention) []string {
	seen := make(map[string]struct{})

	if m.ORCID != "" {
		if a := ix.byORCID[m.ORCID]; a != nil {
			seen[a.AuthorID] = struct{}{}
		}
	}
	surname := entity.Surname(m.Name)
	if surname != "" {
		for _, id := range ix.bySurname[surname] {
			seen[id] = struct{}{}
		}
		for _, id := range ix.bySurnameInitial[entity.SurnameInitialKey(m.Name)] {
			seen[id] = struct{}{}
		}
	}
	for _, aff := range m.Affiliations {
		key := entity.NormalizeInstitution(aff)
		if key == "" {
			continue
		}
		for _, id := range ix.byAffiliation[key] {
			seen[id] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// BlockingKeys returns the raw blocking keys a mention activates, in a
// fixed kind order. The trace layer hashes the values before emission.
func (ix *Index) BlockingKeys(m entity.AuthorMention) [][2]string {
	var keys [][2]string
	if m.ORCID != "" {
		keys = append(keys, [2]string{"orcid", m.ORCID})
	}
	surname := entity.Surname(m.Name)
	if surname != "" {
		keys = append(keys, [2]string{"surname", surname})
		keys = append(keys, [2]string{"surname_initial", entity.SurnameInitialKey(m.Name)})
	}
	for _, aff := range m.Affiliations {
		if key := entity.NormalizeInstitution(aff); key != "" {
			keys = append(keys, [2]string{"affiliation", key})
		}
	}
	return keys
}

// insertSorted inserts id into a sorted id list, keeping it sorted and
// duplicate-free.
func insertSorted(ids []string, id string) []string {
	i := sort.SearchStrings(ids, id)
	if i < len(ids) && ids[i] == id {
		return ids
	}
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
