// Package compare implements the per-feature comparators. Each comparator
// takes one side from the incoming mention and one side from a candidate
// profile and returns a raw similarity in [0,1] together with a discrete
// comparison bin. Comparators are pure and deterministic; the Fellegi-Sunter
// backend scores bins, the baseline backend scores raw similarities.
package compare

import (
	"strings"

	"github.com/istina-lab/adis/internal/entity"
	"github.com/istina-lab/adis/internal/textsim"
)

// Feature names, in the fixed order used everywhere a vector is iterated.
const (
	FeatureName        = "name"
	FeatureORCID       = "orcid"
	FeatureCoauthor    = "coauthor"
	FeatureJournal     = "journal"
	FeatureAffiliation = "affiliation"
)

// Features lists all feature names in canonical order.
var Features = []string{
	FeatureName, FeatureORCID, FeatureCoauthor, FeatureJournal, FeatureAffiliation,
}

// Bin labels. Name and affiliation use the exact..none ladder; coauthor and
// journal use high..none; ORCID uses match/mismatch/missing.
const (
	BinExact    = "exact"
	BinHigh     = "high"
	BinMedium   = "medium"
	BinLow      = "low"
	BinNone     = "none"
	BinMatch    = "match"
	BinMismatch = "mismatch"
	BinMissing  = "missing"
)

// Comparison is one feature's (similarity, bin) pair.
type Comparison struct {
	Sim float64 `json:"sim"`
	Bin string  `json:"bin"`
}

// Vector is the full comparison vector for one (mention, profile) pair.
type Vector struct {
	Name        Comparison `json:"name"`
	ORCID       Comparison `json:"orcid"`
	Coauthor    Comparison `json:"coauthor"`
	Journal     Comparison `json:"journal"`
	Affiliation Comparison `json:"affiliation"`
}

// Get returns the comparison for a feature name.
func (v Vector) Get(feature string) Comparison {
	switch feature {
	case FeatureName:
		return v.Name
	case FeatureORCID:
		return v.ORCID
	case FeatureCoauthor:
		return v.Coauthor
	case FeatureJournal:
		return v.Journal
	case FeatureAffiliation:
		return v.Affiliation
	}
	return Comparison{}
}

// Name compares the mention name against the candidate's canonical name and
// every alias, keeping the best. Names that differ only by initial
// expansion ("j smith" vs "john smith") are floored at 0.90 so they land in
// the high bin even when Jaro-Winkler alone would score lower.
func Name(mentionName, canonicalName string, aliases map[string]struct{}) Comparison {
	m := entity.NormalizeName(mentionName)
	if m == "" {
		return Comparison{Sim: 0, Bin: BinNone}
	}
	best := nameSimilarity(m, entity.NormalizeName(canonicalName))
	for alias := range aliases {
		if s := nameSimilarity(m, entity.NormalizeName(alias)); s > best {
			best = s
		}
	}
	return Comparison{Sim: best, Bin: binLadder(best)}
}

func nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	s := textsim.JaroWinkler(a, b)
	if s < 0.90 && initialsCompatible(a, b) {
		s = 0.90
	}
	return s
}

// initialsCompatible reports whether two normalized names agree up to
// initial expansion: same surname, and every aligned given-name token
// either equal or one side a single-letter initial of the other.
func initialsCompatible(a, b string) bool {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) < 2 || len(tb) < 2 {
		return false
	}
	if ta[len(ta)-1] != tb[len(tb)-1] {
		return false
	}
	ga := ta[:len(ta)-1]
	gb := tb[:len(tb)-1]
	n := min(len(ga), len(gb))
	for i := 0; i < n; i++ {
		if !tokenInitialMatch(ga[i], gb[i]) {
			return false
		}
	}
	return true
}

func tokenInitialMatch(a, b string) bool {
	if a == b {
		return true
	}
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 1 {
		return len(rb) > 0 && rb[0] == ra[0]
	}
	if len(rb) == 1 {
		return len(ra) > 0 && ra[0] == rb[0]
	}
	return false
}

// ORCID is three-valued: both present and equal, both present and
// different, or no information. Missing scores 0.5 so the baseline backend
// treats it as neutral evidence.
func ORCID(mentionORCID, profileORCID string) Comparison {
	m := entity.CleanORCID(mentionORCID)
	p := entity.CleanORCID(profileORCID)
	switch {
	case m == "" || p == "":
		return Comparison{Sim: 0.5, Bin: BinMissing}
	case m == p:
		return Comparison{Sim: 1.0, Bin: BinMatch}
	default:
		return Comparison{Sim: 0.0, Bin: BinMismatch}
	}
}

// Coauthors compares surname+initial projections of the mention's coauthor
// names against the candidate profile's coauthor projection with Jaccard.
func Coauthors(mentionKeys, profileKeys map[string]struct{}) Comparison {
	s := textsim.Jaccard(mentionKeys, profileKeys)
	return Comparison{Sim: s, Bin: binSteps(s)}
}

// Journals compares normalized journal-title sets with Jaccard.
func Journals(mentionJournals, profileJournals map[string]struct{}) Comparison {
	s := textsim.Jaccard(normalizeTitleSet(mentionJournals), normalizeTitleSet(profileJournals))
	return Comparison{Sim: s, Bin: binSteps(s)}
}

// Affiliations takes the best pairwise Jaro-Winkler over normalized
// institutions.
func Affiliations(mentionAffs []string, profileAffs map[string]struct{}) Comparison {
	var best float64
	for _, ma := range mentionAffs {
		nm := entity.NormalizeInstitution(ma)
		if nm == "" {
			continue
		}
		for pa := range profileAffs {
			np := entity.NormalizeInstitution(pa)
			if np == "" {
				continue
			}
			if s := textsim.JaroWinkler(nm, np); s > best {
				best = s
			}
		}
	}
	return Comparison{Sim: best, Bin: binLadder(best)}
}

// CoauthorKeys projects a list of raw coauthor names to the surname/initial
// key set used for coauthor comparison.
func CoauthorKeys(names []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(names))
	for _, n := range names {
		if k := entity.SurnameInitialKey(n); k != "" {
			keys[k] = struct{}{}
		}
	}
	return keys
}

func normalizeTitleSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for s := range in {
		if n := entity.NormalizeTitle(s); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

// binLadder is the exact/high/medium/low/none ladder shared by the name and
// affiliation features.
func binLadder(s float64) string {
	switch {
	case s >= 0.98:
		return BinExact
	case s >= 0.90:
		return BinHigh
	case s >= 0.75:
		return BinMedium
	case s >= 0.60:
		return BinLow
	default:
		return BinNone
	}
}

// binSteps is the high/medium/low/none ladder shared by the coauthor and
// journal features.
func binSteps(s float64) string {
	switch {
	case s >= 0.5:
		return BinHigh
	case s >= 0.2:
		return BinMedium
	case s > 0:
		return BinLow
	default:
		return BinNone
	}
}

// BinsFor returns the complete set of bins a feature can produce. The MU
// table loader uses this to demand full coverage.
func BinsFor(feature string) []string {
	switch feature {
	case FeatureName, FeatureAffiliation:
		return []string{BinExact, BinHigh, BinMedium, BinLow, BinNone}
	case FeatureORCID:
		return []string{BinMatch, BinMismatch, BinMissing}
	case FeatureCoauthor, FeatureJournal:
		return []string{BinHigh, BinMedium, BinLow, BinNone}
	}
	return nil
}
