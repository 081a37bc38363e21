package entity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// titleStopwords are removed from normalized titles. The set is fixed;
// changing it silently changes every dedup key.
var titleStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "for": {},
	"and": {}, "in": {}, "on": {}, "to": {}, "by": {},
}

var orcidPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{4}-[0-9]{4}-[0-9]{3}[0-9X]$`)

var doiPrefixPattern = regexp.MustCompile(`^https?://(dx\.)?doi\.org/`)

// NormalizeName lowercases, applies Unicode NFKC, maps punctuation to
// spaces, and collapses whitespace. Idempotent.
func NormalizeName(name string) string {
	s := norm.NFKC.String(name)
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeTitle lowercases, applies NFKC, strips punctuation, removes the
// fixed stopword set, and collapses whitespace. A deterministic, idempotent
// function of the raw title; the dedup title index is keyed on its output.
func NormalizeTitle(title string) string {
	s := norm.NFKC.String(title)
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, stop := titleStopwords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// NormalizeDOI lowercases, strips any doi.org URL prefix, and trims
// whitespace. Empty input stays empty.
func NormalizeDOI(doi string) string {
	s := strings.TrimSpace(strings.ToLower(doi))
	s = doiPrefixPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// NormalizeInstitution normalizes an affiliation string for comparison and
// index keys: NFKC, lowercase, common abbreviations (university → univ,
// institute → inst, department → dept), punctuation stripped, whitespace
// collapsed.
func NormalizeInstitution(affiliation string) string {
	s := NormalizeName(affiliation)
	words := strings.Fields(s)
	for i, w := range words {
		switch w {
		case "university":
			words[i] = "univ"
		case "institute":
			words[i] = "inst"
		case "department":
			words[i] = "dept"
		}
	}
	return strings.Join(words, " ")
}

// CleanORCID strips any orcid.org URL prefix and surrounding whitespace.
// It does not validate; see ValidORCID.
func CleanORCID(orcid string) string {
	s := strings.TrimSpace(orcid)
	s = strings.TrimPrefix(s, "http://orcid.org/")
	s = strings.TrimPrefix(s, "https://orcid.org/")
	return strings.TrimSpace(s)
}

// ValidORCID reports whether the (already cleaned) string matches the
// dddd-dddd-dddd-dddX ORCID shape. Invalid ORCIDs are dropped at ingest
// with a warning; they never fail a decision.
func ValidORCID(orcid string) bool {
	return orcidPattern.MatchString(orcid)
}

// Surname returns the last token of the normalized name, the primary
// blocking key. Empty when the name has no tokens.
func Surname(name string) string {
	fields := strings.Fields(NormalizeName(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// FirstInitial returns the first rune of the first token of the normalized
// name, or the empty string for empty names.
func FirstInitial(name string) string {
	fields := strings.Fields(NormalizeName(name))
	if len(fields) == 0 || fields[0] == "" {
		return ""
	}
	return string([]rune(fields[0])[0])
}

// SurnameInitialKey projects a name to "surname/initial", the secondary
// blocking key and the coauthor comparison key.
func SurnameInitialKey(name string) string {
	s := Surname(name)
	if s == "" {
		return ""
	}
	return s + "/" + FirstInitial(name)
}
