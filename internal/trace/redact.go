// Package trace emits the audit trail: one JSONL decision record per
// processed mention, plus a review queue for decisions that land between
// the thresholds. Records never contain plaintext names, titles, DOIs, or
// institutions; identifying strings are salted hashes and structural
// summaries only.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/istina-lab/adis/internal/entity"
)

// Script labels for the structural name summary.
const (
	ScriptLatin    = "latin"
	ScriptCyrillic = "cyrillic"
	ScriptCJK      = "cjk"
	ScriptMixed    = "mixed"
	ScriptOther    = "other"
)

// NameStructure is the privacy-preserving shape of a name: enough to debug
// tokenizer and comparator behavior, not enough to recover the name.
type NameStructure struct {
	TokenCount     int     `json:"token_count"`
	AvgTokenLength float64 `json:"avg_token_length"`
	ScriptType     string  `json:"script_type"`
}

// Redactor hashes identifying strings with a per-run salt.
type Redactor struct {
	salt string
}

// NewRedactor returns a redactor for the given salt. The salt is part of
// run configuration, so reruns with the same config redact identically.
func NewRedactor(salt string) *Redactor {
	return &Redactor{salt: salt}
}

// Name returns the first 12 hex characters of sha256(salt || normalized
// name). Equal names redact equally within a run, which keeps traces
// diffable without exposing the name.
func (r *Redactor) Name(name string) string {
	sum := sha256.Sum256([]byte(r.salt + entity.NormalizeName(name)))
	return hex.EncodeToString(sum[:])[:12]
}

// Key redacts a blocking-key value the same way names are redacted.
func (r *Redactor) Key(value string) string {
	sum := sha256.Sum256([]byte(r.salt + value))
	return hex.EncodeToString(sum[:])[:12]
}

// Structure summarizes a raw name without retaining it.
func Structure(name string) NameStructure {
	tokens := strings.Fields(entity.NormalizeName(name))
	st := NameStructure{TokenCount: len(tokens), ScriptType: scriptType(name)}
	if len(tokens) == 0 {
		return st
	}
	var total int
	for _, tok := range tokens {
		total += len([]rune(tok))
	}
	st.AvgTokenLength = float64(total) / float64(len(tokens))
	return st
}

func scriptType(s string) string {
	var latin, cyrillic, cjk, other bool
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r):
		case unicode.Is(unicode.Latin, r):
			latin = true
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic = true
		case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r),
			unicode.Is(unicode.Katakana, r), unicode.Is(unicode.Hangul, r):
			cjk = true
		default:
			other = true
		}
	}
	var seen int
	for _, b := range []bool{latin, cyrillic, cjk, other} {
		if b {
			seen++
		}
	}
	switch {
	case seen > 1:
		return ScriptMixed
	case latin:
		return ScriptLatin
	case cyrillic:
		return ScriptCyrillic
	case cjk:
		return ScriptCJK
	case other:
		return ScriptOther
	}
	return ScriptOther
}
