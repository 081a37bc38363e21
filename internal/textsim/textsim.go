// Package textsim implements the string similarity primitives used by the
// comparators and the article deduplicator: Jaro-Winkler for names and
// institutions, Damerau-Levenshtein for titles, and Jaccard for sets.
// All functions are pure and operate on runes, not bytes.
package textsim

// Jaro returns the Jaro similarity of two strings in [0,1].
func Jaro(s1, s2 string) float64 {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 && len(r2) == 0 {
		return 1
	}
	if len(r1) == 0 || len(r2) == 0 {
		return 0
	}
	if string(r1) == string(r2) {
		return 1
	}

	window := max(len(r1), len(r2))/2 - 1
	if window < 0 {
		window = 0
	}

	match1 := make([]bool, len(r1))
	match2 := make([]bool, len(r2))
	var matches int
	for i := range r1 {
		lo := max(0, i-window)
		hi := min(len(r2)-1, i+window)
		for j := lo; j <= hi; j++ {
			if match2[j] || r1[i] != r2[j] {
				continue
			}
			match1[i] = true
			match2[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	var transpositions, k int
	for i := range r1 {
		if !match1[i] {
			continue
		}
		for !match2[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(r1)) + m/float64(len(r2)) + (m-t)/m) / 3
}

// JaroWinkler boosts the Jaro similarity for strings sharing a common
// prefix, with the standard scaling factor 0.1 and a prefix cap of 4.
func JaroWinkler(s1, s2 string) float64 {
	j := Jaro(s1, s2)
	if j == 0 {
		return 0
	}
	r1 := []rune(s1)
	r2 := []rune(s2)
	prefix := 0
	for prefix < len(r1) && prefix < len(r2) && prefix < 4 && r1[prefix] == r2[prefix] {
		prefix++
	}
	return j + float64(prefix)*0.1*(1-j)
}

// DamerauLevenshtein returns the optimal-string-alignment edit distance:
// insertions, deletions, substitutions, and adjacent transpositions.
func DamerauLevenshtein(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	n1 := len(r1)
	n2 := len(r2)
	if n1 == 0 {
		return n2
	}
	if n2 == 0 {
		return n1
	}

	// Three rolling rows: i-2, i-1, i.
	prev2 := make([]int, n2+1)
	prev := make([]int, n2+1)
	cur := make([]int, n2+1)
	for j := 0; j <= n2; j++ {
		prev[j] = j
	}
	for i := 1; i <= n1; i++ {
		cur[0] = i
		for j := 1; j <= n2; j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
			if i > 1 && j > 1 && r1[i-1] == r2[j-2] && r1[i-2] == r2[j-1] {
				cur[j] = min(cur[j], prev2[j-2]+1)
			}
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[n2]
}

// DamerauLevenshteinRatio maps the edit distance to a similarity in [0,1]:
// 1 - distance/max(len). Two empty strings are identical (ratio 1).
func DamerauLevenshteinRatio(s1, s2 string) float64 {
	n1 := len([]rune(s1))
	n2 := len([]rune(s2))
	if n1 == 0 && n2 == 0 {
		return 1
	}
	longest := max(n1, n2)
	d := DamerauLevenshtein(s1, s2)
	r := 1 - float64(d)/float64(longest)
	if r < 0 {
		return 0
	}
	return r
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets are disjoint by
// convention here (0, not 1): an empty comparison set carries no evidence
// of a match.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	var inter int
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
