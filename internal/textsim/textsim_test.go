package textsim

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-4
}

func TestJaro(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   float64
	}{
		{"martha", "marhta", 0.9444},
		{"dixon", "dicksonx", 0.7667},
		{"same", "same", 1.0},
		{"", "", 1.0},
		{"abc", "", 0.0},
		{"abc", "xyz", 0.0},
	}
	for _, tt := range tests {
		if got := Jaro(tt.s1, tt.s2); !almostEqual(got, tt.want) {
			t.Errorf("Jaro(%q, %q) = %.4f, want %.4f", tt.s1, tt.s2, got, tt.want)
		}
	}
}

func TestJaroWinkler(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   float64
	}{
		{"martha", "marhta", 0.9611},
		{"dwayne", "duane", 0.8400},
		{"john smith", "john smith", 1.0},
		{"", "x", 0.0},
	}
	for _, tt := range tests {
		if got := JaroWinkler(tt.s1, tt.s2); !almostEqual(got, tt.want) {
			t.Errorf("JaroWinkler(%q, %q) = %.4f, want %.4f", tt.s1, tt.s2, got, tt.want)
		}
	}
}

func TestJaroWinklerSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"zhang wei", "zhang wei ming"},
		{"j smith", "john smith"},
		{"иванов", "иванова"},
	}
	for _, p := range pairs {
		a := JaroWinkler(p[0], p[1])
		b := JaroWinkler(p[1], p[0])
		if !almostEqual(a, b) {
			t.Errorf("JaroWinkler not symmetric on %q/%q: %.6f vs %.6f", p[0], p[1], a, b)
		}
	}
}

func TestDamerauLevenshtein(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"abcd", "acbd", 1}, // single transposition
		{"abcd", "abcd", 0},
		{"genome sea urchin", "genome sea urchins", 1},
	}
	for _, tt := range tests {
		if got := DamerauLevenshtein(tt.s1, tt.s2); got != tt.want {
			t.Errorf("DamerauLevenshtein(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.want)
		}
	}
}

func TestDamerauLevenshteinRatio(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   float64
	}{
		{"", "", 1.0},
		{"abc", "abc", 1.0},
		{"abc", "xyz", 0.0},
		{"genome sea urchin", "genome sea urchins", 1.0 - 1.0/18.0},
	}
	for _, tt := range tests {
		if got := DamerauLevenshteinRatio(tt.s1, tt.s2); !almostEqual(got, tt.want) {
			t.Errorf("DamerauLevenshteinRatio(%q, %q) = %.4f, want %.4f", tt.s1, tt.s2, got, tt.want)
		}
	}
}

func TestJaccard(t *testing.T) {
	set := func(items ...string) map[string]struct{} {
		m := make(map[string]struct{}, len(items))
		for _, s := range items {
			m[s] = struct{}{}
		}
		return m
	}
	tests := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{"identical", set("x", "y"), set("x", "y"), 1.0},
		{"half", set("x", "y"), set("y", "z"), 1.0 / 3.0},
		{"disjoint", set("x"), set("y"), 0.0},
		{"both empty", set(), set(), 0.0},
		{"one empty", set("x"), set(), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("Jaccard = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}
