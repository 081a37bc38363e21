package entity

import (
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "John Smith", "john smith"},
		{"initials", "J. A. Smith", "j a smith"},
		{"hyphen", "Jean-Pierre Dupont", "jean pierre dupont"},
		{"extra spaces", "  John   Smith ", "john smith"},
		{"empty", "", ""},
		{"unicode width", "Ｊｏｈｎ Smith", "john smith"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"stopwords", "The Genome of the Sea Urchin", "genome sea urchin"},
		{"punctuation", "Machine Learning: A Survey, Part II", "machine learning survey part ii"},
		{"case", "DEEP LEARNING FOR NLP", "deep learning nlp"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTitle(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Normalization must be idempotent: the dedup and blocking indices key on
// normalized strings, so re-normalizing a key must not move it.
func TestNormalizationIdempotent(t *testing.T) {
	inputs := []string{
		"The Genome of the Sea Urchin",
		"J. A. Smith",
		"https://doi.org/10.1038/Nature12373",
		"Dept. of Computer Science, Stanford University",
		"Пётр Иванов",
		"张伟",
	}
	for _, in := range inputs {
		if got, want := NormalizeName(NormalizeName(in)), NormalizeName(in); got != want {
			t.Errorf("NormalizeName not idempotent on %q: %q != %q", in, got, want)
		}
		if got, want := NormalizeTitle(NormalizeTitle(in)), NormalizeTitle(in); got != want {
			t.Errorf("NormalizeTitle not idempotent on %q: %q != %q", in, got, want)
		}
		if got, want := NormalizeDOI(NormalizeDOI(in)), NormalizeDOI(in); got != want {
			t.Errorf("NormalizeDOI not idempotent on %q: %q != %q", in, got, want)
		}
		if got, want := NormalizeInstitution(NormalizeInstitution(in)), NormalizeInstitution(in); got != want {
			t.Errorf("NormalizeInstitution not idempotent on %q: %q != %q", in, got, want)
		}
	}
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1038/nature12373", "10.1038/nature12373"},
		{"https://doi.org/10.1038/NATURE12373", "10.1038/nature12373"},
		{"http://dx.doi.org/10.1126/science.123", "10.1126/science.123"},
		{" 10.1038/X ", "10.1038/x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDOI(tt.in); got != tt.want {
			t.Errorf("NormalizeDOI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeInstitution(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Stanford University", "stanford univ"},
		{"Stanford Univ", "stanford univ"},
		{"Department of Physics, MIT", "dept of physics mit"},
		{"Institute for Advanced Study", "inst for advanced study"},
	}
	for _, tt := range tests {
		if got := NormalizeInstitution(tt.in); got != tt.want {
			t.Errorf("NormalizeInstitution(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestORCIDValidation(t *testing.T) {
	valid := []string{
		"0000-0001-2345-6789",
		"0000-0002-1825-009X",
	}
	for _, o := range valid {
		if !ValidORCID(o) {
			t.Errorf("ValidORCID(%q) = false, want true", o)
		}
	}
	invalid := []string{
		"",
		"0000-0001-2345-678",
		"0000-0001-2345-67890",
		"0000_0001_2345_6789",
		"abcd-0001-2345-6789",
		"0000-0001-2345-678x", // checksum char must be uppercase
	}
	for _, o := range invalid {
		if ValidORCID(o) {
			t.Errorf("ValidORCID(%q) = true, want false", o)
		}
	}
}

func TestCleanORCID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://orcid.org/0000-0001-2345-6789", "0000-0001-2345-6789"},
		{"http://orcid.org/0000-0001-2345-6789", "0000-0001-2345-6789"},
		{" 0000-0001-2345-6789 ", "0000-0001-2345-6789"},
	}
	for _, tt := range tests {
		if got := CleanORCID(tt.in); got != tt.want {
			t.Errorf("CleanORCID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSurnameAndInitial(t *testing.T) {
	tests := []struct {
		name    string
		surname string
		initial string
		key     string
	}{
		{"John Smith", "smith", "j", "smith/j"},
		{"J. Smith", "smith", "j", "smith/j"},
		{"Maria del Carmen Garcia", "garcia", "m", "garcia/m"},
		{"Smith", "smith", "s", "smith/s"},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		if got := Surname(tt.name); got != tt.surname {
			t.Errorf("Surname(%q) = %q, want %q", tt.name, got, tt.surname)
		}
		if got := FirstInitial(tt.name); got != tt.initial {
			t.Errorf("FirstInitial(%q) = %q, want %q", tt.name, got, tt.initial)
		}
		if got := SurnameInitialKey(tt.name); got != tt.key {
			t.Errorf("SurnameInitialKey(%q) = %q, want %q", tt.name, got, tt.key)
		}
	}
}

func TestCoauthorNames(t *testing.T) {
	pub := &Publication{
		PublicationID: "pub_000001",
		Mentions: []AuthorMention{
			{MentionID: "pub_000001:1", Name: "John Smith", Position: 1},
			{MentionID: "pub_000001:2", Name: "Maria Garcia", Position: 2},
			{MentionID: "pub_000001:3", Name: "David Chen", Position: 3},
		},
	}
	got := pub.CoauthorNames(2)
	want := []string{"John Smith", "David Chen"}
	if len(got) != len(want) {
		t.Fatalf("CoauthorNames(2) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CoauthorNames(2)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
