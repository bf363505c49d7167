package merge

import "testing"

func TestCanonicalizeIdempotent(t *testing.T) {
	m := NewSimilarityMatcher()
	names := []string{
		"Harry Potter",
		"Mr. Dursley",
		"PROFESSOR McGonagall",
		"  Hermione  ",
		"O'Brien",
		"Professor", // a title alone stays a name
		"Mr. Mr. Smith",
		"Élodie",
		"",
		"...",
	}
	for _, n := range names {
		once := m.Canonicalize(n)
		twice := m.Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize not idempotent for %q: %q -> %q", n, once, twice)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	m := NewSimilarityMatcher()
	tests := []struct{ in, want string }{
		{"Harry Potter", "harry potter"},
		{"Mr. Dursley", "dursley"},
		{"Professor McGonagall", "mcgonagall"},
		{"Professor", "professor"},
		{"O'Brien", "o'brien"},
		{"  Ron   Weasley ", "ron weasley"},
	}
	for _, tt := range tests {
		if got := m.Canonicalize(tt.in); got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsVariant(t *testing.T) {
	m := NewSimilarityMatcher()
	tests := []struct {
		name      string
		candidate string
		display   string
		variants  []string
		want      bool
	}{
		{"containment forward", "Harry", "Harry Potter", nil, true},
		{"containment reverse", "Harry Potter", "Harry", nil, true},
		{"honorific variant", "Mr. Dursley", "Dursley", nil, true},
		{"typo within threshold", "Hermionee", "Hermione", nil, true},
		{"matches recorded variant", "Potter", "The Boy Who Lived", []string{"Harry Potter"}, true},
		{"different name", "Ron", "Harry Potter", nil, false},
		{"close but distinct", "Harry", "Larry", nil, false},
		{"empty candidate", "", "Harry", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.IsVariant(tt.candidate, tt.display, tt.variants); got != tt.want {
				t.Errorf("IsVariant(%q, %q, %v) = %v, want %v", tt.candidate, tt.display, tt.variants, got, tt.want)
			}
		})
	}
}
