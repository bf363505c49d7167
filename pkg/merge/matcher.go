package merge

import (
	"regexp"
	"strings"

	"fable/pkg/utils"
)

// NameMatcher decides when two raw name strings refer to the same
// character. Injected so callers can swap in stricter or looser policies
// without touching the merge algorithm.
type NameMatcher interface {
	// Canonicalize maps a display name to its stable identity key. Must be
	// idempotent: Canonicalize(Canonicalize(n)) == Canonicalize(n).
	Canonicalize(name string) string

	// IsVariant reports whether candidate refers to the character currently
	// known by display, given every raw form seen so far.
	IsVariant(candidate, display string, variants []string) bool
}

var (
	namePunctRX = regexp.MustCompile(`[^\p{L}\p{N}' ]+`)
	spaceRX     = regexp.MustCompile(`\s+`)
)

var honorifics = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "dr": {}, "sir": {},
	"madam": {}, "madame": {}, "lady": {}, "lord": {}, "professor": {},
	"prof": {}, "captain": {}, "aunt": {}, "uncle": {},
}

// SimilarityMatcher is the default policy: case-fold plus honorific and
// punctuation stripping for identity, then token containment or edit
// distance for variants. "Harry" matches "Harry Potter" by containment;
// "Hermione"/"Hermoine" match by similarity. The threshold is a tunable
// policy, not an exact science; 0.85 keeps "Harry"/"Larry" apart.
type SimilarityMatcher struct {
	Threshold float64
}

func NewSimilarityMatcher() *SimilarityMatcher {
	return &SimilarityMatcher{Threshold: 0.85}
}

func (m *SimilarityMatcher) Canonicalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = namePunctRX.ReplaceAllString(s, " ")
	s = strings.TrimSpace(spaceRX.ReplaceAllString(s, " "))

	fields := strings.Fields(s)
	// A title used alone may be the character's actual name, so only strip
	// honorifics that precede something else.
	for len(fields) > 1 {
		if _, ok := honorifics[fields[0]]; !ok {
			break
		}
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

func (m *SimilarityMatcher) IsVariant(candidate, display string, variants []string) bool {
	cc := m.Canonicalize(candidate)
	if cc == "" {
		return false
	}
	known := make([]string, 0, len(variants)+1)
	known = append(known, display)
	known = append(known, variants...)

	for _, k := range known {
		ck := m.Canonicalize(k)
		if ck == "" {
			continue
		}
		if cc == ck {
			return true
		}
		if tokenSubset(cc, ck) || tokenSubset(ck, cc) {
			return true
		}
		if utils.Similarity(cc, ck) >= m.Threshold {
			return true
		}
	}
	return false
}

// tokenSubset reports whether every token of a appears among b's tokens.
func tokenSubset(a, b string) bool {
	at := strings.Fields(a)
	bt := strings.Fields(b)
	if len(at) == 0 || len(at) > len(bt) {
		return false
	}
	set := make(map[string]struct{}, len(bt))
	for _, t := range bt {
		set[t] = struct{}{}
	}
	for _, t := range at {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
