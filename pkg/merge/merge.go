// Package merge folds per-batch character extractions into one coherent
// per-book character model, resolving name variants as they arrive.
package merge

import (
	"slices"
	"strings"

	"fable/pkg/schema"
)

// MergedCharacter is the long-lived accumulator entry for one character.
// It is created on first sighting, mutated in place on every later batch
// that resolves to the same identity, and never deleted within a session.
type MergedCharacter struct {
	// Name is the display name, upgraded to the longest variant seen; a
	// longer name is usually the more complete one.
	Name string
	// Canonical is the stable accumulator key. It never changes after the
	// entry is created, even when Name does.
	Canonical string
	// Dialogs preserve first-seen order across batches and are never
	// deduplicated; characters repeat themselves.
	Dialogs []string
	Traits  []string
	// Personality holds synthesized descriptors; a later synthesis covers
	// more traits, so the newest non-empty list replaces the old one.
	Personality []string
	Voice       *schema.VoiceProfile
	// Variants holds every raw name form that resolved to this entry.
	Variants []string

	traitSeen   map[string]struct{}
	variantSeen map[string]struct{}
}

func (m *MergedCharacter) addVariant(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	if _, ok := m.variantSeen[raw]; ok {
		return
	}
	m.variantSeen[raw] = struct{}{}
	m.Variants = append(m.Variants, raw)
}

// addTrait dedupes case-insensitively but keeps the first-seen casing.
func (m *MergedCharacter) addTrait(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	key := strings.ToLower(t)
	if _, ok := m.traitSeen[key]; ok {
		return
	}
	m.traitSeen[key] = struct{}{}
	m.Traits = append(m.Traits, t)
}

// State is the accumulator threaded through a sequence of Merge calls. It
// has no internal locking: it is a sequential fold over an ordered batch
// stream, and concurrent Merge calls on one State are a caller bug.
// Insertion order is tracked so variant scans are deterministic.
type State struct {
	entries map[string]*MergedCharacter
	order   []string
}

func NewState() *State {
	return &State{entries: make(map[string]*MergedCharacter)}
}

func (s *State) Len() int { return len(s.order) }

// Get looks up an entry by canonical name.
func (s *State) Get(canonical string) (*MergedCharacter, bool) {
	e, ok := s.entries[canonical]
	return e, ok
}

// VoiceMerger reconciles partial voice profiles arriving across batches.
type VoiceMerger interface {
	Merge(existing, incoming *schema.VoiceProfile) *schema.VoiceProfile
}

// PreferDetailed keeps, per field, whichever side carries extracted
// information, with the existing profile winning when both do. Given the
// same two inputs the result is always the same.
type PreferDetailed struct{}

func (PreferDetailed) Merge(existing, incoming *schema.VoiceProfile) *schema.VoiceProfile {
	if incoming == nil {
		return existing
	}
	in := incoming.Normalize()
	if existing == nil {
		return &in
	}
	def := schema.DefaultVoice()
	out := existing.Normalize()
	if out.Gender == def.Gender && in.Gender != def.Gender {
		out.Gender = in.Gender
	}
	if out.Age == def.Age && in.Age != def.Age {
		out.Age = in.Age
	}
	if out.Accent == def.Accent && in.Accent != def.Accent {
		out.Accent = in.Accent
	}
	if out.Pitch == def.Pitch && in.Pitch != def.Pitch {
		out.Pitch = in.Pitch
	}
	if out.Speed == def.Speed && in.Speed != def.Speed {
		out.Speed = in.Speed
	}
	return &out
}

// Merger folds batches into a State. The matcher and voice strategies are
// explicit dependencies rather than package globals so sessions can be
// isolated.
type Merger struct {
	matcher NameMatcher
	voices  VoiceMerger
}

type Option func(*Merger)

func WithMatcher(m NameMatcher) Option { return func(mg *Merger) { mg.matcher = m } }

func WithVoiceMerger(v VoiceMerger) Option { return func(mg *Merger) { mg.voices = v } }

func New(opts ...Option) *Merger {
	m := &Merger{
		matcher: NewSimilarityMatcher(),
		voices:  PreferDetailed{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge folds one batch into state and returns it, fold-style. Lookup is
// by exact canonical key first, then a variant scan over existing entries
// in insertion order. A name that fuzzy-matches two entries lands on the
// earlier one; that is a known ambiguity of the matching policy, not a
// guaranteed-correct disambiguation.
func (m *Merger) Merge(state *State, batch []schema.ExtractedCharacter) *State {
	if state == nil {
		state = NewState()
	}
	for _, c := range batch {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		canonical := m.matcher.Canonicalize(name)
		if canonical == "" {
			continue
		}

		entry, ok := state.entries[canonical]
		if !ok {
			for _, key := range state.order {
				e := state.entries[key]
				if m.matcher.IsVariant(name, e.Name, e.Variants) {
					entry = e
					break
				}
			}
		}

		if entry == nil {
			entry = &MergedCharacter{
				Name:        name,
				Canonical:   canonical,
				traitSeen:   make(map[string]struct{}),
				variantSeen: make(map[string]struct{}),
			}
			state.entries[canonical] = entry
			state.order = append(state.order, canonical)
		}

		entry.addVariant(name)
		if len(name) > len(entry.Name) {
			entry.Name = name
		}
		entry.Dialogs = append(entry.Dialogs, c.Dialogs...)
		for _, t := range c.Traits {
			entry.addTrait(t)
		}
		if len(c.Personality) > 0 {
			entry.Personality = slices.Clone(c.Personality)
		}
		entry.Voice = m.voices.Merge(entry.Voice, c.Voice)
	}
	return state
}

// ToList produces the final immutable view, sorted by dialog count
// descending on the assumption that characters with more captured dialog
// are more central. Ties keep first-seen order.
func (m *Merger) ToList(state *State) []schema.Character {
	if state == nil {
		return nil
	}
	out := make([]schema.Character, 0, len(state.order))
	for _, key := range state.order {
		e := state.entries[key]
		out = append(out, schema.Character{
			Name:        e.Name,
			Variants:    slices.Clone(e.Variants),
			Dialogs:     slices.Clone(e.Dialogs),
			Traits:      slices.Clone(e.Traits),
			Personality: slices.Clone(e.Personality),
			Voice:       e.Voice,
		})
	}
	slices.SortStableFunc(out, func(a, b schema.Character) int {
		return len(b.Dialogs) - len(a.Dialogs)
	})
	return out
}
