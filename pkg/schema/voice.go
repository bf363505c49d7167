package schema

import (
	"strconv"
	"strings"
)

// Voice profile enumerations. Extraction prompts constrain the model to
// these values; Normalize maps the drift that happens anyway.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderNeutral = "neutral"

	AgeChild      = "child"
	AgeYoung      = "young"
	AgeYoungAdult = "young-adult"
	AgeMiddleAged = "middle-aged"
	AgeElderly    = "elderly"

	AccentNeutral = "neutral"
)

const (
	MinPitch = 0.5
	MaxPitch = 1.5
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// VoiceProfile drives TTS voice assignment for one character.
type VoiceProfile struct {
	Gender string  `json:"gender"`
	Age    string  `json:"age"`
	Accent string  `json:"accent"`
	Pitch  float64 `json:"pitch"`
	Speed  float64 `json:"speed"`
}

// DefaultVoice is the profile used when extraction yields nothing for a
// character, including the synthetic Narrator.
func DefaultVoice() VoiceProfile {
	return VoiceProfile{
		Gender: GenderNeutral,
		Age:    AgeYoungAdult,
		Accent: AccentNeutral,
		Pitch:  1.0,
		Speed:  1.0,
	}
}

var ageAliases = map[string]string{
	"kid":         AgeChild,
	"teen":        AgeYoung,
	"teenager":    AgeYoung,
	"adult":       AgeYoungAdult,
	"young adult": AgeYoungAdult,
	"middle aged": AgeMiddleAged,
	"middle-age":  AgeMiddleAged,
	"old":         AgeElderly,
	"senior":      AgeElderly,
}

// Normalize lowercases enum fields, resolves age aliases, fills empty
// fields from the default profile, and clamps pitch and speed into range.
func (v VoiceProfile) Normalize() VoiceProfile {
	def := DefaultVoice()

	v.Gender = strings.ToLower(strings.TrimSpace(v.Gender))
	if v.Gender != GenderMale && v.Gender != GenderFemale {
		v.Gender = def.Gender
	}

	v.Age = strings.ToLower(strings.TrimSpace(v.Age))
	if mapped, ok := ageAliases[v.Age]; ok {
		v.Age = mapped
	}
	switch v.Age {
	case AgeChild, AgeYoung, AgeYoungAdult, AgeMiddleAged, AgeElderly:
	default:
		v.Age = def.Age
	}

	v.Accent = strings.ToLower(strings.TrimSpace(v.Accent))
	if v.Accent == "" {
		v.Accent = def.Accent
	}

	v.Pitch = clamp(v.Pitch, MinPitch, MaxPitch, def.Pitch)
	v.Speed = clamp(v.Speed, MinSpeed, MaxSpeed, def.Speed)
	return v
}

// DetailScore counts fields carrying extracted (non-default) information.
// Used by the prefer-more-detailed merge strategy.
func (v VoiceProfile) DetailScore() int {
	def := DefaultVoice()
	score := 0
	if v.Gender != "" && v.Gender != def.Gender {
		score++
	}
	if v.Age != "" && v.Age != def.Age {
		score++
	}
	if v.Accent != "" && v.Accent != def.Accent {
		score++
	}
	if v.Pitch != 0 && v.Pitch != def.Pitch {
		score++
	}
	if v.Speed != 0 && v.Speed != def.Speed {
		score++
	}
	return score
}

// ParseVoiceString parses the compact wire tuple "Gender,Age,Accent,Pitch,Speed".
// The legacy three-field "Gender,Age,Accent" form still appears in older
// model outputs and parses with default pitch and speed. Returns false when
// the string carries no usable fields.
func ParseVoiceString(s string) (VoiceProfile, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return VoiceProfile{}, false
	}
	parts := strings.Split(s, ",")
	v := DefaultVoice()
	if len(parts) >= 1 {
		v.Gender = strings.ToLower(strings.TrimSpace(parts[0]))
	}
	if len(parts) >= 2 {
		v.Age = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	if len(parts) >= 3 {
		v.Accent = strings.ToLower(strings.TrimSpace(parts[2]))
	}
	if len(parts) >= 4 {
		if f, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err == nil {
			v.Pitch = f
		}
	}
	if len(parts) >= 5 {
		if f, err := strconv.ParseFloat(strings.TrimSpace(parts[4]), 64); err == nil {
			v.Speed = f
		}
	}
	return v.Normalize(), true
}

func clamp(f, lo, hi, def float64) float64 {
	switch {
	case f == 0:
		return def
	case f < lo:
		return lo
	case f > hi:
		return hi
	default:
		return f
	}
}
