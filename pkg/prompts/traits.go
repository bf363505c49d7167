package prompts

import (
	"encoding/json"
	"fmt"

	"fable/pkg/budget"
	"fable/pkg/jsonfix"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

var traitsBudget = budget.Must(260, 2048, 512)

type TraitsInput struct {
	Character string
	Context   string
}

type TraitsOutput struct {
	Character string
	Traits    []string
	Voice     *schema.VoiceProfile
}

// Traits extracts observable traits and a suggested voice profile for one
// character from aggregated context.
type Traits struct{}

func (Traits) Purpose() string            { return "traits and voice" }
func (Traits) Budget() budget.TokenBudget { return traitsBudget }
func (Traits) Temperature() float64       { return 0.2 }

func (Traits) System() string {
	return "You are a character analyst for TTS voice casting. Extract observable traits and suggest a voice profile. JSON only."
}

func (Traits) PrepareInput(in TraitsInput) TraitsInput {
	in.Context = utils.TruncateAtBoundary(in.Context, traitsBudget.MaxInputChars())
	return in
}

func (Traits) UserPrompt(in TraitsInput) string {
	return fmt.Sprintf(`CHARACTER: %q

TEXT:
%s

EXTRACT CONCISE TRAITS (1-2 words only):
- Examples: "gravelly voice", "nervous fidgeting", "dry humor"
- Only traits directly stated or shown in the text
- Do NOT include traits of other characters

OUTPUT FORMAT (valid JSON only):
{
  "character": %q,
  "traits": ["trait1", "trait2", "trait3"],
  "voice_profile": {"gender": "male|female", "age": "child|young|young-adult|middle-aged|elderly", "accent": "neutral|british|american|asian", "pitch": 1.0, "speed": 1.0}
}
%s`, in.Character, in.Context, in.Character, jsonReminder)
}

func (Traits) Parse(raw string) TraitsOutput {
	doc := jsonfix.ExtractObject(raw)
	var resp struct {
		Character string          `json:"character"`
		Traits    []string        `json:"traits"`
		Voice     json.RawMessage `json:"voice_profile"`
		VoiceAlt  json.RawMessage `json:"voice"`
	}
	if err := json.Unmarshal([]byte(doc), &resp); err != nil {
		return TraitsOutput{}
	}
	out := TraitsOutput{Character: resp.Character}
	for _, t := range resp.Traits {
		if t != "" {
			out.Traits = append(out.Traits, t)
		}
	}
	out.Voice = parseVoiceValue(resp.Voice)
	if out.Voice == nil {
		out.Voice = parseVoiceValue(resp.VoiceAlt)
	}
	return out
}
