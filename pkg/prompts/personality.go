package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"fable/pkg/budget"
	"fable/pkg/jsonfix"
)

var personalityBudget = budget.Must(200, 512, 256)

type PersonalityInput struct {
	Character string
	Traits    []string
}

type PersonalityOutput struct {
	Character   string
	Personality []string
}

// Personality synthesizes extracted traits into a handful of personality
// descriptors. Runs on trait lists, not raw text, so its input budget is
// small.
type Personality struct{}

func (Personality) Purpose() string            { return "personality inference" }
func (Personality) Budget() budget.TokenBudget { return personalityBudget }
func (Personality) Temperature() float64       { return 0.2 }

func (Personality) System() string {
	return "You are a personality analysis engine. Infer personality based ONLY on the traits provided."
}

func (Personality) PrepareInput(in PersonalityInput) PersonalityInput {
	limit := personalityBudget.MaxInputChars()
	total := 0
	for i, t := range in.Traits {
		total += len(t) + 1
		if total > limit {
			in.Traits = in.Traits[:i]
			break
		}
	}
	return in
}

func (Personality) UserPrompt(in PersonalityInput) string {
	traitsText := "No explicit traits found."
	if len(in.Traits) > 0 {
		traitsText = "- " + strings.Join(in.Traits, "\n- ")
	}
	traitsJSON, _ := json.Marshal(in.Traits)
	return fmt.Sprintf(`CHARACTER: %q

TRAITS:
%s

STRICT RULES:
- Base your inference ONLY on the provided traits
- Synthesize the traits into coherent personality descriptors
- Provide 3-5 personality points maximum

OUTPUT FORMAT (valid JSON only):
{"character": %q, "personality": ["personality_point1", "personality_point2", "personality_point3"]}

TRAITS:
%s
%s`, in.Character, traitsText, in.Character, traitsJSON, jsonReminder)
}

func (Personality) Parse(raw string) PersonalityOutput {
	doc := jsonfix.ExtractObject(raw)
	var resp struct {
		Character   string   `json:"character"`
		Personality []string `json:"personality"`
	}
	if err := json.Unmarshal([]byte(doc), &resp); err != nil {
		return PersonalityOutput{}
	}
	out := PersonalityOutput{Character: resp.Character}
	for _, p := range resp.Personality {
		if p = strings.TrimSpace(p); p != "" {
			out.Personality = append(out.Personality, p)
		}
	}
	return out
}
