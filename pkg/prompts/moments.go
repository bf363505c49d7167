package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"fable/pkg/budget"
	"fable/pkg/jsonfix"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

var momentsBudget = budget.Must(200, 3000, 512)

type MomentsInput struct {
	Character string
	Text      string
}

type MomentsOutput struct {
	Character string
	Moments   []schema.KeyMoment
}

// Moments finds one character's most significant scenes, with a supporting
// quote when one exists.
type Moments struct{}

func (Moments) Purpose() string            { return "key moments" }
func (Moments) Budget() budget.TokenBudget { return momentsBudget }
func (Moments) Temperature() float64       { return 0.3 }

func (Moments) System() string {
	return "You are a literary analyst. Identify the key moments for one named character in the provided text. Output valid JSON only."
}

func (Moments) PrepareInput(in MomentsInput) MomentsInput {
	in.Text = utils.TruncateAtBoundary(in.Text, momentsBudget.MaxInputChars())
	return in
}

func (Moments) UserPrompt(in MomentsInput) string {
	return fmt.Sprintf(`CHARACTER: %q

RULES:
1. Identify 3-5 moments where this character is central
2. "chapter" is the 1-based chapter number
3. Include an exact quote from the text when one captures the moment
4. Only moments involving %q, in story order

OUTPUT FORMAT (valid JSON only):
{"character": %q, "moments": [{"chapter": 1, "description": "what happens", "quote": "exact text"}]}

TEXT:
%s
%s`, in.Character, in.Character, in.Character, in.Text, jsonReminder)
}

// Parse accepts the documented object shape or a bare array of moments.
func (Moments) Parse(raw string) MomentsOutput {
	doc := jsonfix.ExtractObject(raw)
	var resp struct {
		Character string             `json:"character"`
		Moments   []schema.KeyMoment `json:"moments"`
	}
	if err := json.Unmarshal([]byte(doc), &resp); err == nil && len(resp.Moments) > 0 {
		return MomentsOutput{Character: resp.Character, Moments: cleanMoments(resp.Moments)}
	}

	arr := jsonfix.ExtractArray(raw)
	var moments []schema.KeyMoment
	if err := json.Unmarshal([]byte(arr), &moments); err != nil {
		return MomentsOutput{}
	}
	return MomentsOutput{Moments: cleanMoments(moments)}
}

func cleanMoments(in []schema.KeyMoment) []schema.KeyMoment {
	var out []schema.KeyMoment
	for _, m := range in {
		m.Description = strings.TrimSpace(m.Description)
		if m.Description == "" {
			continue
		}
		if m.Chapter < 1 {
			m.Chapter = 1
		}
		out = append(out, m)
	}
	return out
}
