package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"

	"fable/pkg/budget"
	"fable/pkg/jsonfix"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

var themesBudget = budget.Must(160, 3000, 256)

type ThemesInput struct {
	Title string
	Text  string
}

// Themes is the single-shot whole-book mood/genre/era analysis. It backs
// ambient soundscape selection, so the output is a fixed small record.
type Themes struct{}

func (Themes) Purpose() string            { return "theme analysis" }
func (Themes) Budget() budget.TokenBudget { return themesBudget }
func (Themes) Temperature() float64       { return 0.3 }

func (Themes) System() string {
	return "You are a literary analyst. Determine the mood, genre, era, and emotional tone of the provided text. Output valid JSON only."
}

func (Themes) PrepareInput(in ThemesInput) ThemesInput {
	in.Text = utils.TruncateAtBoundary(in.Text, themesBudget.MaxInputChars())
	return in
}

func (Themes) UserPrompt(in ThemesInput) string {
	title := in.Title
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf(`Analyze the following excerpt from %q.

OUTPUT FORMAT (valid JSON only):
{"mood": "overall mood", "genre": "primary genre", "era": "time period or setting era", "emotional_tone": "dominant emotional tone", "suggested_ambient_sound": "soundscape suggestion or null"}

TEXT:
%s
%s`, title, in.Text, jsonReminder)
}

// ResponseFormat lets backends with structured-output support skip the
// recovery parser entirely.
func (Themes) ResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	return schema.ThemesResponseFormat()
}

func (Themes) Parse(raw string) schema.ThemeAnalysis {
	doc := jsonfix.ExtractObject(raw)
	var out schema.ThemeAnalysis
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return schema.ThemeAnalysis{}
	}
	if out.SuggestedAmbientSound != nil && *out.SuggestedAmbientSound == "" {
		out.SuggestedAmbientSound = nil
	}
	return out
}
