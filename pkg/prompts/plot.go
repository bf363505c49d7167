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

var plotBudget = budget.Must(220, 3000, 512)

type PlotInput struct {
	Text     string
	Chapters int
}

type PlotOutput struct {
	Points []schema.PlotPoint
}

// Plot extracts the story's structural beats across chapters.
type Plot struct{}

func (Plot) Purpose() string            { return "plot structure" }
func (Plot) Budget() budget.TokenBudget { return plotBudget }
func (Plot) Temperature() float64       { return 0.2 }

func (Plot) System() string {
	return "You are a story structure analyst. Identify the major plot points of the provided text. Output valid JSON only."
}

func (Plot) PrepareInput(in PlotInput) PlotInput {
	in.Text = utils.TruncateAtBoundary(in.Text, plotBudget.MaxInputChars())
	if in.Chapters < 1 {
		in.Chapters = 1
	}
	return in
}

func (Plot) UserPrompt(in PlotInput) string {
	return fmt.Sprintf(`The text spans %d chapter(s). Identify the major plot points.

RULES:
1. Each plot point has a type: setup, rising_action, climax, falling_action, or resolution
2. "chapter" is the 1-based chapter number where the point occurs (1 to %d)
3. "confidence" is your certainty between 0.0 and 1.0
4. List points in story order

OUTPUT FORMAT (JSON array only):
[{"type": "setup", "chapter": 1, "description": "brief description", "confidence": 0.9}]

TEXT:
%s
%s`, in.Chapters, in.Chapters, in.Text, jsonReminder)
}

func (Plot) Parse(raw string) PlotOutput {
	arr := jsonfix.ExtractArray(raw)
	var points []schema.PlotPoint
	if err := json.Unmarshal([]byte(arr), &points); err != nil {
		return PlotOutput{}
	}
	out := PlotOutput{}
	for _, p := range points {
		p.Description = strings.TrimSpace(p.Description)
		if p.Description == "" {
			continue
		}
		p.Type = strings.ToLower(strings.TrimSpace(p.Type))
		if p.Chapter < 1 {
			p.Chapter = 1
		}
		if p.Confidence < 0 {
			p.Confidence = 0
		} else if p.Confidence > 1 {
			p.Confidence = 1
		}
		out.Points = append(out.Points, p)
	}
	return out
}
