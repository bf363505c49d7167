package prompts

import (
	"fmt"
	"regexp"
	"strings"

	"fable/pkg/budget"
	"fable/pkg/utils"
)

var storyBudget = budget.Must(120, 800, 3000)

type StoryInput struct {
	Prompt string
}

type StoryOutput struct {
	Text string
}

// Story is the one generation task in the family: free-form prose from a
// user premise. No JSON on the wire, so Parse only strips model chrome.
type Story struct{}

func (Story) Purpose() string            { return "story generation" }
func (Story) Budget() budget.TokenBudget { return storyBudget }
func (Story) Temperature() float64       { return 0.9 }

func (Story) System() string {
	return "You are a storyteller. Write vivid, readable prose with quoted character dialog. Output the story text only, with no preamble or commentary."
}

func (Story) PrepareInput(in StoryInput) StoryInput {
	in.Prompt = utils.TruncateAtBoundary(in.Prompt, storyBudget.MaxInputChars())
	return in
}

func (Story) UserPrompt(in StoryInput) string {
	return fmt.Sprintf(`Write a short story based on this premise:

%s

Use named characters and quoted dialog so each voice can be cast separately.`, in.Prompt)
}

var (
	storyThinkRX     = regexp.MustCompile(`(?s)<think>.*?</think>`)
	storyOpenFenceRX = regexp.MustCompile("^```[a-zA-Z]*\\s*")
)

func (Story) Parse(raw string) StoryOutput {
	s := storyThinkRX.ReplaceAllString(raw, "")
	s = strings.TrimSpace(s)
	s = storyOpenFenceRX.ReplaceAllString(s, "")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return StoryOutput{Text: strings.TrimSpace(s)}
}
