package prompts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fable/pkg/budget"
	"fable/pkg/jsonfix"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

var dialogsBudget = budget.Must(300, 2048, 1024)

// SpeakerUnknown is assigned when attribution fails; SpeakerNarrator
// carries non-dialog prose in read-along mode.
const (
	SpeakerUnknown  = "Unknown"
	SpeakerNarrator = "Narrator"
)

type DialogsInput struct {
	Text       string
	Characters []string
}

type DialogsOutput struct {
	Dialogs []schema.Dialog
}

// Dialogs attributes quoted speech to a known character list, with emotion
// and intensity per line.
type Dialogs struct{}

func (Dialogs) Purpose() string            { return "dialog extraction" }
func (Dialogs) Budget() budget.TokenBudget { return dialogsBudget }
func (Dialogs) Temperature() float64       { return 0.15 }

func (Dialogs) System() string {
	return "You are a dialog extraction engine. Extract quoted speech and attribute it to the correct speaker. Resolve pronouns (he/she/they) to the actual character name based on context. Output valid JSON only."
}

func (Dialogs) PrepareInput(in DialogsInput) DialogsInput {
	in.Text = utils.TruncateAtBoundary(in.Text, dialogsBudget.MaxInputChars())
	if len(in.Characters) > 10 {
		in.Characters = in.Characters[:10]
	}
	return in
}

func (Dialogs) UserPrompt(in DialogsInput) string {
	chars, _ := json.Marshal(in.Characters)
	return fmt.Sprintf(`CHARACTERS IN THIS TEXT: %s

EXTRACTION RULES:
1. DIALOGS - Extract text within quotation marks ("..." or '...'):
   - Attribute each dialog to the nearest character name appearing BEFORE or AFTER the quote
   - Use attribution patterns: "said [Name]", "[Name] said", "[Name]:", etc.
   - If speaker cannot be determined, use "Unknown"
   - Each dialog appears EXACTLY ONCE, in order of appearance

2. EMOTION DETECTION - For each dialog:
   - Infer emotion: neutral, happy, sad, angry, surprised, fearful, excited, worried, curious, defiant
   - Estimate intensity: 0.0 (very mild) to 1.0 (very intense)

OUTPUT FORMAT (valid JSON only):
{"dialogs": [{"speaker": "Name", "text": "dialog", "emotion": "neutral", "intensity": 0.5}]}

TEXT:
%s
%s`, chars, in.Text, jsonReminder)
}

type dialogEntry struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

// Parse accepts {"dialogs": [...]}, a bare array, and as a last resort
// salvages speaker/text pairs by regex from an array truncated mid-element.
func (Dialogs) Parse(raw string) DialogsOutput {
	var entries []dialogEntry

	doc := jsonfix.ExtractObject(raw)
	var resp struct {
		Dialogs []dialogEntry `json:"dialogs"`
	}
	if err := json.Unmarshal([]byte(doc), &resp); err == nil && len(resp.Dialogs) > 0 {
		entries = resp.Dialogs
	} else {
		arr := jsonfix.ExtractArray(raw)
		if err := json.Unmarshal([]byte(arr), &entries); err != nil || len(entries) == 0 {
			entries = salvageDialogs(raw)
		}
	}

	out := DialogsOutput{}
	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		speaker := strings.TrimSpace(e.Speaker)
		if speaker == "" {
			speaker = SpeakerUnknown
		}
		emotion := strings.ToLower(strings.TrimSpace(e.Emotion))
		if emotion == "" {
			emotion = "neutral"
		}
		intensity := e.Intensity
		if intensity < 0 {
			intensity = 0
		} else if intensity > 1 {
			intensity = 1
		}
		out.Dialogs = append(out.Dialogs, schema.Dialog{
			Speaker:   speaker,
			Text:      text,
			Emotion:   emotion,
			Intensity: intensity,
		})
	}
	return out
}

var dialogPairRX = regexp.MustCompile(`"speaker"\s*:\s*("(?:[^"\\]|\\.)*")\s*,\s*"text"\s*:\s*("(?:[^"\\]|\\.)*")`)

// salvageDialogs pulls whatever complete speaker/text pairs survive in an
// otherwise unparseable response. Emotion and intensity are lost here; the
// lines themselves are worth more.
func salvageDialogs(raw string) []dialogEntry {
	var out []dialogEntry
	for _, m := range dialogPairRX.FindAllStringSubmatch(raw, -1) {
		speaker, err1 := strconv.Unquote(m[1])
		text, err2 := strconv.Unquote(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, dialogEntry{Speaker: speaker, Text: text})
	}
	return out
}
