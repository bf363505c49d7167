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

// The batched pass trades accuracy for calls: one response carries every
// character in the segment with dialogs, traits, and a compact voice tuple.
// Its output budget is the largest of any pass, so the input segment stays
// small (1000 tokens ≈ one 4000-char segment).
var batchedBudget = budget.Must(300, 1000, 2048)

type BatchedInput struct {
	Text         string
	BatchIndex   int
	TotalBatches int
}

type BatchedOutput struct {
	Characters []schema.ExtractedCharacter
}

// Batched is the all-in-one extraction used by the fast workflow.
type Batched struct{}

func (Batched) Purpose() string            { return "batched analysis" }
func (Batched) Budget() budget.TokenBudget { return batchedBudget }

// Near-greedy decoding: the merge layer depends on the model not getting
// creative with the output shape.
func (Batched) Temperature() float64 { return 0.01 }

func (Batched) System() string {
	return "You are a Story analysis engine. Output one complete and valid JSON object as requested in the user prompt, from the given Story excerpt."
}

func (Batched) PrepareInput(in BatchedInput) BatchedInput {
	in.Text = utils.TruncateAtBoundary(in.Text, batchedBudget.MaxInputChars())
	return in
}

func (Batched) UserPrompt(in BatchedInput) string {
	return fmt.Sprintf(`Extract all the characters, dialogs spoken by them, their traits and inferred voice profile from the given Story excerpt.
RULES:
1. ONLY include Characters who have quoted dialogs.
2. DO NOT classify locations, objects, creatures or entities that don't speak as Characters.
3. Do not repeat Characters in the output.
4. Attribute dialogs by Character name and pronouns referring them. Each dialog belongs to only one Character.
5. Identify Character traits explicitly mentioned in the story by the Narrator.
6. Based on the traits, infer a voice profile.

Keys for output:
D:Array of exact quoted dialogs spoken by current Character
T:Array of Character traits (personalities, adjectives)
V:Voice profile as a tuple of "Gender,Age,Accent,Pitch,Speed".
Possible values:
Gender (inferred from pronouns): male|female
Age (explicitly mentioned or inferred): child|young|young-adult|middle-aged|elderly
Accent (inferred from the dialogs): neutral|british|american|asian
Pitch (of voice) within the range: 0.5-1.5
Speed (speed of speaking) within the range: 0.5-2.0

OUTPUT FORMAT:
{
  "CharacterName1": {"D": ["this character's first dialog", "their next dialog"], "T": ["trait", "another trait"], "V": "Gender,Age,Accent,Pitch,Speed"},
  "CharacterName2": {"D": ["this character's first dialog"], "T": ["trait"], "V": "Gender,Age,Accent,Pitch,Speed"}
}

Story Excerpt:
%s

JSON:`, in.Text)
}

// Parse walks the recovered object's keys in document order so the merge
// sees characters in the order the model emitted them. Values that are not
// objects are skipped; a decode error mid-document keeps the characters
// parsed so far.
func (Batched) Parse(raw string) BatchedOutput {
	doc := jsonfix.ExtractObject(raw)

	out := BatchedOutput{}
	dec := json.NewDecoder(strings.NewReader(doc))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return out
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			break
		}
		name, ok := keyTok.(string)
		if !ok {
			break
		}
		var body json.RawMessage
		if err := dec.Decode(&body); err != nil {
			break
		}
		if ch, ok := parseBatchedCharacter(name, body); ok {
			out.Characters = append(out.Characters, ch)
		}
	}
	return out
}

// parseBatchedCharacter normalizes one character value. The documented keys
// are D/T/V; lower-case and long-form aliases from older prompt revisions
// still appear in cached responses and must keep parsing.
func parseBatchedCharacter(name string, body json.RawMessage) (schema.ExtractedCharacter, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return schema.ExtractedCharacter{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return schema.ExtractedCharacter{}, false
	}

	ch := schema.ExtractedCharacter{Name: name}
	for key, value := range fields {
		switch strings.ToLower(key) {
		case "d", "dialogs", "dialogue", "dialogues":
			var dialogs []string
			if err := json.Unmarshal(value, &dialogs); err == nil && ch.Dialogs == nil {
				ch.Dialogs = dialogs
			}
		case "t", "traits", "trait":
			var traits []string
			if err := json.Unmarshal(value, &traits); err == nil && ch.Traits == nil {
				ch.Traits = traits
			}
		case "v", "voice", "voice_profile":
			if ch.Voice == nil {
				ch.Voice = parseVoiceValue(value)
			}
		}
	}
	return ch, true
}
