package prompts

import (
	"strings"
	"testing"
)

func TestBatchedParseRoundTrip(t *testing.T) {
	raw := `{
  "Tom": {"D": ["Hi", "Bye"], "T": ["brave"], "V": "male,young,neutral,1.0,1.0"},
  "Sarah": {"D": ["Hello"], "T": [], "V": "female,elderly,british,0.9,0.8"}
}`
	out := Batched{}.Parse(raw)
	if len(out.Characters) != 2 {
		t.Fatalf("want 2 characters, got %d", len(out.Characters))
	}
	tom := out.Characters[0]
	if tom.Name != "Tom" {
		t.Fatalf("document order not preserved: first = %q", tom.Name)
	}
	if len(tom.Dialogs) != 2 || tom.Dialogs[0] != "Hi" {
		t.Errorf("Tom dialogs = %v", tom.Dialogs)
	}
	if len(tom.Traits) != 1 || tom.Traits[0] != "brave" {
		t.Errorf("Tom traits = %v", tom.Traits)
	}
	if tom.Voice == nil || tom.Voice.Gender != "male" || tom.Voice.Age != "young" || tom.Voice.Pitch != 1.0 {
		t.Errorf("Tom voice = %+v", tom.Voice)
	}
	sarah := out.Characters[1]
	if sarah.Voice == nil || sarah.Voice.Accent != "british" || sarah.Voice.Speed != 0.8 {
		t.Errorf("Sarah voice = %+v", sarah.Voice)
	}
}

func TestBatchedParseWrappedResponse(t *testing.T) {
	raw := "Here is the JSON:\n```json\n{\"Tom\":{\"D\":[\"Hi\"],\"T\":[\"brave\"],\"V\":\"male,young,neutral,1.0,1.0\"}}\n```"
	out := Batched{}.Parse(raw)
	if len(out.Characters) != 1 || out.Characters[0].Name != "Tom" {
		t.Fatalf("characters = %+v", out.Characters)
	}
	if got := out.Characters[0].Dialogs; len(got) != 1 || got[0] != "Hi" {
		t.Errorf("dialogs = %v", got)
	}
}

func TestBatchedParseKeyAliases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"lower case short keys", `{"Ann":{"d":["Hey"],"t":["kind"],"v":"female,young,neutral,1.0,1.0"}}`},
		{"long form keys", `{"Ann":{"dialogs":["Hey"],"traits":["kind"],"voice":"female,young,neutral,1.0,1.0"}}`},
		{"dialogues plural", `{"Ann":{"dialogues":["Hey"],"trait":["kind"],"voice_profile":"female,young,neutral,1.0,1.0"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Batched{}.Parse(tt.raw)
			if len(out.Characters) != 1 {
				t.Fatalf("characters = %+v", out.Characters)
			}
			ch := out.Characters[0]
			if len(ch.Dialogs) != 1 || ch.Dialogs[0] != "Hey" {
				t.Errorf("dialogs = %v", ch.Dialogs)
			}
			if len(ch.Traits) != 1 || ch.Traits[0] != "kind" {
				t.Errorf("traits = %v", ch.Traits)
			}
			if ch.Voice == nil || ch.Voice.Gender != "female" {
				t.Errorf("voice = %+v", ch.Voice)
			}
		})
	}
}

func TestBatchedParseLegacyVoiceForms(t *testing.T) {
	raw := `{
  "Ann": {"D": [], "T": [], "V": "female,elderly,neutral"},
  "Ben": {"D": [], "T": [], "V": {"gender": "male", "age": "child", "accent": "american", "pitch": 1.3, "speed": 1.1}}
}`
	out := Batched{}.Parse(raw)
	if len(out.Characters) != 2 {
		t.Fatalf("characters = %+v", out.Characters)
	}
	ann := out.Characters[0]
	if ann.Voice == nil || ann.Voice.Age != "elderly" {
		t.Fatalf("three-field tuple voice = %+v", ann.Voice)
	}
	if ann.Voice.Pitch != 1.0 || ann.Voice.Speed != 1.0 {
		t.Errorf("missing tuple fields should default: %+v", ann.Voice)
	}
	ben := out.Characters[1]
	if ben.Voice == nil || ben.Voice.Gender != "male" || ben.Voice.Pitch != 1.3 {
		t.Errorf("nested object voice = %+v", ben.Voice)
	}
}

func TestBatchedParseDuplicateCharacterTruncated(t *testing.T) {
	raw := `{"X":{"D":["a"]},"Y":{"D":["b"]},"X":{"D":["CORRUPT`
	out := Batched{}.Parse(raw)
	if len(out.Characters) != 2 {
		t.Fatalf("characters = %+v", out.Characters)
	}
	if out.Characters[0].Dialogs[0] != "a" {
		t.Errorf("first X entry must win: %v", out.Characters[0].Dialogs)
	}
}

func TestBatchedParseNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"no json here",
		"{",
		`{"Tom": "not an object"}`,
		`{"Tom": {"D": "not an array"}}`,
		`[1,2,3]`,
		strings.Repeat(`{"a":`, 500),
	}
	for _, in := range inputs {
		out := Batched{}.Parse(in)
		for _, ch := range out.Characters {
			if ch.Name == "" {
				t.Errorf("empty name from input %q", in)
			}
		}
	}
}

func TestBatchedPrepareInputTruncates(t *testing.T) {
	long := strings.Repeat("A paragraph of story text. ", 1000)
	in := Batched{}.PrepareInput(BatchedInput{Text: long})
	if len(in.Text) > batchedBudget.MaxInputChars() {
		t.Fatalf("prepared input %d chars exceeds limit %d", len(in.Text), batchedBudget.MaxInputChars())
	}
	if len(in.Text) == 0 {
		t.Fatal("truncation dropped all text")
	}
}
