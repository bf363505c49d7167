package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3"

	"fable/pkg/schema"
)

// fakeModel routes on the system prompt so each pass gets its own canned
// response.
type fakeModel struct {
	batched     string
	names       string
	dialogs     string
	traits      string
	personality string
	themes      string
	plot        string
	err         error
	calls       int
}

func (f *fakeModel) Infer(_ context.Context, _ *openai.ChatCompletionNewParams, system, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	switch {
	case strings.Contains(system, "Story analysis engine"):
		return f.batched, nil
	case strings.Contains(system, "name extraction"):
		return f.names, nil
	case strings.Contains(system, "dialog extraction"):
		return f.dialogs, nil
	case strings.Contains(system, "voice casting"):
		return f.traits, nil
	case strings.Contains(system, "personality analysis"):
		return f.personality, nil
	case strings.Contains(system, "mood, genre"):
		return f.themes, nil
	case strings.Contains(system, "story structure"):
		return f.plot, nil
	}
	return "", errors.New("unexpected pass: " + system)
}

const storyText = `Tom opened the door. "Hi," said Tom. "Who's there?"

Sarah stepped inside. "Hello," she said quietly.`

func TestFastWorkflow(t *testing.T) {
	model := &fakeModel{
		batched: `{"Tom":{"D":["Hi","Who's there?"],"T":["brave"],"V":"male,young,neutral,1.0,1.0"},"Sarah":{"D":["Hello"],"T":["quiet"],"V":"female,young,neutral,1.1,0.9"}}`,
		themes:  `{"mood":"tense","genre":"mystery","era":"modern","emotional_tone":"uneasy","suggested_ambient_sound":"wind"}`,
		plot:    `[{"type":"setup","chapter":1,"description":"Tom answers the door","confidence":0.9}]`,
	}
	w := New(model, FastConfig())

	var progressCalls int
	got, err := w.Analyze(context.Background(), Book{ID: "b1", Title: "Doorway", Text: storyText},
		func(segment, total int, characters []schema.Character) {
			progressCalls++
			if segment < 1 || segment > total {
				t.Errorf("bad progress segment %d/%d", segment, total)
			}
		})
	if err != nil {
		t.Fatal(err)
	}
	if progressCalls != 1 {
		t.Errorf("progress calls = %d, want one per segment", progressCalls)
	}
	if got.Workflow != "fast" || got.Segments != 1 {
		t.Errorf("workflow=%q segments=%d", got.Workflow, got.Segments)
	}

	byName := map[string]bool{}
	for _, ch := range got.Characters {
		byName[ch.Name] = true
	}
	for _, want := range []string{"Tom", "Sarah", "Narrator"} {
		if !byName[want] {
			t.Errorf("missing character %q", want)
		}
	}
	if got.Characters[0].Name != "Tom" {
		t.Errorf("most-spoken character should lead, got %q", got.Characters[0].Name)
	}
	if got.Themes == nil || got.Themes.Genre != "mystery" {
		t.Errorf("themes = %+v", got.Themes)
	}
	if len(got.PlotPoints) != 1 {
		t.Errorf("plot = %+v", got.PlotPoints)
	}
	if len(got.Failed) != 0 {
		t.Errorf("unexpected failures: %+v", got.Failed)
	}
}

func TestFastWorkflowDegradesOnModelError(t *testing.T) {
	model := &fakeModel{err: errors.New("engine unavailable")}
	cfg := FastConfig()
	cfg.Themes = false
	cfg.Plot = false
	w := New(model, cfg)

	got, err := w.Analyze(context.Background(), Book{ID: "b2", Text: storyText}, nil)
	if err != nil {
		t.Fatalf("model failure must degrade, not fail: %v", err)
	}
	if len(got.Failed) != 1 {
		t.Fatalf("failed = %+v", got.Failed)
	}
	f, ok := got.Failed["segment-1"]
	if !ok || f.Reason == "" || f.Text == "" {
		t.Errorf("failed segment record = %+v", f)
	}
	if len(got.Characters) != 1 || got.Characters[0].Name != "Narrator" {
		t.Errorf("narrator must survive a total failure: %+v", got.Characters)
	}
	if got.Characters[0].Voice == nil {
		t.Error("narrator should carry the default voice")
	}
}

func TestRichWorkflow(t *testing.T) {
	model := &fakeModel{
		names:       `{"characters": ["Mira"]}`,
		dialogs:     `{"dialogs": [{"speaker": "Mira", "text": "Hello", "emotion": "happy", "intensity": 0.6}, {"speaker": "Unknown", "text": "Mm."}]}`,
		traits:      `{"character": "Mira", "traits": ["gentle"], "voice_profile": {"gender": "female", "age": "young", "accent": "neutral", "pitch": 1.1, "speed": 1.0}}`,
		personality: `{"character": "Mira", "personality": ["quietly confident", "warm with strangers"]}`,
	}
	cfg := RichConfig()
	cfg.Themes = false
	cfg.Plot = false
	w := New(model, cfg)

	got, err := w.Analyze(context.Background(), Book{ID: "b3", Text: `Mira waved. "Hello," she said.`}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var mira *schema.Character
	for i := range got.Characters {
		if got.Characters[i].Name == "Mira" {
			mira = &got.Characters[i]
		}
	}
	if mira == nil {
		t.Fatalf("characters = %+v", got.Characters)
	}
	if len(mira.Dialogs) != 1 || mira.Dialogs[0] != "Hello" {
		t.Errorf("dialogs = %v (unattributed lines must not leak in)", mira.Dialogs)
	}
	if len(mira.Traits) != 1 || mira.Traits[0] != "gentle" {
		t.Errorf("traits = %v", mira.Traits)
	}
	if mira.Voice == nil || mira.Voice.Gender != "female" || mira.Voice.Pitch != 1.1 {
		t.Errorf("voice = %+v", mira.Voice)
	}
	if len(mira.Personality) != 2 || mira.Personality[0] != "quietly confident" {
		t.Errorf("personality = %v", mira.Personality)
	}
}

func TestRichWorkflowHeuristicFallback(t *testing.T) {
	model := &fakeModel{
		names:   `{"characters": []}`,
		dialogs: `{"dialogs": []}`,
		traits:  `{}`,
	}
	cfg := RichConfig()
	cfg.Themes = false
	cfg.Plot = false
	w := New(model, cfg)

	text := `Elara walked on. Elara did not look back. Marcus waited. Marcus always waited.`
	got, err := w.Analyze(context.Background(), Book{ID: "b4", Text: text}, nil)
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]bool{}
	for _, ch := range got.Characters {
		byName[ch.Name] = true
	}
	if !byName["Elara"] || !byName["Marcus"] {
		t.Errorf("heuristic names missing: %+v", got.Characters)
	}
	if len(got.Failed) != 0 {
		t.Errorf("heuristic rescue should not count as failure: %+v", got.Failed)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := New(&fakeModel{}, FastConfig())
	if _, err := w.Analyze(ctx, Book{ID: "b5", Text: storyText}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestConfigFor(t *testing.T) {
	if got := ConfigFor("rich"); got.Name != "rich" {
		t.Errorf("ConfigFor(rich) = %+v", got)
	}
	for _, name := range []string{"", "fast", "unknown"} {
		if got := ConfigFor(name); got.Name != "fast" {
			t.Errorf("ConfigFor(%q) = %+v", name, got)
		}
	}
}

func TestCountChapters(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"no headings", "just prose", 1},
		{"numeric headings", "Chapter 1\n\ntext\n\nChapter 2\n\nmore", 2},
		{"roman numerals", "CHAPTER I\n\ntext\n\nChapter II\n\nmore", 2},
		{"inline mention ignored", "they discussed chapter 3 of the manual", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountChapters(tt.text); got != tt.want {
				t.Errorf("CountChapters = %d, want %d", got, tt.want)
			}
		})
	}
}
