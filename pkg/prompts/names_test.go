package prompts

import (
	"slices"
	"testing"
)

func TestNamesParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			"documented shape",
			`{"characters": ["Harry Potter", "Hermione"]}`,
			[]string{"Harry Potter", "Hermione"},
		},
		{
			"legacy names key",
			`{"names": ["Ron", "Ginny"]}`,
			[]string{"Ron", "Ginny"},
		},
		{
			"object elements",
			`{"characters": [{"name": "Harry"}, {"name": "Ron"}]}`,
			[]string{"Harry", "Ron"},
		},
		{
			"mixed elements",
			`{"characters": ["Harry", {"name": "Ron"}, 42]}`,
			[]string{"Harry", "Ron"},
		},
		{
			"case-insensitive dedupe keeps first",
			`{"characters": ["Harry", "HARRY", "harry"]}`,
			[]string{"Harry"},
		},
		{
			"fenced response",
			"```json\n{\"characters\": [\"Tom\"]}\n```",
			[]string{"Tom"},
		},
		{"empty response", "", nil},
		{"no json", "I could not find any characters.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Names{}.Parse(tt.raw)
			if !slices.Equal(out.Characters, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, out.Characters, tt.want)
			}
		})
	}
}

func TestHeuristicNames(t *testing.T) {
	text := `Elara walked to the gate. "Wait," said Elara. Marcus followed her.
Marcus had always followed. The gate was old. Suddenly the wind rose.
Suddenly it fell again.`

	got := HeuristicNames(text)
	if !slices.Contains(got, "Elara") || !slices.Contains(got, "Marcus") {
		t.Fatalf("repeated proper nouns missing: %v", got)
	}
	if slices.Contains(got, "Suddenly") {
		t.Errorf("common sentence opener leaked through: %v", got)
	}
	if slices.Contains(got, "The") {
		t.Errorf("article leaked through: %v", got)
	}
}

func TestHeuristicNamesRequiresRepetition(t *testing.T) {
	if got := HeuristicNames("Zanzibar appeared once and never again."); len(got) != 0 {
		t.Errorf("single sighting should not qualify: %v", got)
	}
}
