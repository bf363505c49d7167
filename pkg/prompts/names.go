package prompts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"fable/pkg/budget"
	"fable/pkg/jsonfix"
	"fable/pkg/utils"
)

var namesBudget = budget.Must(220, 2048, 256)

type NamesInput struct {
	Text string
}

type NamesOutput struct {
	Characters []string
}

// Names is the cheapest pass: character names only, smallest output budget.
type Names struct{}

func (Names) Purpose() string            { return "character names" }
func (Names) Budget() budget.TokenBudget { return namesBudget }
func (Names) Temperature() float64       { return 0.1 }

func (Names) System() string {
	return "You are a character name extraction engine. Extract ONLY character names that appear in the provided text."
}

func (Names) PrepareInput(in NamesInput) NamesInput {
	in.Text = utils.TruncateAtBoundary(in.Text, namesBudget.MaxInputChars())
	return in
}

func (Names) UserPrompt(in NamesInput) string {
	return fmt.Sprintf(`STRICT RULES:
- Extract ONLY proper names explicitly written in the text (e.g., "Harry Potter", "Hermione", "Mr. Dursley")
- Do NOT include pronouns (he, she, they, etc.)
- Do NOT include generic descriptions (the boy, the woman, the teacher)
- Do NOT include group references (the family, the crowd, the students)
- Do NOT include titles alone (Professor, Sir, Madam) unless used as the character's actual name
- Do NOT infer or guess names not explicitly mentioned
- Do NOT split full names: if "Harry Potter" appears, do NOT list "Potter" separately
- Include a name only if the character speaks, acts, or is directly described in this specific text

OUTPUT FORMAT (valid JSON only):
{"characters": ["Name1", "Name2", "Name3"]}

TEXT:
%s
%s`, in.Text, jsonReminder)
}

// Parse accepts the documented {"characters": [...]} shape, the legacy
// "names" key, and array elements that are either bare strings or
// {"name": "..."} objects.
func (Names) Parse(raw string) NamesOutput {
	doc := jsonfix.ExtractObject(raw)
	var resp struct {
		Characters []json.RawMessage `json:"characters"`
		Names      []json.RawMessage `json:"names"`
	}
	if err := json.Unmarshal([]byte(doc), &resp); err != nil {
		return NamesOutput{}
	}
	elems := resp.Characters
	if len(elems) == 0 {
		elems = resp.Names
	}

	out := NamesOutput{}
	seen := make(map[string]struct{}, len(elems))
	for _, e := range elems {
		var name string
		if err := json.Unmarshal(e, &name); err != nil {
			var obj struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(e, &obj); err != nil {
				continue
			}
			name = obj.Name
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.Characters = append(out.Characters, name)
	}
	return out
}

var properNounRX = regexp.MustCompile(`\b[[:upper:]][[:lower:]]+(?:\s+[[:upper:]][[:lower:]]+){0,2}\b`)

var commonWords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "then": {}, "when": {}, "there": {},
	"they": {}, "she": {}, "his": {}, "her": {}, "him": {}, "was": {},
	"chapter": {}, "suddenly": {}, "however": {}, "meanwhile": {},
}

// HeuristicNames is the conservative local fallback used when a names pass
// returns nothing: capitalized word runs seen at least twice, most frequent
// first. It over-rejects rather than over-accepts.
func HeuristicNames(text string) []string {
	counts := map[string]int{}
	for _, m := range properNounRX.FindAllString(text, -1) {
		if len(m) < 3 {
			continue
		}
		if _, ok := commonWords[strings.ToLower(m)]; ok {
			continue
		}
		counts[m]++
	}
	type kv struct {
		name string
		n    int
	}
	var arr []kv
	for k, v := range counts {
		if v >= 2 {
			arr = append(arr, kv{k, v})
		}
	}
	slices.SortFunc(arr, func(a, b kv) int {
		if a.n != b.n {
			return b.n - a.n
		}
		return strings.Compare(a.name, b.name)
	})
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		out = append(out, it.name)
	}
	return out
}
