// Package jsonfix recovers a usable JSON document from raw language-model
// output. Local models under tight token budgets wrap JSON in markdown and
// chatter, emit one object per entity instead of a single document, repeat
// keys once their real output is exhausted, and stop mid-token. All of that
// degrades to "fewer entities", never to an error: every function here
// accepts arbitrary bytes and returns its best candidate or an empty
// document.
package jsonfix

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	// EmptyObject is the fallback when no object can be located at all.
	EmptyObject = "{}"
	// EmptyArray is the array-shaped fallback.
	EmptyArray = "[]"
)

var (
	fenceRX      = regexp.MustCompile("```(?:[a-zA-Z]+)?\\s*([\\s\\S]*?)```")
	thinkRX      = regexp.MustCompile(`(?s)<think>.*?</think>`)
	openThinkRX  = regexp.MustCompile(`(?s)<think>.*`)
	boilerplates = []string{"here is the json", "here's the json", "output:", "result:", "json:"}
)

// Clean strips reasoning tags, markdown fences, and conversational prefixes
// without touching the JSON payload itself.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = thinkRX.ReplaceAllString(s, "")
	s = openThinkRX.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "/no_think", "")
	s = strings.TrimSpace(s)

	if m := fenceRX.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	} else if strings.HasPrefix(s, "```") {
		// Unterminated fence: drop the marker line.
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = strings.TrimSpace(s[nl+1:])
		}
	}

	// Conversational lead-ins only count near the start and before any JSON
	// opens; a "result:" inside a dialog string must survive.
	lower := strings.ToLower(s)
	window := min(len(lower), 50)
	if brace := strings.IndexAny(s, "{["); brace >= 0 {
		window = min(window, brace)
	}
	for _, p := range boilerplates {
		idx := strings.Index(lower[:window], p)
		if idx < 0 {
			continue
		}
		s = strings.TrimSpace(s[idx+len(p):])
		break
	}
	return s
}

// ExtractObject turns raw model output into the text of a single JSON
// object, or EmptyObject when none can be found. Multiple sibling objects
// are treated as JSONL output and merged with the first occurrence of each
// key winning, so a truncated trailing duplicate cannot clobber good data.
func ExtractObject(raw string) string {
	s := Clean(raw)

	objs := siblingObjects(s)
	if len(objs) > 1 {
		if merged, ok := mergeSiblings(objs); ok {
			return merged
		}
	}

	var candidate string
	if len(objs) >= 1 {
		candidate = objs[0]
	} else {
		start := strings.IndexByte(s, '{')
		if start < 0 {
			return EmptyObject
		}
		end := strings.LastIndexByte(s, '}')
		if end > start {
			candidate = s[start : end+1]
		} else if repaired, ok := repairTruncatedObject(s[start:]); ok {
			candidate = repaired
		} else {
			return EmptyObject
		}
	}

	candidate = TruncateAtDuplicateKey(candidate)
	if json.Valid([]byte(candidate)) {
		return candidate
	}
	if repaired, ok := repairTruncatedObject(candidate); ok && json.Valid([]byte(repaired)) {
		return repaired
	}
	return candidate
}

// ExtractArray locates the first JSON array, repairing a truncated tail by
// dropping incomplete elements. Returns EmptyArray when nothing is found.
func ExtractArray(raw string) string {
	s := Clean(raw)
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return EmptyArray
	}
	if candidate := balancedFrom(s, start, '[', ']'); candidate != "" {
		return candidate
	}
	if repaired, ok := repairTruncatedArray(s[start:]); ok {
		return repaired
	}
	return EmptyArray
}

// Extract picks object or array recovery based on whichever opens first,
// matching how prompts that request one shape sometimes get the other.
func Extract(raw string) string {
	s := Clean(raw)
	obj := strings.IndexByte(s, '{')
	arr := strings.IndexByte(s, '[')
	switch {
	case obj < 0 && arr < 0:
		return EmptyObject
	case arr < 0 || (obj >= 0 && obj < arr):
		return ExtractObject(raw)
	default:
		return ExtractArray(raw)
	}
}

// mergeSiblings unions JSONL-style sibling objects into one document,
// emitting keys in first-seen order so downstream document-order parsing
// still reflects the order the model produced. An object that breaks
// mid-stream contributes the keys parsed before the break.
func mergeSiblings(objs []string) (string, bool) {
	seen := make(map[string]struct{})
	var b strings.Builder
	b.WriteByte('{')
	n := 0
	for _, o := range objs {
		dec := json.NewDecoder(strings.NewReader(TruncateAtDuplicateKey(o)))
		if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
			continue
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				break
			}
			key, ok := tok.(string)
			if !ok {
				break
			}
			var val json.RawMessage
			if err := dec.Decode(&val); err != nil {
				break
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if n > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(key)
			b.Write(kb)
			b.WriteByte(':')
			b.Write(val)
			n++
		}
	}
	if n == 0 {
		return "", false
	}
	b.WriteByte('}')
	return b.String(), true
}
