// Package prompts defines the extraction tasks issued against the model:
// what each pass asks for, how much of the context window it may spend, and
// how its raw response becomes typed data. Every Parse implementation is
// total: malformed model output degrades to an empty result, it never
// returns an error.
package prompts

import (
	"encoding/json"

	"fable/pkg/budget"
	"fable/pkg/schema"
)

// Prompt is the contract every extraction task implements. Implementations
// are stateless value types; an invocation is idempotent given the same
// input and model output.
type Prompt[I, O any] interface {
	// Purpose is a short human-readable label used in logs.
	Purpose() string

	// Budget is the pass's slice of the context window.
	Budget() budget.TokenBudget

	// Temperature for the model call. Extraction passes run near zero;
	// generation runs hot.
	Temperature() float64

	System() string

	// PrepareInput truncates the input so its text fits Budget's input
	// allocation, cutting at a paragraph or sentence boundary when one
	// exists.
	PrepareInput(I) I

	// UserPrompt renders the user message. Pure template expansion.
	UserPrompt(I) string

	// Parse converts raw model output into O. It must accept arbitrary
	// bytes and produce O's zero value (or a partial result) rather than
	// failing.
	Parse(raw string) O
}

const jsonReminder = "\nEnsure the JSON is valid and contains no trailing commas."

// parseVoiceValue accepts the compact tuple string, the legacy nested
// object form, or anything else (ignored).
func parseVoiceValue(raw json.RawMessage) *schema.VoiceProfile {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, ok := schema.ParseVoiceString(s); ok {
			return &v
		}
		return nil
	}
	var obj schema.VoiceProfile
	if err := json.Unmarshal(raw, &obj); err == nil {
		if (obj == schema.VoiceProfile{}) {
			return nil
		}
		v := obj.Normalize()
		return &v
	}
	return nil
}
