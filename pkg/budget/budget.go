// Package budget models how a model's fixed context window is split between
// the prompt template, the input text, and the generated output.
package budget

import "fmt"

// DefaultContextWindow matches the small local models the pipeline targets.
const DefaultContextWindow = 4096

// CharsPerToken is a deliberately crude English-text estimate. Truncation
// only has to stay under the window with margin, not hit it exactly, so no
// tokenizer runs on the hot path (utils.NumTokens exists for diagnostics).
const CharsPerToken = 4

// TokenBudget is an immutable allocation of a context window.
type TokenBudget struct {
	PromptTokens int
	InputTokens  int
	OutputTokens int
}

// New validates the allocation against contextWindow. Exceeding the window
// is a programming error surfaced at construction, never at runtime.
func New(prompt, input, output, contextWindow int) (TokenBudget, error) {
	b := TokenBudget{PromptTokens: prompt, InputTokens: input, OutputTokens: output}
	if prompt < 0 || input < 0 || output < 0 {
		return TokenBudget{}, fmt.Errorf("budget: negative allocation %+v", b)
	}
	if total := b.TotalTokens(); total > contextWindow {
		return TokenBudget{}, fmt.Errorf("budget: %d tokens exceed context window %d", total, contextWindow)
	}
	return b, nil
}

// registered collects every Must allocation so a deployment can verify the
// backend's real context window covers them all. Only written during package
// init, so no locking.
var registered []TokenBudget

// Must is for package-level prompt definitions with constant allocations.
func Must(prompt, input, output int) TokenBudget {
	b, err := New(prompt, input, output, DefaultContextWindow)
	if err != nil {
		panic(err)
	}
	registered = append(registered, b)
	return b
}

// MaxTotalTokens returns the largest total allocation among all Must
// budgets.
func MaxTotalTokens() int {
	total := 0
	for _, b := range registered {
		total = max(total, b.TotalTokens())
	}
	return total
}

// CheckWindow verifies every registered budget fits a backend whose context
// window is window tokens. Budgets are validated against
// DefaultContextWindow at construction; this catches deployments pointed at
// a model with a smaller window than the default assumes.
func CheckWindow(window int) error {
	if t := MaxTotalTokens(); t > window {
		return fmt.Errorf("budget: largest allocation %d tokens exceeds context window %d", t, window)
	}
	return nil
}

func (b TokenBudget) TotalTokens() int { return b.PromptTokens + b.InputTokens + b.OutputTokens }

// MaxInputChars is the character ceiling for input text after truncation.
func (b TokenBudget) MaxInputChars() int { return b.InputTokens * CharsPerToken }

// MaxOutputChars is the expected ceiling of the generated response.
func (b TokenBudget) MaxOutputChars() int { return b.OutputTokens * CharsPerToken }
