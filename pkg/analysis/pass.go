// Package analysis orchestrates prompt passes over a book: it slices the
// text, runs each pass against the model, and folds batch results through
// the merger. Failures isolate per pass; the workflow always produces a
// result, possibly a degraded one.
package analysis

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go/v3"

	"fable/pkg/inference"
	"fable/pkg/prompts"
)

// ResponseFormatter is implemented by prompts that can hand a structured-
// outputs schema to backends that support it.
type ResponseFormatter interface {
	ResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion
}

// Run drives one pass: truncate the input to the prompt's budget, render
// the messages, invoke the model, parse. The raw model text is returned for
// diagnostics. A model failure degrades to the zero output with ok false;
// parse problems never surface at all.
func Run[I, O any](ctx context.Context, model inference.Inferencer, p prompts.Prompt[I, O], in I) (out O, raw string, ok bool) {
	in = p.PrepareInput(in)
	user := p.UserPrompt(in)

	b := p.Budget()
	params := &openai.ChatCompletionNewParams{
		MaxCompletionTokens: openai.Int(int64(b.OutputTokens)),
		Temperature:         openai.Float(p.Temperature()),
	}
	if rf, isFormatter := any(p).(ResponseFormatter); isFormatter {
		params.ResponseFormat = rf.ResponseFormat()
	}

	raw, err := model.Infer(ctx, params, p.System(), user)
	if err != nil {
		log.Warn("pass degraded to empty output", "pass", p.Purpose(), "err", err)
		return out, "", false
	}
	return p.Parse(raw), raw, true
}
