// Package inference abstracts the model backends behind one call shape so
// the pipeline can run against OpenAI, an OpenAI-compatible local server
// (llama.cpp, LM Studio), or Gemini without caring which.
package inference

import (
	"context"

	"github.com/openai/openai-go/v3"
)

// Inferencer runs one chat completion. An empty response or transport
// failure comes back as an error; the pass layer turns both into degraded
// (empty) results rather than propagating them.
type Inferencer interface {
	Infer(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error)
}
