package schema

import (
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
)

func generateSchema[T any]() any {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return r.Reflect(v)
}

var ThemeAnalysisSchema = generateSchema[ThemeAnalysis]()

// ThemesResponseFormat enables structured outputs for backends that support
// it. Local backends that ignore response_format still go through the
// recovery parser, so this is an optimization, not a requirement.
func ThemesResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	p := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "theme_analysis",
		Description: openai.String("Mood, genre, era, and tone extracted from a book"),
		Schema:      ThemeAnalysisSchema,
		Strict:      openai.Bool(true),
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: p},
	}
}
