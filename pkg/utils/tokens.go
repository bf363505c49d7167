package utils

import (
	"github.com/pkoukk/tiktoken-go"
)

// NumTokens counts tokens with a real tokenizer. The budget layer works on
// a chars-per-token estimate; this exists for logging the actual ratio.
func NumTokens(text string) (int, error) {
	tkm, err := tiktoken.EncodingForModel("gpt-4-0613")
	if err != nil {
		return 0, err
	}

	return len(tkm.Encode(text, nil, nil)), nil
}
