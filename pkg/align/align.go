// Package align locates extracted dialog lines inside the chapter text so
// the reader can highlight the words as they are spoken. Extraction is
// lossy: the model trims ellipses, normalizes quotes, drops a word. Exact
// search is tried first and a word-level diff recovers the rest.
package align

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"fable/pkg/schema"
	"fable/pkg/utils"
)

// Span is one located dialog line, in rune offsets into the chapter text.
type Span struct {
	Dialog int  `json:"dialog"`
	Start  int  `json:"start"`
	End    int  `json:"end"`
	Exact  bool `json:"exact"`
}

// minCoverage is the share of a line's word tokens that must survive the
// diff for a fuzzy location to count.
const minCoverage = 0.5

// Dialogs locates each line in order. Lines that cannot be located are
// omitted; highlighting simply skips them. Exact matches are searched
// forward from the previous match so repeated lines land on successive
// occurrences.
func Dialogs(text string, dialogs []schema.Dialog) []Span {
	var out []Span
	cursor := 0
	for i, d := range dialogs {
		line := strings.TrimSpace(d.Text)
		if line == "" {
			continue
		}

		if at := strings.Index(text[cursor:], line); at >= 0 {
			start := cursor + at
			end := start + len(line)
			out = append(out, Span{
				Dialog: i,
				Start:  utf8.RuneCountInString(text[:start]),
				End:    utf8.RuneCountInString(text[:end]),
				Exact:  true,
			})
			cursor = end
			continue
		}

		if span, ok := fuzzyLocate(text, line); ok {
			span.Dialog = i
			out = append(out, span)
		}
	}
	return out
}

// fuzzyLocate aligns the line against the whole text word by word and takes
// the region between the first and last shared token.
func fuzzyLocate(text, line string) (Span, bool) {
	deltas := utils.DiffWords(text, line)

	offset := 0
	start, end := -1, -1
	var shared, lineWords int
	for _, d := range deltas {
		switch d.Op {
		case 0:
			if start < 0 {
				start = offset
			}
			offset += len(d.Text)
			end = offset
			if isWordToken(d.Text) {
				shared++
				lineWords++
			}
		case -1:
			offset += len(d.Text)
		case +1:
			if isWordToken(d.Text) {
				lineWords++
			}
		}
	}
	if start < 0 || lineWords == 0 {
		return Span{}, false
	}
	if float64(shared)/float64(lineWords) < minCoverage {
		return Span{}, false
	}
	return Span{
		Start: utf8.RuneCountInString(text[:start]),
		End:   utf8.RuneCountInString(text[:end]),
	}, true
}

// isWordToken mirrors the tokenizer's classification: tokens are uniform,
// so the first rune decides.
func isWordToken(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || r == '-' || r == '\''
}
