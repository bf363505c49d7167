package jsonfix

import "strings"

// The scanning helpers below share one convention: brace depth is tracked
// character by character, a quote toggles string state unless escaped, and a
// backslash skips the following character. Model output is untrusted text,
// so none of these ever return an error; the worst case is returning the
// input unchanged.

// siblingObjects collects every complete top-level JSON object in s.
// A trailing unbalanced object is ignored; it is a truncation artifact.
func siblingObjects(s string) []string {
	var out []string
	depth := 0
	inString, escape := false, false
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}

// balancedFrom returns the slice from start through the close matching the
// opener at start, or "" when the text runs out before balancing.
func balancedFrom(s string, start int, open, close byte) string {
	depth := 0
	inString, escape := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// TruncateAtDuplicateKey cuts a JSON object at the first repeated top-level
// key. A small model that has finished its real output will often loop,
// re-emitting earlier characters with garbled values; everything from the
// first repeat onward is discarded and the object is closed early. The
// first occurrence of each key is always the one kept.
//
// As a side effect, an object that never closes is truncated after its last
// complete entry.
func TruncateAtDuplicateKey(s string) string {
	seen := make(map[string]struct{})
	depth := 0
	inString, escape := false, false
	keyStart := -1
	currentKey := ""
	lastValidEnd := -1

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '"' {
			if !inString {
				inString = true
				if depth == 1 {
					keyStart = i + 1
				}
			} else {
				inString = false
				if depth == 1 && keyStart >= 0 {
					currentKey = s[keyStart:i]
					keyStart = -1
				}
			}
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
			if depth == 2 && currentKey != "" {
				lower := strings.ToLower(currentKey)
				if _, dup := seen[lower]; dup {
					return s[:truncatePosBefore(s, i)] + "}"
				}
				seen[lower] = struct{}{}
			}
		case '}':
			if depth == 2 {
				lastValidEnd = i
			}
			depth--
		}
	}

	if lastValidEnd > 0 && !strings.HasSuffix(strings.TrimRight(s, " \t\r\n"), "}") {
		return s[:lastValidEnd+1] + "}"
	}
	return s
}

// truncatePosBefore walks backwards from the duplicate entry's opening brace
// to the comma separating it from the previous entry.
func truncatePosBefore(s string, from int) int {
	depth := 0
	for pos := from; pos > 0; {
		pos--
		switch s[pos] {
		case '}':
			depth++
		case '{':
			depth--
		case ',':
			if depth == 0 {
				return pos
			}
		}
	}
	return from
}

// repairTruncatedObject salvages an object whose tail was cut mid-entry by
// dropping everything after the last complete nested entry and re-closing.
// s must begin at the object's opening brace.
func repairTruncatedObject(s string) (string, bool) {
	lastGood := -1
	depth := 0
	inString, escape := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 1 {
				lastGood = i
			}
		}
	}
	if lastGood <= 0 {
		return "", false
	}
	repaired := strings.TrimRight(s[:lastGood+1], " \t\r\n")
	repaired = strings.TrimRight(repaired, ",")
	return repaired + "}", true
}

// repairTruncatedArray mirrors repairTruncatedObject for top-level arrays of
// objects: keep up to the last element that closed, then re-close the array.
// s must begin at the array's opening bracket.
func repairTruncatedArray(s string) (string, bool) {
	lastGood := -1
	depth := 0
	inString, escape := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 1 && c == '}' {
				lastGood = i
			}
		}
	}
	if lastGood <= 0 {
		return "", false
	}
	repaired := strings.TrimRight(s[:lastGood+1], " \t\r\n")
	repaired = strings.TrimRight(repaired, ",")
	return repaired + "]", true
}
