package devotional

import "regexp"

// blankPattern matches "[blank]", "[___]" and bare underscore runs. Bare runs
// only count when they stand alone, which isBareBlank checks since RE2 has no
// lookaround.
var blankPattern = regexp.MustCompile(`(?i)\[\s*blank\s*\]|\[\s*_+\s*\]|_+`)

// blankMarkers returns the byte ranges of every blank marker in text.
func blankMarkers(text string) [][]int {
	var out [][]int
	for _, loc := range blankPattern.FindAllStringIndex(text, -1) {
		if text[loc[0]] == '_' && !isBareBlank(text, loc[0], loc[1]) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

func isBareBlank(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// CountBlanks returns the number of blank markers in text.
func CountBlanks(text string) int {
	return len(blankMarkers(text))
}

// SplitBlanks returns the text segments around the blank markers; a text with
// n markers yields n+1 segments.
func SplitBlanks(text string) []string {
	markers := blankMarkers(text)
	out := make([]string, 0, len(markers)+1)
	prev := 0
	for _, loc := range markers {
		out = append(out, text[prev:loc[0]])
		prev = loc[1]
	}
	return append(out, text[prev:])
}
