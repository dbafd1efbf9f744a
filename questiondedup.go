package devotional

import (
	"strings"
	"unicode"
)

// DedupResult represents the result of deduplication
type DedupResult struct {
	IsDuplicate bool
	DuplicateOf int // index of the earlier question, when IsDuplicate
}

// QuestionDedup detects quiz entries that repeat an earlier prompt of the same type.
type QuestionDedup struct {
	seen map[string]int // normalized prompt -> first index
}

// NewQuestionDedup creates a new question deduplicator
func NewQuestionDedup() *QuestionDedup {
	return &QuestionDedup{seen: make(map[string]int)}
}

// CheckDuplicate records q at index and reports whether an earlier entry had
// the same type and prompt. Empty prompts never count as duplicates.
func (qd *QuestionDedup) CheckDuplicate(index int, q Question) DedupResult {
	key := normalizePrompt(q.Prompt())
	if key == "" {
		return DedupResult{}
	}
	key = string(q.Type()) + "|" + key
	if first, ok := qd.seen[key]; ok {
		return DedupResult{IsDuplicate: true, DuplicateOf: first}
	}
	qd.seen[key] = index
	return DedupResult{}
}

// normalizePrompt lowercases and keeps only letters and digits, one space apart.
func normalizePrompt(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return strings.Join(words, " ")
}
