package devotional

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// QuestionType is the discriminant of a quiz entry
type QuestionType string

const (
	TypeMultipleChoice    QuestionType = "multiple-choice"
	TypeMultipleSelection QuestionType = "multiple-selection"
	TypeMatching          QuestionType = "matching"
	TypeOrdering          QuestionType = "ordering"
	TypeFillInTheBlanks   QuestionType = "fill-in-the-blanks"
	TypeOpenEnded         QuestionType = "open-ended"
)

// ErrBrokenQuestion is wrapped by every shape violation returned from Validate.
var ErrBrokenQuestion = errors.New("broken question")

// Question is one quiz variant. The set of implementations is closed: the
// unexported methods keep other packages from adding cases, and every case
// must provide its own grading and rendering.
type Question interface {
	Type() QuestionType
	Prompt() string
	Explanation() string

	// Validate reports a shape violation. It never panics, whatever the payload.
	Validate() error

	grade(a Answer) (bool, error)
	render(a Answer) string
}

// Base holds the fields every variant carries.
type Base struct {
	Text string `json:"question"`
	Why  string `json:"explanation"`
}

func (b Base) Prompt() string      { return b.Text }
func (b Base) Explanation() string { return b.Why }

// MultipleChoice has exactly one correct option.
type MultipleChoice struct {
	Base
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

func (q *MultipleChoice) Type() QuestionType { return TypeMultipleChoice }

func (q *MultipleChoice) Validate() error {
	if len(q.Options) < 2 {
		return brokenf("multiple-choice needs at least 2 options, got %d", len(q.Options))
	}
	if i := firstBlank(q.Options); i >= 0 {
		return brokenf("option %d has no text", i)
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return brokenf("correct index %d out of range for %d options", q.CorrectIndex, len(q.Options))
	}
	return nil
}

func (q *MultipleChoice) grade(a Answer) (bool, error) {
	ans, ok := a.(ChoiceAnswer)
	if !ok {
		return false, mismatch(q, a)
	}
	return ans.Index == q.CorrectIndex, nil
}

func (q *MultipleChoice) render(a Answer) string {
	ans := a.(ChoiceAnswer)
	return optionText(q.Options, ans.Index)
}

// MultipleSelection has zero or more correct options, graded as a set.
type MultipleSelection struct {
	Base
	Options        []string `json:"options"`
	CorrectIndices []int    `json:"correctIndices"`
}

func (q *MultipleSelection) Type() QuestionType { return TypeMultipleSelection }

func (q *MultipleSelection) Validate() error {
	if len(q.Options) == 0 {
		return brokenf("multiple-selection has no options")
	}
	if i := firstBlank(q.Options); i >= 0 {
		return brokenf("option %d has no text", i)
	}
	seen := make(map[int]bool, len(q.CorrectIndices))
	for _, i := range q.CorrectIndices {
		if i < 0 || i >= len(q.Options) {
			return brokenf("correct index %d out of range for %d options", i, len(q.Options))
		}
		if seen[i] {
			return brokenf("correct index %d listed twice", i)
		}
		seen[i] = true
	}
	return nil
}

func (q *MultipleSelection) grade(a Answer) (bool, error) {
	ans, ok := a.(SelectionAnswer)
	if !ok {
		return false, mismatch(q, a)
	}
	return slices.Equal(sortedSet(ans.Indices), sortedSet(q.CorrectIndices)), nil
}

func (q *MultipleSelection) render(a Answer) string {
	set := sortedSet(a.(SelectionAnswer).Indices)
	parts := make([]string, 0, len(set))
	for _, i := range set {
		parts = append(parts, optionText(q.Options, i))
	}
	return strings.Join(parts, ", ")
}

// Pair is one left/right association of a matching question
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Matching asks to associate every left value with its right value.
type Matching struct {
	Base
	Pairs []Pair `json:"pairs"`
}

func (q *Matching) Type() QuestionType { return TypeMatching }

func (q *Matching) Validate() error {
	if len(q.Pairs) == 0 {
		return brokenf("matching has no pairs")
	}
	lefts := make(map[string]bool, len(q.Pairs))
	rights := make(map[string]bool, len(q.Pairs))
	for i, p := range q.Pairs {
		if strings.TrimSpace(p.Left) == "" || strings.TrimSpace(p.Right) == "" {
			return brokenf("pair %d has an empty side", i)
		}
		if lefts[p.Left] {
			return brokenf("left value %q appears twice", p.Left)
		}
		if rights[p.Right] {
			return brokenf("right value %q appears twice", p.Right)
		}
		lefts[p.Left] = true
		rights[p.Right] = true
	}
	return nil
}

// Rights returns the right column in canonical order.
func (q *Matching) Rights() []string {
	out := make([]string, len(q.Pairs))
	for i, p := range q.Pairs {
		out[i] = p.Right
	}
	return out
}

func (q *Matching) grade(a Answer) (bool, error) {
	ans, ok := a.(MatchingAnswer)
	if !ok {
		return false, mismatch(q, a)
	}
	for _, p := range q.Pairs {
		if got, ok := ans.Pairs[p.Left]; !ok || got != p.Right {
			return false, nil
		}
	}
	return true, nil
}

func (q *Matching) render(a Answer) string {
	ans := a.(MatchingAnswer)
	parts := make([]string, 0, len(ans.Pairs))
	for _, p := range q.Pairs {
		if right, ok := ans.Pairs[p.Left]; ok {
			parts = append(parts, p.Left+" = "+right)
		}
	}
	return strings.Join(parts, ", ")
}

// Ordering is judged by the exact sequence of OrderedItems.
type Ordering struct {
	Base
	OrderedItems []string `json:"orderedItems"`
}

func (q *Ordering) Type() QuestionType { return TypeOrdering }

func (q *Ordering) Validate() error {
	if len(q.OrderedItems) == 0 {
		return brokenf("ordering has no items")
	}
	if i := firstBlank(q.OrderedItems); i >= 0 {
		return brokenf("item %d has no text", i)
	}
	return nil
}

func (q *Ordering) grade(a Answer) (bool, error) {
	ans, ok := a.(OrderingAnswer)
	if !ok {
		return false, mismatch(q, a)
	}
	return slices.Equal(ans.Items, q.OrderedItems), nil
}

func (q *Ordering) render(a Answer) string {
	return strings.Join(a.(OrderingAnswer).Items, " -> ")
}

// FillInTheBlanks holds text with blank markers and one answer per marker.
type FillInTheBlanks struct {
	Base
	TextWithBlanks string   `json:"textWithBlanks"`
	BlankAnswers   []string `json:"blankAnswers"`
}

func (q *FillInTheBlanks) Type() QuestionType { return TypeFillInTheBlanks }

func (q *FillInTheBlanks) Validate() error {
	n := CountBlanks(q.TextWithBlanks)
	if n == 0 {
		return brokenf("text has no blank markers")
	}
	if n != len(q.BlankAnswers) {
		return brokenf("text has %d blanks but %d answers", n, len(q.BlankAnswers))
	}
	if i := firstBlank(q.BlankAnswers); i >= 0 {
		return brokenf("blank answer %d has no text", i)
	}
	return nil
}

// Segments splits the text around its blank markers.
func (q *FillInTheBlanks) Segments() []string {
	return SplitBlanks(q.TextWithBlanks)
}

func (q *FillInTheBlanks) grade(a Answer) (bool, error) {
	ans, ok := a.(BlanksAnswer)
	if !ok {
		return false, mismatch(q, a)
	}
	if len(ans.Values) != len(q.BlankAnswers) {
		return false, nil
	}
	for i, want := range q.BlankAnswers {
		if !blankMatches(ans.Values[i], want) {
			return false, nil
		}
	}
	return true, nil
}

func (q *FillInTheBlanks) render(a Answer) string {
	return strings.Join(a.(BlanksAnswer).Values, ", ")
}

// BlankCorrect reports per-blank correctness for feedback; it does not affect scoring.
func (q *FillInTheBlanks) BlankCorrect(values []string) []bool {
	out := make([]bool, len(q.BlankAnswers))
	for i, want := range q.BlankAnswers {
		out[i] = i < len(values) && blankMatches(values[i], want)
	}
	return out
}

func blankMatches(got, want string) bool {
	return strings.ToLower(strings.TrimSpace(got)) == strings.ToLower(strings.TrimSpace(want))
}

// OpenEnded is a reflection question; any answer counts as correct.
type OpenEnded struct {
	Base
}

func (q *OpenEnded) Type() QuestionType { return TypeOpenEnded }
func (q *OpenEnded) Validate() error    { return nil }

func (q *OpenEnded) grade(a Answer) (bool, error) {
	if _, ok := a.(TextAnswer); !ok {
		return false, mismatch(q, a)
	}
	return true, nil
}

func (q *OpenEnded) render(a Answer) string {
	return strings.TrimSpace(a.(TextAnswer).Text)
}

// UnknownQuestion keeps an entry whose type tag is not recognized. It is always broken.
type UnknownQuestion struct {
	Base
	Tag string `json:"-"`
}

func (q *UnknownQuestion) Type() QuestionType { return QuestionType(q.Tag) }

func (q *UnknownQuestion) Validate() error {
	return brokenf("unknown question type %q", q.Tag)
}

func (q *UnknownQuestion) grade(a Answer) (bool, error) {
	return false, q.Validate()
}

func (q *UnknownQuestion) render(Answer) string { return "" }

func brokenf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBrokenQuestion, fmt.Sprintf(format, args...))
}

func mismatch(q Question, a Answer) error {
	return fmt.Errorf("%w: %s question cannot take %T", ErrAnswerMismatch, q.Type(), a)
}

func optionText(options []string, i int) string {
	if i < 0 || i >= len(options) {
		return ""
	}
	return options[i]
}

// firstBlank returns the index of the first whitespace-only entry, or -1.
func firstBlank(items []string) int {
	return slices.IndexFunc(items, func(s string) bool { return strings.TrimSpace(s) == "" })
}

func sortedSet(in []int) []int {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
