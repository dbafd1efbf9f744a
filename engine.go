package devotional

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	// ErrSessionComplete is returned by operations that need a current question after the last one.
	ErrSessionComplete = errors.New("session complete")
	// ErrAlreadyAnswered is returned when scratch state is edited after the question was graded.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrIncompleteAnswer is returned by Confirm when the scratch answer is not ready.
	ErrIncompleteAnswer = errors.New("answer incomplete")
	// ErrInvalidInput is returned for out-of-range indices and unknown values.
	ErrInvalidInput = errors.New("invalid input")
)

// maxShuffleAttempts bounds how often an ordering question is reshuffled to
// avoid starting in the solved order.
const maxShuffleAttempts = 5

// Result is the outcome of grading one answer.
type Result struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
	// Blanks holds per-blank correctness for fill-in-the-blanks feedback.
	Blanks []bool `json:"blanks,omitempty"`
}

// View is what the presentation layer renders for the current index:
// ActiveQuestion, BrokenQuestion or SessionComplete.
type View interface {
	isView()
}

// ActiveQuestion is a well-formed question together with its scratch state.
type ActiveQuestion struct {
	Index    int
	Total    int
	Question Question
	Scratch  Scratch
	Answered bool
	Result   *Result
}

// BrokenQuestion marks a question whose payload failed validation. The
// payload is not exposed; the only way forward is Skip.
type BrokenQuestion struct {
	Index  int
	Total  int
	Type   QuestionType
	Reason string
}

// SessionComplete is the terminal view until Restart.
type SessionComplete struct {
	Score int
	Total int
}

func (ActiveQuestion) isView()  {}
func (BrokenQuestion) isView()  {}
func (SessionComplete) isView() {}

// Scratch is the in-progress answer for the current question. It only lives
// while the question is current.
type Scratch struct {
	Choice    int               `json:"choice"`
	Selection []int             `json:"selection,omitempty"`
	Rights    []string          `json:"rights,omitempty"`
	Pairing   map[string]string `json:"pairing,omitempty"`
	Items     []string          `json:"items,omitempty"`
	Blanks    []string          `json:"blanks,omitempty"`
	Text      string            `json:"text,omitempty"`
}

func (s Scratch) clone() Scratch {
	out := s
	out.Selection = slices.Clone(s.Selection)
	out.Rights = slices.Clone(s.Rights)
	out.Items = slices.Clone(s.Items)
	out.Blanks = slices.Clone(s.Blanks)
	if s.Pairing != nil {
		out.Pairing = make(map[string]string, len(s.Pairing))
		for k, v := range s.Pairing {
			out.Pairing[k] = v
		}
	}
	return out
}

// EngineOption configures a QuizEngine
type EngineOption func(*QuizEngine)

// WithRand sets the source used for shuffling; tests pass a seeded one.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *QuizEngine) {
		e.rng = r
	}
}

// QuizEngine runs one quiz session over a fixed sequence of questions.
// It is safe for concurrent use; every write is keyed by the index current
// at call time.
type QuizEngine struct {
	mu        sync.Mutex
	questions []Question
	index     int
	score     int
	complete  bool
	answers   map[int]string
	results   map[int]Result
	scratch   Scratch
	rng       *rand.Rand
}

// NewQuizEngine creates a session positioned on the first question.
func NewQuizEngine(questions []Question, opts ...EngineOption) *QuizEngine {
	e := &QuizEngine{
		questions: slices.Clone(questions),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reset()
	return e
}

func (e *QuizEngine) reset() {
	e.index = 0
	e.score = 0
	e.answers = make(map[int]string)
	e.results = make(map[int]Result)
	e.complete = len(e.questions) == 0
	e.enter()
}

// enter derives fresh scratch state for the current index.
func (e *QuizEngine) enter() {
	e.scratch = Scratch{Choice: -1}
	if e.complete {
		return
	}
	q := e.questions[e.index]
	if q.Validate() != nil {
		return
	}
	switch v := q.(type) {
	case *MultipleSelection:
		e.scratch.Selection = []int{}
	case *Matching:
		e.scratch.Rights = v.Rights()
		e.rng.Shuffle(len(e.scratch.Rights), func(i, j int) {
			e.scratch.Rights[i], e.scratch.Rights[j] = e.scratch.Rights[j], e.scratch.Rights[i]
		})
		e.scratch.Pairing = map[string]string{}
	case *Ordering:
		e.scratch.Items = e.shuffledOrder(v.OrderedItems)
	case *FillInTheBlanks:
		e.scratch.Blanks = make([]string, len(v.BlankAnswers))
	}
}

func (e *QuizEngine) shuffledOrder(canonical []string) []string {
	items := slices.Clone(canonical)
	if !hasDistinct(items) {
		return items
	}
	for attempt := 0; attempt < maxShuffleAttempts; attempt++ {
		e.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		if !slices.Equal(items, canonical) {
			return items
		}
	}
	// a one-step rotation differs from the canonical order unless all items are equal
	return append(items[1:], items[0])
}

func hasDistinct(items []string) bool {
	for _, it := range items[1:] {
		if it != items[0] {
			return true
		}
	}
	return false
}

// Current returns the view for the current index.
func (e *QuizEngine) Current() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current()
}

func (e *QuizEngine) current() View {
	if e.complete {
		return SessionComplete{Score: e.score, Total: len(e.questions)}
	}
	q := e.questions[e.index]
	if err := q.Validate(); err != nil {
		return BrokenQuestion{Index: e.index, Total: len(e.questions), Type: q.Type(), Reason: err.Error()}
	}
	view := ActiveQuestion{
		Index:    e.index,
		Total:    len(e.questions),
		Question: q,
		Scratch:  e.scratch.clone(),
	}
	if r, ok := e.results[e.index]; ok {
		view.Answered = true
		view.Result = &r
	}
	return view
}

// active returns the current question, or an error when there is none to act on.
func (e *QuizEngine) active() (Question, error) {
	if e.complete {
		return nil, ErrSessionComplete
	}
	q := e.questions[e.index]
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Submit grades a typed answer for the current question. A second Submit
// for the same index returns the first result unchanged.
func (e *QuizEngine) Submit(a Answer) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submit(e.index, a)
}

func (e *QuizEngine) submit(index int, a Answer) (Result, error) {
	q, err := e.active()
	if err != nil {
		return Result{}, err
	}
	if r, ok := e.results[index]; ok {
		return r, nil
	}
	if a == nil {
		return Result{}, fmt.Errorf("%w: nil answer", ErrAnswerMismatch)
	}
	correct, err := q.grade(a)
	if err != nil {
		return Result{}, err
	}
	result := Result{Correct: correct, Explanation: q.Explanation()}
	if fb, ok := q.(*FillInTheBlanks); ok {
		result.Blanks = fb.BlankCorrect(a.(BlanksAnswer).Values)
	}
	if correct {
		e.score++
	}
	e.answers[index] = q.render(a)
	e.results[index] = result
	VerboseLog("graded answer", "index", index, "type", q.Type(), "correct", correct)
	return result, nil
}

// Advance moves to the next question with fresh scratch state, or completes
// the session after the last one.
func (e *QuizEngine) Advance() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advance()
}

func (e *QuizEngine) advance() {
	if e.complete {
		return
	}
	if e.index+1 < len(e.questions) {
		e.index++
	} else {
		e.complete = true
	}
	e.enter()
}

// Skip records NoAnswer for an unanswered question and advances. The score is untouched.
func (e *QuizEngine) Skip() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.complete {
		return
	}
	if _, ok := e.answers[e.index]; !ok {
		e.answers[e.index] = NoAnswer
	}
	e.advance()
}

// Restart returns to the first question and clears score and answers.
func (e *QuizEngine) Restart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
}

// Score returns the number of correct answers so far.
func (e *QuizEngine) Score() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score
}

// Len returns the number of questions in the session.
func (e *QuizEngine) Len() int {
	return len(e.questions)
}

// Answers returns the rendered answer for every index, in order. Indices
// never answered nor skipped render as NoAnswer.
func (e *QuizEngine) Answers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.questions))
	for i := range out {
		if a, ok := e.answers[i]; ok {
			out[i] = a
		} else {
			out[i] = NoAnswer
		}
	}
	return out
}

// editable returns the current question if its scratch state may change.
func (e *QuizEngine) editable() (Question, error) {
	q, err := e.active()
	if err != nil {
		return nil, err
	}
	if _, ok := e.results[e.index]; ok {
		return nil, ErrAlreadyAnswered
	}
	return q, nil
}

// Select picks the option of a multiple-choice question.
func (e *QuizEngine) Select(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, err := e.editable()
	if err != nil {
		return err
	}
	mc, ok := q.(*MultipleChoice)
	if !ok {
		return fmt.Errorf("%w: select on %s question", ErrAnswerMismatch, q.Type())
	}
	if i < 0 || i >= len(mc.Options) {
		return fmt.Errorf("%w: option %d", ErrInvalidInput, i)
	}
	e.scratch.Choice = i
	return nil
}

// Toggle adds or removes an option of a multiple-selection question.
func (e *QuizEngine) Toggle(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, err := e.editable()
	if err != nil {
		return err
	}
	ms, ok := q.(*MultipleSelection)
	if !ok {
		return fmt.Errorf("%w: toggle on %s question", ErrAnswerMismatch, q.Type())
	}
	if i < 0 || i >= len(ms.Options) {
		return fmt.Errorf("%w: option %d", ErrInvalidInput, i)
	}
	if pos := slices.Index(e.scratch.Selection, i); pos >= 0 {
		e.scratch.Selection = slices.Delete(e.scratch.Selection, pos, pos+1)
	} else {
		e.scratch.Selection = append(e.scratch.Selection, i)
		slices.Sort(e.scratch.Selection)
	}
	return nil
}

// Pair associates a left value with a right value. A right value belongs to
// at most one left value, so pairing it again moves it.
func (e *QuizEngine) Pair(left, right string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.matching()
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(m.Pairs, func(p Pair) bool { return p.Left == left }) {
		return fmt.Errorf("%w: unknown left value %q", ErrInvalidInput, left)
	}
	if !slices.Contains(e.scratch.Rights, right) {
		return fmt.Errorf("%w: unknown right value %q", ErrInvalidInput, right)
	}
	for l, r := range e.scratch.Pairing {
		if r == right {
			delete(e.scratch.Pairing, l)
		}
	}
	e.scratch.Pairing[left] = right
	return nil
}

// Unpair removes the association of a left value.
func (e *QuizEngine) Unpair(left string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.matching(); err != nil {
		return err
	}
	delete(e.scratch.Pairing, left)
	return nil
}

func (e *QuizEngine) matching() (*Matching, error) {
	q, err := e.editable()
	if err != nil {
		return nil, err
	}
	m, ok := q.(*Matching)
	if !ok {
		return nil, fmt.Errorf("%w: pairing on %s question", ErrAnswerMismatch, q.Type())
	}
	return m, nil
}

// MoveItem moves the ordering item at from to position to.
func (e *QuizEngine) MoveItem(from, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, err := e.editable()
	if err != nil {
		return err
	}
	if _, ok := q.(*Ordering); !ok {
		return fmt.Errorf("%w: move on %s question", ErrAnswerMismatch, q.Type())
	}
	items := e.scratch.Items
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return fmt.Errorf("%w: move %d to %d", ErrInvalidInput, from, to)
	}
	item := items[from]
	items = slices.Delete(items, from, from+1)
	e.scratch.Items = slices.Insert(items, to, item)
	return nil
}

// SetBlank fills blank i of a fill-in-the-blanks question.
func (e *QuizEngine) SetBlank(i int, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, err := e.editable()
	if err != nil {
		return err
	}
	if _, ok := q.(*FillInTheBlanks); !ok {
		return fmt.Errorf("%w: blank on %s question", ErrAnswerMismatch, q.Type())
	}
	if i < 0 || i >= len(e.scratch.Blanks) {
		return fmt.Errorf("%w: blank %d", ErrInvalidInput, i)
	}
	e.scratch.Blanks[i] = text
	return nil
}

// SetText sets the reflection text of an open-ended question.
func (e *QuizEngine) SetText(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, err := e.editable()
	if err != nil {
		return err
	}
	if _, ok := q.(*OpenEnded); !ok {
		return fmt.Errorf("%w: text on %s question", ErrAnswerMismatch, q.Type())
	}
	e.scratch.Text = text
	return nil
}

// CanConfirm reports whether the scratch answer is complete enough to submit.
func (e *QuizEngine) CanConfirm() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, err := e.editable()
	if err != nil {
		return false
	}
	return e.canConfirm(q)
}

func (e *QuizEngine) canConfirm(q Question) bool {
	switch v := q.(type) {
	case *MultipleChoice:
		return e.scratch.Choice >= 0
	case *Matching:
		return len(e.scratch.Pairing) == len(v.Pairs)
	case *FillInTheBlanks:
		for _, b := range e.scratch.Blanks {
			if strings.TrimSpace(b) == "" {
				return false
			}
		}
		return true
	case *OpenEnded:
		return strings.TrimSpace(e.scratch.Text) != ""
	}
	// an empty selection is a valid answer when no option is correct
	return true
}

// Confirm submits the scratch answer.
func (e *QuizEngine) Confirm() (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, err := e.active()
	if err != nil {
		return Result{}, err
	}
	if r, ok := e.results[e.index]; ok {
		return r, nil
	}
	if !e.canConfirm(q) {
		return Result{}, ErrIncompleteAnswer
	}
	return e.submit(e.index, e.scratchAnswer(q))
}

func (e *QuizEngine) scratchAnswer(q Question) Answer {
	s := e.scratch.clone()
	switch q.(type) {
	case *MultipleChoice:
		return ChoiceAnswer{Index: s.Choice}
	case *MultipleSelection:
		return SelectionAnswer{Indices: s.Selection}
	case *Matching:
		return MatchingAnswer{Pairs: s.Pairing}
	case *Ordering:
		return OrderingAnswer{Items: s.Items}
	case *FillInTheBlanks:
		return BlanksAnswer{Values: s.Blanks}
	}
	return TextAnswer{Text: s.Text}
}
