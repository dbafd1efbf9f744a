package devotional

import "time"

// StudyDocument is the sanitized result of one generation call.
// Slices are never nil and strings default to "" once the document leaves Sanitize.
type StudyDocument struct {
	ID                   string     `json:"id,omitempty"`
	Title                string     `json:"title"`
	PassageText          string     `json:"passageText"`
	Summary              string     `json:"summary"`
	HistoricalContext    string     `json:"historicalContext"`
	KeyVerses            []string   `json:"keyVerses"`
	Quiz                 []Question `json:"quiz"`
	ReflectionPrompts    []string   `json:"reflectionPrompts"`
	PracticalApplication string     `json:"practicalApplication"`
	DailyPlan            []DayPlan  `json:"dailyPlan"`
}

// DayPlan is one day of the short plan attached to a study
type DayPlan struct {
	Day    int    `json:"day"`
	Focus  string `json:"focus"`
	Verse  string `json:"verse"`
	Action string `json:"action"`
}

// ValidationResult represents the result of checking one quiz entry
type ValidationResult struct {
	Index  int              `json:"index"`
	Type   QuestionType     `json:"type"`
	Action ValidationAction `json:"action"`
	Reason string           `json:"reason"`
}

// ValidationAction represents what the checker decided to do
type ValidationAction string

const (
	ActionAccept ValidationAction = "accept"
	ActionReject ValidationAction = "reject"
	ActionRevise ValidationAction = "revise"
)

// GenerationRequest represents a request to generate a study
type GenerationRequest struct {
	Passage      string `json:"passage"`
	NumQuestions int    `json:"num_questions"`
}

const (
	DefaultNumQuestions = 10
	MaxNumQuestions     = 30
)

// Normalize clamps the question count into the supported range
func (r GenerationRequest) Normalize() GenerationRequest {
	if r.NumQuestions <= 0 {
		r.NumQuestions = DefaultNumQuestions
	}
	if r.NumQuestions > MaxNumQuestions {
		r.NumQuestions = MaxNumQuestions
	}
	return r
}

// PlanDuration is the length of a reading plan
type PlanDuration string

const (
	DurationIntensive PlanDuration = "intensive"
	DurationWeekly    PlanDuration = "weekly"
	DurationMonthly   PlanDuration = "monthly"
	DurationAnnual    PlanDuration = "annual"
)

// ParsePlanDuration validates a duration name; unknown names fall back to weekly
func ParsePlanDuration(s string) (PlanDuration, bool) {
	switch d := PlanDuration(s); d {
	case DurationIntensive, DurationWeekly, DurationMonthly, DurationAnnual:
		return d, true
	}
	return DurationWeekly, false
}

// ReadingPlan is a generated itinerary of passages
type ReadingPlan struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Duration    PlanDuration      `json:"duration"`
	Topic       string            `json:"topic,omitempty"`
	Items       []ReadingPlanItem `json:"items"`
	CreatedAt   time.Time         `json:"created_at,omitempty"`
}

// ReadingPlanItem is one stop of a reading plan
type ReadingPlanItem struct {
	ID      string `json:"id"`
	Passage string `json:"passage"`
	Theme   string `json:"theme"`
	Reason  string `json:"reason"`
}

// HistoryItem is a recently generated study
type HistoryItem struct {
	StudyID   string    `json:"study_id"`
	Title     string    `json:"title"`
	Passage   string    `json:"passage"`
	CreatedAt time.Time `json:"created_at"`
}

// QuizResult is the final tally of a completed session
type QuizResult struct {
	ID          string    `json:"id"`
	StudyID     string    `json:"study_id"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Answers     []string  `json:"answers"`
	CompletedAt time.Time `json:"completed_at"`
}

// JournalEntry is the reader's written answer to one reflection prompt of a study
type JournalEntry struct {
	StudyID     string    `json:"study_id"`
	PromptIndex int       `json:"prompt_index"`
	Prompt      string    `json:"prompt"`
	Text        string    `json:"text"`
	UpdatedAt   time.Time `json:"updated_at"`
}
