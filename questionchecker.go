package devotional

import (
	"fmt"
	"strings"
)

// CheckQuestions decides, for each decoded quiz entry, whether it is accepted
// as is, accepted after repairs, or rejected. Rejected entries are not removed;
// they stay in the quiz as broken variants.
func CheckQuestions(decoded []decodedQuestion) []ValidationResult {
	results := make([]ValidationResult, 0, len(decoded))
	dedup := NewQuestionDedup()
	for i, dq := range decoded {
		repairs := dq.repairs
		if d := dedup.CheckDuplicate(i, dq.question); d.IsDuplicate {
			repairs = append(repairs, fmt.Sprintf("repeats question %d", d.DuplicateOf))
		}
		result := CheckQuestion(i, dq.question, repairs)
		VerboseLog("checked question", "index", i, "type", result.Type, "action", result.Action, "reason", result.Reason)
		results = append(results, result)
	}
	return results
}

// CheckQuestion validates a single question and returns the validation result
func CheckQuestion(index int, q Question, repairs []string) ValidationResult {
	result := ValidationResult{
		Index:  index,
		Type:   q.Type(),
		Action: ActionAccept,
		Reason: "well formed",
	}
	if err := q.Validate(); err != nil {
		result.Action = ActionReject
		result.Reason = err.Error()
		return result
	}
	if strings.TrimSpace(q.Prompt()) == "" && q.Type() != TypeFillInTheBlanks {
		repairs = append(repairs, "empty question text")
	}
	if len(repairs) > 0 {
		result.Action = ActionRevise
		result.Reason = strings.Join(repairs, "; ")
	}
	return result
}

// summarizeChecks counts results per action, for log lines.
func summarizeChecks(results []ValidationResult) string {
	var accepted, revised, rejected int
	for _, r := range results {
		switch r.Action {
		case ActionAccept:
			accepted++
		case ActionRevise:
			revised++
		case ActionReject:
			rejected++
		}
	}
	return fmt.Sprintf("%d accepted, %d revised, %d rejected", accepted, revised, rejected)
}
