package devotional

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAnswerMismatch is returned when an answer's shape does not fit the question type.
var ErrAnswerMismatch = errors.New("answer does not match question type")

// NoAnswer is recorded for questions that were skipped.
const NoAnswer = "(sin respuesta)"

// Answer is a typed submission. Each question type accepts exactly one answer type.
type Answer interface {
	isAnswer()
}

// ChoiceAnswer answers a multiple-choice question
type ChoiceAnswer struct {
	Index int `json:"index"`
}

// SelectionAnswer answers a multiple-selection question; order and duplicates are irrelevant
type SelectionAnswer struct {
	Indices []int `json:"indices"`
}

// MatchingAnswer maps left values to chosen right values
type MatchingAnswer struct {
	Pairs map[string]string `json:"pairs"`
}

// OrderingAnswer is the submitted permutation
type OrderingAnswer struct {
	Items []string `json:"items"`
}

// BlanksAnswer holds one value per blank, in text order
type BlanksAnswer struct {
	Values []string `json:"blanks"`
}

// TextAnswer answers an open-ended question
type TextAnswer struct {
	Text string `json:"text"`
}

func (ChoiceAnswer) isAnswer()    {}
func (SelectionAnswer) isAnswer() {}
func (MatchingAnswer) isAnswer()  {}
func (OrderingAnswer) isAnswer()  {}
func (BlanksAnswer) isAnswer()    {}
func (TextAnswer) isAnswer()      {}

// answerBody is the wire form of every answer type. Pointers tell a missing
// field apart from its zero value.
type answerBody struct {
	Index   *int               `json:"index"`
	Indices *[]int             `json:"indices"`
	Pairs   *map[string]string `json:"pairs"`
	Items   *[]string          `json:"items"`
	Blanks  *[]string          `json:"blanks"`
	Text    *string            `json:"text"`
}

// ParseAnswer decodes the JSON body of a submission for the given question
// type. The field the type needs must be present; an empty body is never an answer.
func ParseAnswer(t QuestionType, data []byte) (Answer, error) {
	var body answerBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to parse %s answer: %w", t, err)
	}
	switch t {
	case TypeMultipleChoice:
		if body.Index != nil {
			return ChoiceAnswer{Index: *body.Index}, nil
		}
		return nil, missingField(t, "index")
	case TypeMultipleSelection:
		if body.Indices != nil {
			return SelectionAnswer{Indices: *body.Indices}, nil
		}
		return nil, missingField(t, "indices")
	case TypeMatching:
		if body.Pairs != nil && *body.Pairs != nil {
			return MatchingAnswer{Pairs: *body.Pairs}, nil
		}
		return nil, missingField(t, "pairs")
	case TypeOrdering:
		if body.Items != nil {
			return OrderingAnswer{Items: *body.Items}, nil
		}
		return nil, missingField(t, "items")
	case TypeFillInTheBlanks:
		if body.Blanks != nil {
			return BlanksAnswer{Values: *body.Blanks}, nil
		}
		return nil, missingField(t, "blanks")
	case TypeOpenEnded:
		if body.Text != nil {
			return TextAnswer{Text: *body.Text}, nil
		}
		return nil, missingField(t, "text")
	}
	return nil, fmt.Errorf("%w: unknown question type %q", ErrAnswerMismatch, t)
}

func missingField(t QuestionType, field string) error {
	return fmt.Errorf("%w: %s answer needs %q", ErrInvalidInput, t, field)
}
