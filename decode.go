package devotional

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TrueFalseOptions are given to true/false entries that arrive without options.
var TrueFalseOptions = []string{"Verdadero", "Falso"}

type object = map[string]json.RawMessage

// decodedQuestion is a quiz entry after type normalization, with the repairs applied to it.
type decodedQuestion struct {
	question Question
	repairs  []string
}

// documentFromObject builds a StudyDocument from a parsed JSON object, filling
// defaults for every missing or mistyped field.
func documentFromObject(obj object) (*StudyDocument, []decodedQuestion) {
	doc := &StudyDocument{
		ID:                   stringField(obj, "id"),
		Title:                stringField(obj, "title"),
		PassageText:          stringField(obj, "passageText"),
		Summary:              stringField(obj, "summary"),
		HistoricalContext:    stringField(obj, "historicalContext"),
		KeyVerses:            stringSlice(obj, "keyVerses"),
		ReflectionPrompts:    stringSlice(obj, "reflectionPrompts"),
		PracticalApplication: stringField(obj, "practicalApplication"),
		DailyPlan:            []DayPlan{},
		Quiz:                 []Question{},
	}

	var decoded []decodedQuestion
	for _, entry := range objectSlice(obj, "quiz") {
		dq := decodeQuestion(entry)
		decoded = append(decoded, dq)
		doc.Quiz = append(doc.Quiz, dq.question)
	}

	for i, entry := range objectSlice(obj, "dailyPlan") {
		day, ok := intField(entry, "day")
		if !ok {
			day = i + 1
		}
		doc.DailyPlan = append(doc.DailyPlan, DayPlan{
			Day:    day,
			Focus:  stringField(entry, "focus"),
			Verse:  stringField(entry, "verse"),
			Action: stringField(entry, "action"),
		})
	}
	return doc, decoded
}

// decodeQuestion turns one loosely typed quiz entry into a variant. It never
// fails: entries that cannot satisfy their shape come back broken.
func decodeQuestion(obj object) decodedQuestion {
	var repairs []string
	base := Base{
		Text: stringField(obj, "question"),
		Why:  stringField(obj, "explanation"),
	}

	tag := stringField(obj, "type")
	kind, trueFalse, known := normalizeType(tag)
	if tag == "" {
		kind = inferType(obj)
		known = true
		repairs = append(repairs, "missing type inferred as "+string(kind))
	} else if known && string(kind) != tag && !trueFalse {
		repairs = append(repairs, "type "+strconv.Quote(tag)+" normalized to "+string(kind))
	}
	if !known {
		return decodedQuestion{question: &UnknownQuestion{Base: base, Tag: tag}}
	}

	var q Question
	switch kind {
	case TypeMultipleChoice:
		options, bad := positionalSlice(obj, "options")
		repairs = append(repairs, nonTextRepairs("options", bad)...)
		mc := &MultipleChoice{Base: base, Options: options}
		idx, ok := intField(obj, "correctIndex")
		if !ok {
			idx = -1
		}
		if trueFalse {
			repairs = append(repairs, "true/false entry treated as multiple-choice")
			if len(mc.Options) < 2 {
				mc.Options = append([]string(nil), TrueFalseOptions...)
				repairs = append(repairs, "canonical true/false options added")
			}
			if !ok {
				if b, found := boolField(obj, "answer", "correctAnswer", "correct"); found {
					idx = 1
					if b {
						idx = 0
					}
					repairs = append(repairs, "correct index taken from boolean answer")
				}
			}
		}
		if idx < 0 {
			if want := stringField(obj, "correctAnswer"); want != "" {
				for i, opt := range mc.Options {
					if strings.EqualFold(strings.TrimSpace(opt), strings.TrimSpace(want)) {
						idx = i
						repairs = append(repairs, "correct index resolved from correctAnswer text")
						break
					}
				}
			}
		}
		mc.CorrectIndex = idx
		q = mc
	case TypeMultipleSelection:
		options, bad := positionalSlice(obj, "options")
		repairs = append(repairs, nonTextRepairs("options", bad)...)
		ms := &MultipleSelection{
			Base:           base,
			Options:        options,
			CorrectIndices: intSlice(obj, "correctIndices"),
		}
		if set := sortedSet(ms.CorrectIndices); len(set) != len(ms.CorrectIndices) {
			ms.CorrectIndices = set
			repairs = append(repairs, "duplicate correct indices removed")
		}
		q = ms
	case TypeMatching:
		m := &Matching{Base: base, Pairs: []Pair{}}
		for _, p := range objectSlice(obj, "pairs") {
			m.Pairs = append(m.Pairs, Pair{Left: stringField(p, "left"), Right: stringField(p, "right")})
		}
		q = m
	case TypeOrdering:
		items, bad := positionalSlice(obj, "orderedItems")
		repairs = append(repairs, nonTextRepairs("orderedItems", bad)...)
		q = &Ordering{Base: base, OrderedItems: items}
	case TypeFillInTheBlanks:
		answers, bad := positionalSlice(obj, "blankAnswers")
		repairs = append(repairs, nonTextRepairs("blankAnswers", bad)...)
		f := &FillInTheBlanks{
			Base:           base,
			TextWithBlanks: stringField(obj, "textWithBlanks"),
			BlankAnswers:   answers,
		}
		if f.TextWithBlanks == "" && CountBlanks(base.Text) > 0 {
			f.TextWithBlanks = base.Text
			repairs = append(repairs, "blank text taken from question")
		}
		q = f
	default:
		q = &OpenEnded{Base: base}
	}
	return decodedQuestion{question: q, repairs: repairs}
}

func nonTextRepairs(key string, bad []int) []string {
	out := make([]string, 0, len(bad))
	for _, i := range bad {
		out = append(out, fmt.Sprintf("%s element %d is not text", key, i))
	}
	return out
}

// normalizeType maps the many spellings providers use onto the six tags.
func normalizeType(tag string) (kind QuestionType, trueFalse bool, known bool) {
	t := strings.ToLower(strings.TrimSpace(tag))
	t = strings.NewReplacer("_", "-", " ", "-").Replace(t)
	switch t {
	case "multiple-choice", "multiplechoice", "single-choice", "choice":
		return TypeMultipleChoice, false, true
	case "true-false", "true/false", "truefalse", "boolean", "verdadero-falso", "verdadero/falso":
		return TypeMultipleChoice, true, true
	case "multiple-selection", "multiple-select", "multi-select", "multiselect", "checkbox":
		return TypeMultipleSelection, false, true
	case "matching", "match":
		return TypeMatching, false, true
	case "ordering", "order", "sequence":
		return TypeOrdering, false, true
	case "fill-in-the-blanks", "fill-in-the-blank", "fill-in-blanks", "fill-in-blank", "fill-blank", "cloze":
		return TypeFillInTheBlanks, false, true
	case "open-ended", "open", "reflection", "short-answer":
		return TypeOpenEnded, false, true
	}
	return "", false, false
}

func inferType(obj object) QuestionType {
	switch {
	case has(obj, "pairs"):
		return TypeMatching
	case has(obj, "orderedItems"):
		return TypeOrdering
	case has(obj, "blankAnswers"), has(obj, "textWithBlanks"):
		return TypeFillInTheBlanks
	case has(obj, "correctIndices"):
		return TypeMultipleSelection
	case has(obj, "options"):
		return TypeMultipleChoice
	}
	return TypeOpenEnded
}

func has(obj object, key string) bool {
	raw, ok := obj[key]
	return ok && !isNull(raw)
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// stringValue renders a JSON scalar as text; objects, arrays and null yield ("", false).
func stringValue(raw json.RawMessage) (string, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return "", false
	}
	switch t[0] {
	case '"':
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(t, &b); err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	case '{', '[', 'n':
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(t, &n); err != nil {
		return "", false
	}
	return n.String(), true
}

func stringField(obj object, key string) string {
	s, _ := stringValue(obj[key])
	return s
}

func stringSlice(obj object, key string) []string {
	out := []string{}
	var items []json.RawMessage
	if err := json.Unmarshal(obj[key], &items); err != nil {
		return out
	}
	for _, item := range items {
		if s, ok := stringValue(item); ok {
			out = append(out, s)
		}
	}
	return out
}

// positionalSlice decodes an array whose positions are referenced by index.
// Non-scalar elements keep their slot as "" and are reported in bad.
func positionalSlice(obj object, key string) (out []string, bad []int) {
	out = []string{}
	var items []json.RawMessage
	if err := json.Unmarshal(obj[key], &items); err != nil {
		return out, nil
	}
	for i, item := range items {
		s, ok := stringValue(item)
		if !ok {
			bad = append(bad, i)
		}
		out = append(out, s)
	}
	return out, bad
}

// maxIndexValue bounds decoded integers; anything larger is not a usable index or day.
const maxIndexValue = math.MaxInt32

// intValue accepts integral numbers only; fractions and huge values count as missing.
func intValue(raw json.RawMessage) (int, bool) {
	s, ok := stringValue(raw)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxIndexValue {
		return 0, false
	}
	return int(f), true
}

func intField(obj object, key string) (int, bool) {
	return intValue(obj[key])
}

func intSlice(obj object, key string) []int {
	out := []int{}
	var items []json.RawMessage
	if err := json.Unmarshal(obj[key], &items); err != nil {
		return out
	}
	for _, item := range items {
		if n, ok := intValue(item); ok {
			out = append(out, n)
		}
	}
	return out
}

func boolField(obj object, keys ...string) (bool, bool) {
	for _, key := range keys {
		s, ok := stringValue(obj[key])
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "verdadero":
			return true, true
		case "false", "falso":
			return false, true
		}
	}
	return false, false
}

func objectSlice(obj object, key string) []object {
	var items []json.RawMessage
	if err := json.Unmarshal(obj[key], &items); err != nil {
		return nil
	}
	out := make([]object, 0, len(items))
	for _, item := range items {
		var entry object
		if err := json.Unmarshal(item, &entry); err != nil || entry == nil {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// rawQuestion is the wire form of a variant.
type rawQuestion struct {
	Type           QuestionType `json:"type"`
	Question       string       `json:"question"`
	Explanation    string       `json:"explanation"`
	Options        []string     `json:"options,omitempty"`
	CorrectIndex   *int         `json:"correctIndex,omitempty"`
	CorrectIndices []int        `json:"correctIndices,omitempty"`
	Pairs          []Pair       `json:"pairs,omitempty"`
	OrderedItems   []string     `json:"orderedItems,omitempty"`
	TextWithBlanks string       `json:"textWithBlanks,omitempty"`
	BlankAnswers   []string     `json:"blankAnswers,omitempty"`
}

func encodeQuestion(q Question) rawQuestion {
	raw := rawQuestion{Type: q.Type(), Question: q.Prompt(), Explanation: q.Explanation()}
	switch v := q.(type) {
	case *MultipleChoice:
		idx := v.CorrectIndex
		raw.Options, raw.CorrectIndex = v.Options, &idx
	case *MultipleSelection:
		raw.Options, raw.CorrectIndices = v.Options, v.CorrectIndices
	case *Matching:
		raw.Pairs = v.Pairs
	case *Ordering:
		raw.OrderedItems = v.OrderedItems
	case *FillInTheBlanks:
		raw.TextWithBlanks, raw.BlankAnswers = v.TextWithBlanks, v.BlankAnswers
	}
	return raw
}

// MarshalJSON writes the document in the provider's wire shape.
func (d StudyDocument) MarshalJSON() ([]byte, error) {
	type alias StudyDocument
	quiz := make([]rawQuestion, 0, len(d.Quiz))
	for _, q := range d.Quiz {
		quiz = append(quiz, encodeQuestion(q))
	}
	return json.Marshal(struct {
		alias
		Quiz []rawQuestion `json:"quiz"`
	}{alias(d), quiz})
}

// UnmarshalJSON reads a document leniently, with the same defaults as Sanitize.
func (d *StudyDocument) UnmarshalJSON(data []byte) error {
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	doc, _ := documentFromObject(obj)
	*d = *doc
	return nil
}

// readingPlanFromObject builds a ReadingPlan with defaults for missing fields.
func readingPlanFromObject(obj object) *ReadingPlan {
	duration, _ := ParsePlanDuration(stringField(obj, "duration"))
	plan := &ReadingPlan{
		Title:       stringField(obj, "title"),
		Description: stringField(obj, "description"),
		Duration:    duration,
		Items:       []ReadingPlanItem{},
	}
	for i, entry := range objectSlice(obj, "items") {
		id := stringField(entry, "id")
		if id == "" {
			id = "Día " + strconv.Itoa(i+1)
		}
		plan.Items = append(plan.Items, ReadingPlanItem{
			ID:      id,
			Passage: stringField(entry, "passage"),
			Theme:   stringField(entry, "theme"),
			Reason:  stringField(entry, "reason"),
		})
	}
	return plan
}
