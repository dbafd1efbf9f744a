package devotional

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrMalformedResponse matches every MalformedResponseError via errors.Is.
var ErrMalformedResponse = errors.New("malformed response")

// MalformedResponseError means no JSON object could be recovered from the provider text.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Reason
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// SanitizeReport describes how a document was recovered.
type SanitizeReport struct {
	Strategy string             `json:"strategy"`
	Checks   []ValidationResult `json:"checks"`
}

// recoveryStrategy is total: it returns ok=false instead of failing.
type recoveryStrategy struct {
	name    string
	recover func(text string) (object, bool)
}

var recoveryStrategies = []recoveryStrategy{
	{name: "outermost-braces", recover: outermostBraces},
	{name: "strip-control", recover: func(text string) (object, bool) {
		return outermostBraces(stripControl(text))
	}},
	{name: "first-balanced-object", recover: firstBalancedObject},
	{name: "close-truncated", recover: closeTruncated},
}

var (
	openFence  = regexp.MustCompile("(?i)^```(?:json)?")
	closeFence = regexp.MustCompile("```$")
)

// Sanitize repairs raw provider text into a StudyDocument.
func Sanitize(raw string) (*StudyDocument, error) {
	doc, _, err := SanitizeWithReport(raw)
	return doc, err
}

// SanitizeWithReport is Sanitize plus the recovery strategy used and the
// per-question check results.
func SanitizeWithReport(raw string) (*StudyDocument, *SanitizeReport, error) {
	obj, strategy, err := ExtractObject(raw)
	if err != nil {
		return nil, nil, err
	}
	doc, decoded := documentFromObject(obj)
	report := &SanitizeReport{
		Strategy: strategy,
		Checks:   CheckQuestions(decoded),
	}
	return doc, report, nil
}

// ExtractObject locates and parses the JSON object in raw, trying each
// recovery strategy in order. It returns the name of the strategy that worked.
func ExtractObject(raw string) (map[string]json.RawMessage, string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", &MalformedResponseError{Reason: "empty", Raw: raw}
	}
	text := stripFence(raw)
	for _, s := range recoveryStrategies {
		if obj, ok := s.recover(text); ok {
			VerboseLog("recovered provider JSON", "strategy", s.name, "length", len(text))
			return obj, s.name, nil
		}
	}
	return nil, "", &MalformedResponseError{Reason: "no JSON object could be recovered", Raw: raw}
}

func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	text = openFence.ReplaceAllString(text, "")
	text = closeFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// stripControl removes C0 and C1 control characters.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return -1
		}
		return r
	}, s)
}

func parseObject(s string) (object, bool) {
	var obj object
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func outermostBraces(text string) (object, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return parseObject(text[start : end+1])
}

// scanState walks JSON text tracking string literals and open brackets.
type scanState struct {
	stack    []byte
	inString bool
	escaped  bool
}

// step consumes one byte and reports whether the outermost container just closed.
func (s *scanState) step(c byte) bool {
	if s.inString {
		switch {
		case s.escaped:
			s.escaped = false
		case c == '\\':
			s.escaped = true
		case c == '"':
			s.inString = false
		}
		return false
	}
	switch c {
	case '"':
		s.inString = true
	case '{':
		s.stack = append(s.stack, '}')
	case '[':
		s.stack = append(s.stack, ']')
	case '}', ']':
		if n := len(s.stack); n > 0 && s.stack[n-1] == c {
			s.stack = s.stack[:n-1]
			return n == 1
		}
	}
	return false
}

func firstBalancedObject(text string) (object, bool) {
	text = stripControl(text)
	start := strings.Index(text, "{")
	if start < 0 {
		return nil, false
	}
	var st scanState
	for i := start; i < len(text); i++ {
		if st.step(text[i]) {
			return parseObject(text[start : i+1])
		}
	}
	return nil, false
}

// closeTruncated completes an object that was cut off mid-stream by closing
// the open string and every open container. When the cut lands inside a key,
// it falls back to the last complete member before the cut.
func closeTruncated(text string) (object, bool) {
	text = stripControl(text)
	start := strings.Index(text, "{")
	if start < 0 {
		return nil, false
	}
	body := text[start:]

	type cut struct {
		pos   int
		stack []byte
	}
	var (
		st   scanState
		cuts []cut
	)
	for i := 0; i < len(body); i++ {
		if !st.inString && body[i] == ',' {
			cuts = append(cuts, cut{pos: i, stack: append([]byte(nil), st.stack...)})
		}
		if st.step(body[i]) {
			// balanced: the earlier strategies already had their chance
			return nil, false
		}
	}

	out := body
	if st.inString {
		if st.escaped {
			out = strings.TrimSuffix(out, `\`)
		}
		out += `"`
	}
	if obj, ok := parseObject(closeContainers(out, st.stack)); ok {
		return obj, true
	}
	for i := len(cuts) - 1; i >= 0 && i >= len(cuts)-maxTruncationCuts; i-- {
		if obj, ok := parseObject(closeContainers(body[:cuts[i].pos], cuts[i].stack)); ok {
			return obj, true
		}
	}
	return nil, false
}

const maxTruncationCuts = 8

func closeContainers(s string, stack []byte) string {
	s = strings.TrimRight(s, " \t\r\n")
	s = strings.TrimSuffix(s, ",")
	if strings.HasSuffix(s, ":") {
		s += "null"
	}
	var sb strings.Builder
	sb.WriteString(s)
	for i := len(stack) - 1; i >= 0; i-- {
		sb.WriteByte(stack[i])
	}
	return sb.String()
}
