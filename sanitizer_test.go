package devotional

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeRecoveryStrategies(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		strategy string
		title    string
	}{
		{
			name:     "plain object",
			raw:      `{"title":"Juan 3"}`,
			strategy: "outermost-braces",
			title:    "Juan 3",
		},
		{
			name:     "markdown fence",
			raw:      "```json\n{\"title\":\"Salmo 23\"}\n```",
			strategy: "outermost-braces",
			title:    "Salmo 23",
		},
		{
			name:     "commentary around object",
			raw:      "Aquí está tu estudio:\n{\"title\":\"Rut 1\"}\nAmén. Amén.",
			strategy: "outermost-braces",
			title:    "Rut 1",
		},
		{
			name:     "control characters inside strings",
			raw:      "{\"title\":\"Génesis\n1\"}",
			strategy: "strip-control",
			title:    "Génesis1",
		},
		{
			name:     "braces in trailing prose",
			raw:      `{"title":"Marcos 4"} Nota: puedes usar {llaves} así.`,
			strategy: "first-balanced-object",
			title:    "Marcos 4",
		},
		{
			name:     "truncated inside a string",
			raw:      `{"title":"Hechos 2","keyVerses":["Hechos 2:38","Hechos 2:4`,
			strategy: "close-truncated",
			title:    "Hechos 2",
		},
		{
			name:     "truncated inside a key",
			raw:      `{"title":"Lucas 15","summ`,
			strategy: "close-truncated",
			title:    "Lucas 15",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, report, err := SanitizeWithReport(tc.raw)
			if err != nil {
				t.Fatalf("SanitizeWithReport() error = %v", err)
			}
			if report.Strategy != tc.strategy {
				t.Errorf("Expected strategy %q, got %q", tc.strategy, report.Strategy)
			}
			if doc.Title != tc.title {
				t.Errorf("Expected title %q, got %q", tc.title, doc.Title)
			}
		})
	}
}

func TestSanitizeTruncatedKeepsCompleteValues(t *testing.T) {
	doc, err := Sanitize(`{"title":"Hechos 2","keyVerses":["Hechos 2:38","Hechos 2:4`)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if len(doc.KeyVerses) != 2 || doc.KeyVerses[0] != "Hechos 2:38" || doc.KeyVerses[1] != "Hechos 2:4" {
		t.Errorf("Unexpected key verses: %q", doc.KeyVerses)
	}
}

func TestSanitizeMalformed(t *testing.T) {
	testCases := []struct {
		name   string
		raw    string
		reason string
	}{
		{"empty", "", "empty"},
		{"whitespace", "  \n\t ", "empty"},
		{"no object", "Lo siento, no puedo ayudar con eso.", "no JSON object could be recovered"},
		{"array only", `["a", "b"]`, "no JSON object could be recovered"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Sanitize(tc.raw)
			if doc != nil {
				t.Errorf("Expected no document, got %+v", doc)
			}
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("Expected ErrMalformedResponse, got %v", err)
			}
			var me *MalformedResponseError
			if !errors.As(err, &me) {
				t.Fatalf("Expected *MalformedResponseError, got %T", err)
			}
			if me.Reason != tc.reason {
				t.Errorf("Expected reason %q, got %q", tc.reason, me.Reason)
			}
			if me.Raw != tc.raw {
				t.Errorf("Expected raw text to be kept")
			}
		})
	}
}

func TestSanitizeBackfillsDefaults(t *testing.T) {
	doc, err := Sanitize(`{}`)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if doc.KeyVerses == nil || doc.ReflectionPrompts == nil || doc.Quiz == nil || doc.DailyPlan == nil {
		t.Errorf("Expected every slice to be non-nil: %+v", doc)
	}
	if doc.Title != "" || doc.Summary != "" || doc.PracticalApplication != "" {
		t.Errorf("Expected empty strings, got %+v", doc)
	}
}

func TestSanitizeMistypedFields(t *testing.T) {
	doc, err := Sanitize(`{"title": 5, "summary": true, "keyVerses": "Juan 3:16", "quiz": {}, "reflectionPrompts": ["¿Qué aprendí?", 7, null], "dailyPlan": [{"focus": "Oración"}]}`)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if doc.Title != "5" {
		t.Errorf("Expected numeric title rendered as text, got %q", doc.Title)
	}
	if doc.Summary != "true" {
		t.Errorf("Expected boolean summary rendered as text, got %q", doc.Summary)
	}
	if len(doc.KeyVerses) != 0 {
		t.Errorf("Expected non-array keyVerses to become empty, got %q", doc.KeyVerses)
	}
	if len(doc.Quiz) != 0 {
		t.Errorf("Expected non-array quiz to become empty, got %d", len(doc.Quiz))
	}
	if len(doc.ReflectionPrompts) != 2 || doc.ReflectionPrompts[1] != "7" {
		t.Errorf("Unexpected reflection prompts: %q", doc.ReflectionPrompts)
	}
	if len(doc.DailyPlan) != 1 || doc.DailyPlan[0].Day != 1 || doc.DailyPlan[0].Focus != "Oración" {
		t.Errorf("Unexpected daily plan: %+v", doc.DailyPlan)
	}
}

func TestExtractObjectForReadingPlan(t *testing.T) {
	obj, strategy, err := ExtractObject("```json\n{\"title\":\"Esperanza\",\"items\":[{\"passage\":\"Romanos 5\"}]}\n```")
	if err != nil {
		t.Fatalf("ExtractObject() error = %v", err)
	}
	if strategy != "outermost-braces" {
		t.Errorf("Expected outermost-braces, got %q", strategy)
	}
	plan := readingPlanFromObject(obj)
	if plan.Title != "Esperanza" || plan.Duration != DurationWeekly {
		t.Errorf("Unexpected plan: %+v", plan)
	}
	if len(plan.Items) != 1 || plan.Items[0].ID != "Día 1" || plan.Items[0].Passage != "Romanos 5" {
		t.Errorf("Unexpected items: %+v", plan.Items)
	}
}

func TestStripControl(t *testing.T) {
	in := "a\x00b\x1fc\u007fd\u0085e f"
	want := "abcde f"
	if got := stripControl(in); got != want {
		t.Errorf("stripControl() = %q, want %q", got, want)
	}
	if strings.ContainsRune(stripControl("x\ny\tz"), '\n') {
		t.Errorf("Expected newlines to be removed")
	}
}
