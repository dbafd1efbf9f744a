package devotional

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
)

type fakeProvider struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	systems []string
	prompts []string
}

func (f *fakeProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

type memoryCache struct {
	docs map[string]*StudyDocument
}

func newMemoryCache() *memoryCache {
	return &memoryCache{docs: map[string]*StudyDocument{}}
}

func (c *memoryCache) Get(ctx context.Context, req GenerationRequest) (*StudyDocument, error) {
	return c.docs[cacheKey(req)], nil
}

func (c *memoryCache) Set(ctx context.Context, req GenerationRequest, doc *StudyDocument) error {
	c.docs[cacheKey(req)] = doc
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, req GenerationRequest) error {
	delete(c.docs, cacheKey(req))
	return nil
}

const studyResponse = "```json\n" + `{
  "title": "El amor de Dios",
  "passageText": "Porque de tal manera amó Dios al mundo",
  "keyVerses": ["Juan 3:16"],
  "quiz": [
    {"type": "multiple-choice", "question": "¿A quién amó Dios?", "options": ["Al mundo", "A nadie"], "correctIndex": 0},
    {"type": "true-false", "question": "Dios dio a su Hijo", "answer": true},
    {"type": "essay", "question": "Escribe"}
  ]
}` + "\n```"

func TestGenerateStudy(t *testing.T) {
	db := openTestDB(t)
	logDir := t.TempDir()
	provider := &fakeProvider{text: studyResponse}
	g := NewStudyGenerator(provider, WithStore(db), WithLogDir(logDir))

	doc, report, err := g.Generate(context.Background(), GenerationRequest{Passage: "  Juan 3:16 ", NumQuestions: 50})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if doc.ID == "" || doc.Title != "El amor de Dios" || len(doc.Quiz) != 3 {
		t.Fatalf("Unexpected document %+v", doc)
	}
	if report.Strategy != "outermost-braces" || len(report.Checks) != 3 {
		t.Errorf("Unexpected report %+v", report)
	}
	if got := summarizeChecks(report.Checks); got != "1 accepted, 1 revised, 1 rejected" {
		t.Errorf("Unexpected check summary %q", got)
	}

	if !strings.Contains(provider.systems[0], "exactamente 30 preguntas") {
		t.Errorf("Expected the question count clamped to 30 in the prompt")
	}
	if !strings.Contains(provider.prompts[0], `"Juan 3:16"`) {
		t.Errorf("Expected the trimmed passage in the prompt, got %q", provider.prompts[0])
	}

	stored, err := db.GetStudy(doc.ID)
	if err != nil {
		t.Fatalf("GetStudy() error = %v", err)
	}
	if len(stored.Quiz) != 3 || stored.Quiz[2].Validate() == nil {
		t.Errorf("Expected the broken entry to be stored as broken, got %+v", stored.Quiz)
	}
	history, _ := db.RecentHistory()
	if len(history) != 1 || history[0].Passage != "Juan 3:16" {
		t.Errorf("Unexpected history %+v", history)
	}

	transcript, err := os.ReadFile(logDir + "/" + doc.ID + ".log")
	if err != nil {
		t.Fatalf("Expected a transcript: %v", err)
	}
	for _, want := range []string{"LLM REQUEST", "LLM RESPONSE", "Recovered with strategy", "Generation Complete"} {
		if !strings.Contains(string(transcript), want) {
			t.Errorf("Expected transcript to contain %q", want)
		}
	}
}

func TestGenerateFromCache(t *testing.T) {
	provider := &fakeProvider{text: studyResponse}
	cache := newMemoryCache()
	g := NewStudyGenerator(provider, WithCache(cache))
	req := GenerationRequest{Passage: "Juan 3:16", NumQuestions: 3}

	first, _, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, report, err := g.Generate(context.Background(), GenerationRequest{Passage: "juan  3:16", NumQuestions: 3})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("Expected one provider call, got %d", provider.calls)
	}
	if report.Strategy != "cache" || second.ID != first.ID {
		t.Errorf("Expected cached document, got %+v with %+v", second, report)
	}

	if _, _, err := g.Generate(context.Background(), GenerationRequest{Passage: "Juan 3:16", NumQuestions: 4}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("Expected a different count to miss the cache, got %d calls", provider.calls)
	}
}

func TestGenerateErrors(t *testing.T) {
	quota := &ProviderError{Kind: ProviderQuota, Err: errors.New("429")}

	testCases := []struct {
		name     string
		provider *fakeProvider
		passage  string
		check    func(error) bool
	}{
		{"empty passage", &fakeProvider{}, "   ", func(err error) bool { return errors.Is(err, ErrEmptyPassage) }},
		{"provider error passes through", &fakeProvider{err: quota}, "Salmo 23", func(err error) bool {
			var pe *ProviderError
			return errors.As(err, &pe) && pe.Kind == ProviderQuota
		}},
		{"malformed response", &fakeProvider{text: "Lo siento, no puedo ayudar."}, "Salmo 23", func(err error) bool {
			var me *MalformedResponseError
			return errors.As(err, &me) && me.Raw == "Lo siento, no puedo ayudar."
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewStudyGenerator(tc.provider)
			doc, _, err := g.Generate(context.Background(), GenerationRequest{Passage: tc.passage})
			if doc != nil || !tc.check(err) {
				t.Errorf("Unexpected result %v, %v", doc, err)
			}
		})
	}
}

func TestGenerateReadingPlan(t *testing.T) {
	db := openTestDB(t)
	provider := &fakeProvider{text: `Aquí está: {"title": "Fe en acción", "description": "Siete días", "duration": "monthly",
		"items": [{"passage": "Hebreos 11", "theme": "Fe"}, {"id": "Día 2", "passage": "Santiago 2"}]}`}
	g := NewStudyGenerator(provider, WithStore(db))

	plan, err := g.GenerateReadingPlan(context.Background(), " fe ", DurationWeekly)
	if err != nil {
		t.Fatalf("GenerateReadingPlan() error = %v", err)
	}
	if plan.Topic != "fe" || plan.Duration != DurationWeekly || plan.Title != "Fe en acción" {
		t.Errorf("Unexpected plan %+v", plan)
	}
	if len(plan.Items) != 2 || plan.Items[0].ID != "Día 1" || plan.Items[1].ID != "Día 2" {
		t.Errorf("Unexpected items %+v", plan.Items)
	}

	stored, err := db.GetReadingPlan(plan.ID)
	if err != nil {
		t.Fatalf("GetReadingPlan() error = %v", err)
	}
	if len(stored.Items) != 2 || stored.Items[0].Passage != "Hebreos 11" {
		t.Errorf("Unexpected stored plan %+v", stored)
	}

	if _, err := g.GenerateReadingPlan(context.Background(), "", DurationWeekly); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for an empty topic, got %v", err)
	}
}

func TestCacheKey(t *testing.T) {
	a := cacheKey(GenerationRequest{Passage: "Juan  3:16", NumQuestions: 5})
	b := cacheKey(GenerationRequest{Passage: "juan 3:16", NumQuestions: 5})
	c := cacheKey(GenerationRequest{Passage: "juan 3:16", NumQuestions: 6})
	if a != b {
		t.Errorf("Expected %q and %q to match", a, b)
	}
	if a == c {
		t.Errorf("Expected different question counts to use different keys")
	}
}
