package devotional

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyPassage is returned when a study is requested without a passage.
var ErrEmptyPassage = errors.New("passage is empty")

// StudyGenerator orchestrates provider call, sanitizing, caching and persistence
type StudyGenerator struct {
	provider TextProvider
	db       *DB
	cache    DocumentCache
	logDir   string
	now      func() time.Time
}

// GeneratorOption configures a StudyGenerator
type GeneratorOption func(*StudyGenerator)

// WithStore persists generated studies and plans.
func WithStore(db *DB) GeneratorOption {
	return func(g *StudyGenerator) { g.db = db }
}

// WithCache serves repeated requests from the cache.
func WithCache(c DocumentCache) GeneratorOption {
	return func(g *StudyGenerator) { g.cache = c }
}

// WithLogDir sets where generation transcripts are written; "" disables them.
func WithLogDir(dir string) GeneratorOption {
	return func(g *StudyGenerator) { g.logDir = dir }
}

// NewStudyGenerator creates a new study generator
func NewStudyGenerator(provider TextProvider, opts ...GeneratorOption) *StudyGenerator {
	g := &StudyGenerator{provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// transcript opens a transcript logger, or returns nil when disabled or failing.
func (g *StudyGenerator) transcript(id string, header map[string]string) *LLMLogger {
	if g.logDir == "" {
		return nil
	}
	ll, err := NewLLMLogger(g.logDir, id, header)
	if err != nil {
		// continue without a transcript rather than failing
		Logger().Warnw("failed to create transcript", "id", id, "error", err)
		return nil
	}
	return ll
}

// Generate produces a sanitized study for the passage. Provider errors are
// returned unchanged; sanitizing failures are *MalformedResponseError.
func (g *StudyGenerator) Generate(ctx context.Context, req GenerationRequest) (*StudyDocument, *SanitizeReport, error) {
	req = req.Normalize()
	req.Passage = strings.TrimSpace(req.Passage)
	if req.Passage == "" {
		return nil, nil, ErrEmptyPassage
	}
	log := Logger()
	log.Infow("generating study", "passage", req.Passage, "questions", req.NumQuestions)

	if g.cache != nil {
		doc, err := g.cache.Get(ctx, req)
		if err != nil {
			log.Warnw("cache lookup failed", "passage", req.Passage, "error", err)
		} else if doc != nil {
			log.Infow("study served from cache", "id", doc.ID)
			return doc, &SanitizeReport{Strategy: "cache", Checks: []ValidationResult{}}, nil
		}
	}

	id := uuid.NewString()
	system := studySystemPrompt(req.NumQuestions)
	prompt := studyPrompt(req)

	ll := g.transcript(id, map[string]string{
		"Passage":             req.Passage,
		"Number of Questions": strconv.Itoa(req.NumQuestions),
	})
	if ll != nil {
		defer ll.Close()
		ll.LogLLMRequest("StudyGenerator", system, prompt)
	}

	raw, err := g.provider.Complete(ctx, system, prompt)
	if err != nil {
		if ll != nil {
			ll.LogError("provider", err)
		}
		log.Errorw("provider call failed", "id", id, "error", err)
		return nil, nil, err
	}
	if ll != nil {
		ll.LogLLMResponse("StudyGenerator", raw)
	}

	doc, report, err := SanitizeWithReport(raw)
	if err != nil {
		if ll != nil {
			ll.LogError("sanitize", err)
		}
		log.Errorw("provider response could not be repaired", "id", id, "error", err)
		return nil, nil, err
	}
	doc.ID = id
	if ll != nil {
		ll.LogSanitizeReport(report)
	}
	log.Infow("study ready", "id", id, "title", doc.Title, "strategy", report.Strategy,
		"questions", len(doc.Quiz), "checks", summarizeChecks(report.Checks))

	if g.db != nil {
		if err := g.db.SaveStudy(req.Passage, req.NumQuestions, doc); err != nil {
			return nil, nil, fmt.Errorf("failed to save study: %w", err)
		}
	}
	if g.cache != nil {
		if err := g.cache.Set(ctx, req, doc); err != nil {
			log.Warnw("cache store failed", "id", id, "error", err)
		}
	}
	return doc, report, nil
}

// GenerateReadingPlan asks the provider for a reading itinerary on topic.
func (g *StudyGenerator) GenerateReadingPlan(ctx context.Context, topic string, duration PlanDuration) (*ReadingPlan, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: reading plan topic", ErrInvalidInput)
	}
	duration, _ = ParsePlanDuration(string(duration))
	log := Logger()
	log.Infow("generating reading plan", "topic", topic, "duration", duration)

	id := uuid.NewString()
	system := readingPlanSystemPrompt()
	prompt := readingPlanPrompt(topic, duration)

	ll := g.transcript(id, map[string]string{"Topic": topic, "Duration": string(duration)})
	if ll != nil {
		defer ll.Close()
		ll.LogLLMRequest("ReadingPlan", system, prompt)
	}

	raw, err := g.provider.Complete(ctx, system, prompt)
	if err != nil {
		if ll != nil {
			ll.LogError("provider", err)
		}
		return nil, err
	}
	if ll != nil {
		ll.LogLLMResponse("ReadingPlan", raw)
	}

	obj, strategy, err := ExtractObject(raw)
	if err != nil {
		if ll != nil {
			ll.LogError("sanitize", err)
		}
		return nil, err
	}
	plan := readingPlanFromObject(obj)
	plan.ID = id
	plan.Topic = topic
	plan.Duration = duration
	plan.CreatedAt = g.now().UTC()
	if ll != nil {
		ll.Logf("Recovered with strategy: %s, %d items\n", strategy, len(plan.Items))
	}

	if g.db != nil {
		if err := g.db.SaveReadingPlan(plan); err != nil {
			return nil, fmt.Errorf("failed to save reading plan: %w", err)
		}
	}
	log.Infow("reading plan ready", "id", id, "items", len(plan.Items))
	return plan, nil
}
