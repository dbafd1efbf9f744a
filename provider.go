package devotional

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ProviderErrorKind classifies provider failures for the user-facing message.
type ProviderErrorKind string

const (
	ProviderQuota  ProviderErrorKind = "quota"
	ProviderAuth   ProviderErrorKind = "auth"
	ProviderSafety ProviderErrorKind = "safety"
	ProviderOther  ProviderErrorKind = "other"
)

// ProviderError wraps an error returned by the generative provider. The core
// never retries; callers decide what to tell the user.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classifyProviderError maps go-openai errors onto a ProviderError.
func classifyProviderError(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	kind := ProviderOther
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		kind = kindForStatus(apiErr.HTTPStatusCode, apiErr.Message)
	case errors.As(err, &reqErr):
		kind = kindForStatus(reqErr.HTTPStatusCode, reqErr.Error())
	}
	return &ProviderError{Kind: kind, Err: err}
}

func kindForStatus(status int, message string) ProviderErrorKind {
	msg := strings.ToLower(message)
	switch {
	case status == http.StatusTooManyRequests || strings.Contains(msg, "quota"):
		return ProviderQuota
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ProviderAuth
	case strings.Contains(msg, "safety") || strings.Contains(msg, "moderation"):
		return ProviderSafety
	}
	return ProviderOther
}

// TextProvider returns the raw text of one completion.
type TextProvider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Provider calls an OpenAI-compatible chat endpoint such as OpenRouter.
type Provider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewProvider creates a provider from the configured endpoint.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends one system + user exchange and returns the message content untouched.
func (p *Provider) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       p.model,
			Temperature: p.temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return "", classifyProviderError(fmt.Errorf("failed to call %s: %w", p.model, err))
	}

	VerboseLog("provider response", "model", p.model, "choices", len(resp.Choices))

	if len(resp.Choices) == 0 {
		return "", &ProviderError{Kind: ProviderOther, Err: errors.New("no choices in response")}
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", &ProviderError{Kind: ProviderSafety, Err: errors.New("response blocked by content filter")}
	}
	return choice.Message.Content, nil
}

// studySystemPrompt describes the document shape to the provider.
func studySystemPrompt(numQuestions int) string {
	var sb strings.Builder

	sb.WriteString("Eres un asistente de estudios bíblicos académico y pedagógico.\n")
	sb.WriteString("Tu tarea es convertir una referencia bíblica en un material de estudio interactivo en español.\n\n")

	sb.WriteString("PAUTAS CRÍTICAS:\n")
	sb.WriteString("1. TRATAMIENTO DE TEMAS DIFÍCILES: Si el pasaje incluye sufrimiento o conflicto, trátalo desde la resiliencia y la sabiduría literaria.\n")
	sb.WriteString("2. TEXTO COMPLETO: La propiedad 'passageText' DEBE tener los versículos completos.\n")
	sb.WriteString(fmt.Sprintf("3. CUESTIONARIO: Genera exactamente %d preguntas variadas usando estos tipos: ", numQuestions))
	sb.WriteString("multiple-choice, multiple-selection, matching, ordering, fill-in-the-blanks, open-ended.\n")
	sb.WriteString("4. En fill-in-the-blanks marca cada hueco con [blank] y da una respuesta por hueco en 'blankAnswers'.\n")
	sb.WriteString("5. El resultado DEBE ser un JSON válido con la siguiente estructura:\n")
	sb.WriteString(`{
  "title": "string",
  "passageText": "string",
  "summary": "string",
  "historicalContext": "string",
  "keyVerses": ["string"],
  "quiz": [
    {"type": "multiple-choice", "question": "string", "explanation": "string", "options": ["string"], "correctIndex": 0},
    {"type": "multiple-selection", "question": "string", "explanation": "string", "options": ["string"], "correctIndices": [0]},
    {"type": "matching", "question": "string", "explanation": "string", "pairs": [{"left": "string", "right": "string"}]},
    {"type": "ordering", "question": "string", "explanation": "string", "orderedItems": ["string"]},
    {"type": "fill-in-the-blanks", "question": "string", "explanation": "string", "textWithBlanks": "string", "blankAnswers": ["string"]},
    {"type": "open-ended", "question": "string", "explanation": "string"}
  ],
  "reflectionPrompts": ["string"],
  "practicalApplication": "string",
  "dailyPlan": [{"day": 1, "focus": "string", "verse": "string", "action": "string"}]
}`)

	return sb.String()
}

func studyPrompt(req GenerationRequest) string {
	return fmt.Sprintf("Analiza profundamente el pasaje: %q", req.Passage)
}

func readingPlanSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("Crea un itinerario de lectura bíblica en JSON.\n")
	sb.WriteString("Estructura:\n")
	sb.WriteString(`{
  "title": "string",
  "description": "string",
  "duration": "string",
  "items": [{"id": "Día 1", "passage": "string", "theme": "string", "reason": "string"}]
}`)

	return sb.String()
}

func readingPlanPrompt(topic string, duration PlanDuration) string {
	return fmt.Sprintf("Crea un plan sobre %q con duración %q", topic, duration)
}
