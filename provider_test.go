package devotional

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type chatRequest struct {
	Model          string `json:"model"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionBody(content, finishReason string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test/model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": finishReason,
		}},
	})
	return string(body)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewProvider(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "test/model", Temperature: 0.3})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	return p
}

func TestProviderComplete(t *testing.T) {
	var got chatRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(`{"title":"Juan 3"}`, "stop")))
	})

	text, err := p.Complete(context.Background(), "sistema", "pasaje")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != `{"title":"Juan 3"}` {
		t.Errorf("Expected raw content, got %q", text)
	}
	if got.Model != "test/model" || got.ResponseFormat.Type != "json_object" {
		t.Errorf("Unexpected request %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "pasaje" {
		t.Errorf("Unexpected messages %+v", got.Messages)
	}
}

func TestProviderErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		want   ProviderErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit exceeded","type":"rate_limit"}}`, ProviderQuota},
		{"quota message", http.StatusPaymentRequired, `{"error":{"message":"Insufficient quota","type":"billing"}}`, ProviderQuota},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"No auth credentials found","type":"auth"}}`, ProviderAuth},
		{"forbidden", http.StatusForbidden, `{"error":{"message":"forbidden","type":"auth"}}`, ProviderAuth},
		{"moderation", http.StatusBadRequest, `{"error":{"message":"flagged by moderation","type":"invalid_request"}}`, ProviderSafety},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server"}}`, ProviderOther},
		{"content filter", http.StatusOK, completionBody("", "content_filter"), ProviderSafety},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`, ProviderOther},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := p.Complete(context.Background(), "s", "p")
			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("Expected *ProviderError, got %v", err)
			}
			if pe.Kind != tc.want {
				t.Errorf("Expected kind %s, got %s (%v)", tc.want, pe.Kind, pe.Err)
			}
		})
	}
}

func TestStudySystemPrompt(t *testing.T) {
	prompt := studySystemPrompt(7)
	for _, want := range []string{"exactamente 7 preguntas", "fill-in-the-blanks", "correctIndices", "[blank]"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to mention %q", want)
		}
	}
}
