package devotional

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// LLMLogger writes the transcript of one generation to <dir>/<id>.log.
type LLMLogger struct {
	file *os.File
	mu   sync.Mutex
	id   string
}

// NewLLMLogger creates the transcript file for a study or reading plan.
func NewLLMLogger(dir, id string, header map[string]string) (*LLMLogger, error) {
	if dir == "" {
		dir = "log"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.Create(filepath.Join(dir, id+".log"))
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	ll := &LLMLogger{file: file, id: id}

	ll.Logf("=== Generation Log ===\n")
	ll.Logf("ID: %s\n", id)
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		ll.Logf("%s: %s\n", k, header[k])
	}
	ll.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	ll.Logf("======================\n\n")

	return ll, nil
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.logf(format, args...)
}

func (ll *LLMLogger) logf(format string, args ...interface{}) {
	if ll.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	ll.file.Sync()
}

// LogLLMRequest logs an LLM request
func (ll *LLMLogger) LogLLMRequest(module, system, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", module)
	ll.Logf("System:\n%s\n", system)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs the raw response text before sanitizing
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", module)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogSanitizeReport logs the recovery strategy and every question check
func (ll *LLMLogger) LogSanitizeReport(report *SanitizeReport) {
	if report == nil {
		return
	}
	ll.Logf("Recovered with strategy: %s\n", report.Strategy)
	for _, c := range report.Checks {
		ll.LogQuestionResult(c.Index, c.Type, string(c.Action), c.Reason)
	}
	ll.Logf("Checks: %s\n", summarizeChecks(report.Checks))
}

// LogQuestionResult logs the result of checking a question
func (ll *LLMLogger) LogQuestionResult(index int, t QuestionType, action, reason string) {
	ll.Logf("Question %d (%s): %s - %s\n", index, t, action, reason)
}

// LogError logs a failed step
func (ll *LLMLogger) LogError(step string, err error) {
	ll.Logf("ERROR (%s): %v\n", step, err)
}

// Close closes the log file
func (ll *LLMLogger) Close() error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return nil
	}
	ll.logf("=== Generation Complete ===\n")
	ll.logf("Completed: %s\n", time.Now().Format(time.RFC3339))
	ll.logf("===========================\n")
	err := ll.file.Close()
	ll.file = nil
	return err
}
