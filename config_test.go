package devotional

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY", "APP_ENV", "PORT", "SESSION_SECRET", "QUIZ_NUM_QUESTIONS", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "router-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	testCases := []struct {
		name string
		got  any
		want any
	}{
		{"api key prefers openrouter", cfg.Provider.APIKey, "router-key"},
		{"base url", cfg.Provider.BaseURL, DefaultBaseURL},
		{"model", cfg.Provider.Model, DefaultModel},
		{"temperature", cfg.Provider.Temperature, float32(DefaultTemperature)},
		{"questions", cfg.Quiz.NumQuestions, DefaultNumQuestions},
		{"database", cfg.Database.Path, "devotional.db"},
		{"redis disabled", cfg.Redis.Addr, ""},
		{"redis ttl", cfg.Redis.TTL, 24 * time.Hour},
		{"port", cfg.HTTP.Port, "8080"},
		{"log dir", cfg.Log.Dir, "log"},
		{"env", cfg.Env, "local"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, tc.got)
			}
		})
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("PORT", "9090")

	dir := t.TempDir()
	yaml := "provider:\n  model: test/model\nquiz:\n  num_questions: 50\nredis:\n  addr: localhost:6379\n  ttl: 1h\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Provider.APIKey != "openai-key" {
		t.Errorf("Expected fallback key, got %q", cfg.Provider.APIKey)
	}
	if cfg.Provider.Model != "test/model" {
		t.Errorf("Expected model from file, got %q", cfg.Provider.Model)
	}
	if cfg.Quiz.NumQuestions != MaxNumQuestions {
		t.Errorf("Expected questions clamped to %d, got %d", MaxNumQuestions, cfg.Quiz.NumQuestions)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.TTL != time.Hour {
		t.Errorf("Unexpected redis config %+v", cfg.Redis)
	}
	if cfg.HTTP.Port != "9090" {
		t.Errorf("Expected port from PORT, got %q", cfg.HTTP.Port)
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("quiz: [unclosed"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadConfig(dir); err == nil {
		t.Errorf("Expected an error for invalid YAML")
	}
}

func TestRequireAPIKey(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if _, err := cfg.RequireAPIKey(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewProvider(cfg.Provider); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected NewProvider to refuse an empty key, got %v", err)
	}
}
