package devotional

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned when a provider is needed but no key is configured.
var ErrMissingAPIKey = errors.New("missing provider API key: set OPENROUTER_API_KEY or OPENAI_API_KEY")

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "google/gemma-3-27b-it:free"
	DefaultTemperature = 0.3
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env      string         `mapstructure:"env"`      // local, dev, prod
	Provider ProviderConfig `mapstructure:"provider"` // generative provider settings
	Quiz     QuizConfig     `mapstructure:"quiz"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      LogConfig      `mapstructure:"log"`
}

// ProviderConfig configures the OpenAI-compatible endpoint.
type ProviderConfig struct {
	APIKey      string  `mapstructure:"-"` // loaded from environment only
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

type QuizConfig struct {
	NumQuestions int `mapstructure:"num_questions"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig configures the optional document cache; an empty Addr disables it.
type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type SessionConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Dir string `mapstructure:"dir"`
}

// RequireAPIKey returns the provider key or ErrMissingAPIKey.
func (c *Config) RequireAPIKey() (string, error) {
	if c.Provider.APIKey == "" {
		return "", ErrMissingAPIKey
	}
	return c.Provider.APIKey, nil
}

// LoadConfig reads .env, an optional config file from dir and the environment.
// An empty dir means "./config".
func LoadConfig(dir string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	if dir == "" {
		dir = "./config"
	}
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("env", "local")
	v.SetDefault("provider.base_url", DefaultBaseURL)
	v.SetDefault("provider.model", DefaultModel)
	v.SetDefault("provider.temperature", DefaultTemperature)
	v.SetDefault("quiz.num_questions", DefaultNumQuestions)
	v.SetDefault("database.path", "devotional.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", "24h")
	v.SetDefault("http.port", "8080")
	v.SetDefault("session.secret", "devotional-session-secret-change-me")
	v.SetDefault("log.dir", "log")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("openrouter_api_key", "OPENROUTER_API_KEY")
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("http.port", "PORT")
	_ = v.BindEnv("session.secret", "SESSION_SECRET")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Provider.APIKey = v.GetString("openrouter_api_key")
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = v.GetString("openai_api_key")
	}
	cfg.Quiz.NumQuestions = GenerationRequest{NumQuestions: cfg.Quiz.NumQuestions}.Normalize().NumQuestions

	return &cfg, nil
}
