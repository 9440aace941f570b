// Package config loads SalesPilot configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Provider names a language-model backend.
type Provider string

const (
	ProviderNone      Provider = "none"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderBedrock   Provider = "bedrock"
)

// Queue backends.
const (
	QueueMemory = "memory"
	QueueAsynq  = "asynq"
)

// Config holds all configuration values.
type Config struct {
	// HTTP
	Port        int    `env:"PORT" envDefault:"3001"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// SurrealDB connection
	SurrealDBURL       string `env:"SURREALDB_URL" envDefault:"ws://localhost:8000/rpc"`
	SurrealDBNamespace string `env:"SURREALDB_NAMESPACE" envDefault:"salespilot"`
	SurrealDBDatabase  string `env:"SURREALDB_DATABASE" envDefault:"main"`
	SurrealDBUser      string `env:"SURREALDB_USER" envDefault:"root"`
	SurrealDBPass      string `env:"SURREALDB_PASS" envDefault:"root"`
	SurrealDBAuthLevel string `env:"SURREALDB_AUTH_LEVEL" envDefault:"root"`

	// Cache. Empty RedisURL selects the in-process cache.
	RedisURL     string        `env:"REDIS_URL"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheEntries int           `env:"CACHE_ENTRIES" envDefault:"4096"`

	// Language model
	LLMProvider     Provider      `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModel        string        `env:"LLM_MODEL" envDefault:"gpt-4-turbo-preview"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	OllamaHost      string        `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	AWSRegion       string        `env:"AWS_REGION" envDefault:"us-east-1"`
	LLMTimeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`

	// Background work
	QueueBackend  string `env:"QUEUE_BACKEND" envDefault:"memory"`
	QueueWorkers  int    `env:"QUEUE_WORKERS" envDefault:"4"`
	QueueCapacity int    `env:"QUEUE_CAPACITY" envDefault:"256"`
	QueueWeights  string `env:"ASYNQ_QUEUES" envDefault:"suggestions=1"`

	// Realtime
	RealtimeBackplane bool   `env:"REALTIME_BACKPLANE" envDefault:"false"`
	BackplaneChannel  string `env:"REALTIME_CHANNEL" envDefault:"salespilot:dispatch"`

	// WhatsApp Cloud API
	WhatsAppAPIURL        string `env:"WHATSAPP_API_URL" envDefault:"https://graph.facebook.com/v18.0"`
	WhatsAppPhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppAccessToken   string `env:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppVerifyToken   string `env:"WHATSAPP_VERIFY_TOKEN"`

	// Twilio voice
	TwilioTranscriptionCallback string `env:"TWILIO_TRANSCRIPTION_CALLBACK" envDefault:"/webhooks/twilio/transcription"`

	// Stale call sweeper
	StaleCallSchedule string        `env:"STALE_CALL_SCHEDULE" envDefault:"*/5 * * * *"`
	StaleCallAfter    time.Duration `env:"STALE_CALL_AFTER" envDefault:"30m"`

	// Logging
	LogFile     string `env:"LOG_FILE" envDefault:"/tmp/salespilot.log"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogLevel    slog.Level
}

// Load reads configuration from environment variables.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.LLMProvider = Provider(strings.ToLower(string(cfg.LLMProvider)))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderNone, ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderBedrock:
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}
	switch c.QueueBackend {
	case QueueMemory:
	case QueueAsynq:
		if c.RedisURL == "" {
			return fmt.Errorf("QUEUE_BACKEND=asynq requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported queue backend: %s", c.QueueBackend)
	}
	if c.RealtimeBackplane && c.RedisURL == "" {
		return fmt.Errorf("REALTIME_BACKPLANE requires REDIS_URL")
	}
	if c.QueueWorkers <= 0 || c.QueueCapacity <= 0 {
		return fmt.Errorf("queue workers and capacity must be positive")
	}
	return nil
}

// LLMEnabled reports whether a usable language-model provider is configured.
// Placeholder OpenAI keys containing "xxx" count as unset.
func (c Config) LLMEnabled() bool {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != "" && !strings.Contains(c.OpenAIAPIKey, "xxx")
	case ProviderAnthropic:
		return c.AnthropicAPIKey != ""
	case ProviderOllama, ProviderBedrock:
		return true
	default:
		return false
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
