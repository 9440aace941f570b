// Package llm provides the language-model client used for reply suggestions.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/salespilot/salespilot-go/internal/config"
	"github.com/salespilot/salespilot-go/internal/metrics"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generation limits for reply suggestions.
const (
	DefaultMaxTokens   = 200
	DefaultTemperature = 0.7
)

// Model wraps langchaingo LLM for text generation.
type Model struct {
	llm         llms.Model
	modelName   string
	maxTokens   int
	temperature float64
	metrics     *metrics.Collector
}

// Option configures a Model.
type Option func(*Model)

// WithMetrics records generation timing and token usage into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Model) { m.metrics = c }
}

// WithLimits overrides the completion length and sampling temperature.
func WithLimits(maxTokens int, temperature float64) Option {
	return func(m *Model) {
		m.maxTokens = maxTokens
		m.temperature = temperature
	}
}

// NewModel creates an LLM model based on configuration.
func NewModel(ctx context.Context, cfg config.Config, opts ...Option) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if !cfg.LLMEnabled() {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return New(model, cfg.LLMModel, opts...), nil
}

// New wraps an existing langchaingo model.
func New(model llms.Model, name string, opts ...Option) *Model {
	m := &Model{
		llm:         model,
		modelName:   name,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateWithSystem generates text with a system prompt.
// Authentication and quota failures are wrapped with ErrFatalAPI.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(m.maxTokens),
		llms.WithTemperature(m.temperature),
	)
	duration := time.Since(start)

	if err != nil {
		slog.Warn("llm generation failed", "model", m.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return "", fmt.Errorf("generate with system: %w", wrapFatalError(err))
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	if m.metrics != nil {
		in, out := tokenCounts(choice.GenerationInfo)
		m.metrics.RecordLLMUsage(metrics.OpLLMGenerate, duration, in, out)
	}
	slog.Debug("llm generation completed", "model", m.modelName, "duration_ms", duration.Milliseconds())

	return choice.Content, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// tokenCounts reads provider-specific usage keys from generation info.
func tokenCounts(info map[string]any) (int64, int64) {
	in := firstInt(info, "PromptTokens", "InputTokens", "input_tokens")
	out := firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens")
	return in, out
}

func firstInt(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
