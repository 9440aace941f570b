package suggestion

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/salespilot/salespilot-go/internal/cache"
	"github.com/salespilot/salespilot-go/internal/metrics"
)

// Prompt text sent to the language model.
const (
	SystemPrompt      = "Você é um assistente de vendas brasileiro. Dê sugestões concisas (máx 2 frases) para ajudar vendedores."
	userPromptFormat  = "Cliente disse: \"%s\"\n\nDê uma sugestão de resposta."
	emptyProviderText = "Continue ouvindo ativamente."
)

// ProviderConfidence is reported for every provider-backed suggestion.
// It is a fixed value, not derived from the model output.
const ProviderConfidence = 0.85

// DefaultCacheTTL is how long a suggestion is reused for the same trigger.
const DefaultCacheTTL = 5 * time.Minute

const cacheKeyPrefix = "ai:suggestion:"

// ErrProvider wraps failures of the language-model call. It never leaves
// the Generator; it is exported for logging and tests.
var ErrProvider = errors.New("suggestion provider failed")

// Completer is the language-model surface the Generator needs.
type Completer interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// Generator produces one Suggestion per call. It keeps no history; the only
// shared state is the cache.
type Generator struct {
	provider Completer // nil means fallback only
	cache    cache.Cache
	ttl      time.Duration
	timeout  time.Duration
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithProvider enables the language-model path.
func WithProvider(p Completer) Option {
	return func(g *Generator) { g.provider = p }
}

// WithCacheTTL overrides DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(g *Generator) { g.ttl = ttl }
}

// WithProviderTimeout bounds each provider call.
func WithProviderTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// WithMetrics records provider and fallback timings.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Generator) { g.metrics = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a Generator backed by c.
func NewGenerator(c cache.Cache, opts ...Option) *Generator {
	g := &Generator{
		cache:   c,
		ttl:     DefaultCacheTTL,
		timeout: 30 * time.Second,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CacheKey derives the cache key from the trigger message alone. History and
// channel are deliberately not part of the key.
func CacheKey(trigger string) string {
	sum := md5.Sum([]byte(trigger))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Generate returns a suggestion for cc. It never fails: provider errors
// downgrade to the fallback heuristic and cache errors to a miss.
func (g *Generator) Generate(ctx context.Context, cc ConversationContext) Suggestion {
	key := CacheKey(cc.TriggerMessage)

	if cached, ok := g.lookup(ctx, key); ok {
		return cached
	}

	start := g.now()
	var s Suggestion
	if g.provider != nil {
		var err error
		s, err = g.fromProvider(ctx, cc)
		if err != nil {
			g.metrics.Inc(metrics.CounterProviderError)
			g.logger.Warn("suggestion provider failed, using fallback",
				"model", g.provider.Model(), "error", err)
			s = g.fromFallback(cc)
		}
	} else {
		s = g.fromFallback(cc)
	}

	latency := g.now().Sub(start)
	s.Channel = cc.Channel
	s.SourceTrigger = cc.TriggerMessage
	s.GeneratedAtMs = g.now().UnixMilli()
	s.LatencyMs = latency.Milliseconds()

	if s.Source == SourceProvider {
		g.metrics.RecordTiming(metrics.OpSuggestionProvider, latency)
	} else {
		g.metrics.RecordTiming(metrics.OpSuggestionFallback, latency)
	}

	g.store(ctx, key, s)
	return s
}

func (g *Generator) fromProvider(ctx context.Context, cc ConversationContext) (Suggestion, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.provider.GenerateWithSystem(callCtx, SystemPrompt, fmt.Sprintf(userPromptFormat, cc.TriggerMessage))
	if err != nil {
		return Suggestion{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = emptyProviderText
	}

	return Suggestion{
		Text:       text,
		Confidence: ProviderConfidence,
		Category:   Classify(cc.TriggerMessage),
		Source:     SourceProvider,
		Model:      g.provider.Model(),
	}, nil
}

func (g *Generator) fromFallback(cc ConversationContext) Suggestion {
	text, category, confidence := Fallback(cc.TriggerMessage)
	return Suggestion{
		Text:       text,
		Confidence: confidence,
		Category:   category,
		Source:     SourceFallback,
	}
}

func (g *Generator) lookup(ctx context.Context, key string) (Suggestion, bool) {
	if g.cache == nil {
		return Suggestion{}, false
	}
	raw, err := g.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			g.metrics.Inc(metrics.CounterCacheMiss)
		} else {
			g.metrics.Inc(metrics.CounterCacheError)
			g.logger.Warn("suggestion cache read failed", "key", key, "error", err)
		}
		return Suggestion{}, false
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		g.logger.Warn("discarding corrupt cached suggestion", "key", key, "error", err)
		return Suggestion{}, false
	}
	g.metrics.Inc(metrics.CounterCacheHit)
	return s, true
}

func (g *Generator) store(ctx context.Context, key string, s Suggestion) {
	if g.cache == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		g.logger.Warn("encode suggestion for cache", "error", err)
		return
	}
	if err := g.cache.Set(ctx, key, string(raw), g.ttl); err != nil {
		g.metrics.Inc(metrics.CounterCacheError)
		g.logger.Warn("suggestion cache write failed", "key", key, "error", err)
	}
}
