package suggestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/salespilot/salespilot-go/internal/cache"
	"github.com/salespilot/salespilot-go/internal/metrics"
	"github.com/stretchr/testify/assert"
)

// fakeCompleter returns reply/err and counts calls.
type fakeCompleter struct {
	mu     sync.Mutex
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeCompleter) GenerateWithSystem(_ context.Context, _, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompt = userPrompt
	return f.reply, f.err
}

func (f *fakeCompleter) Model() string { return "fake-model" }

// brokenCache fails every operation with a transport error.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (string, error) { return "", errors.New("dial tcp: refused") }
func (brokenCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("dial tcp: refused")
}
func (brokenCache) Del(context.Context, ...string) (int64, error) { return 0, nil }
func (brokenCache) Ping(context.Context) error { return errors.New("down") }
func (brokenCache) Close() error { return nil }

func newTestGenerator(opts ...Option) *Generator {
	return NewGenerator(cache.NewMemoryCache(64, time.Minute), opts...)
}

func TestGenerateFallbackGreeting(t *testing.T) {
	g := newTestGenerator()

	for _, msg := range []string{"oi", "Bom dia, tudo certo?", "olá!"} {
		s := g.Generate(context.Background(), ConversationContext{TriggerMessage: msg})
		assert.Equal(t, CategoryGreeting, s.Category, msg)
		assert.Equal(t, 0.9, s.Confidence, msg)
		assert.Equal(t, SourceFallback, s.Source)
	}
}

func TestGeneratePriceObjection(t *testing.T) {
	g := newTestGenerator()
	s := g.Generate(context.Background(), ConversationContext{TriggerMessage: "Qual o preço do plano?"})

	assert.Equal(t, CategoryObjection, s.Category)
	assert.Equal(t, 0.85, s.Confidence)
	assert.Equal(t, "Qual o preço do plano?", s.SourceTrigger)
}

func TestGenerateCacheIgnoresHistory(t *testing.T) {
	provider := &fakeCompleter{reply: "Posso te mostrar um comparativo?"}
	g := newTestGenerator(WithProvider(provider))
	ctx := context.Background()

	first := g.Generate(ctx, ConversationContext{
		TriggerMessage: "Achei caro",
		History:        "Cliente: oi\nVendedor: olá",
		Channel:        ChannelCall,
	})
	second := g.Generate(ctx, ConversationContext{
		TriggerMessage: "Achei caro",
		History:        "completely different conversation",
		Channel:        ChannelChat,
	})

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, ChannelCall, second.Channel, "cached value is returned verbatim")
}

func TestGenerateProviderPath(t *testing.T) {
	provider := &fakeCompleter{reply: "  Que tal uma demonstração?  "}
	collector := metrics.NewCollector()
	g := newTestGenerator(WithProvider(provider), WithMetrics(collector))

	s := g.Generate(context.Background(), ConversationContext{TriggerMessage: "gostei do produto", Channel: ChannelChat})

	assert.Equal(t, "Que tal uma demonstração?", s.Text)
	assert.Equal(t, ProviderConfidence, s.Confidence)
	assert.Equal(t, CategoryClosing, s.Category, "category comes from the input message")
	assert.Equal(t, SourceProvider, s.Source)
	assert.Equal(t, "fake-model", s.Model)
	assert.Equal(t, ChannelChat, s.Channel)
	assert.Contains(t, provider.prompt, `Cliente disse: "gostei do produto"`)
	assert.NotNil(t, collector.Snapshot().SuggestionProvider)
}

func TestGenerateProviderEmptyReply(t *testing.T) {
	g := newTestGenerator(WithProvider(&fakeCompleter{reply: ""}))
	s := g.Generate(context.Background(), ConversationContext{TriggerMessage: "hmm"})

	assert.Equal(t, "Continue ouvindo ativamente.", s.Text)
	assert.Equal(t, CategoryGeneral, s.Category)
	assert.Equal(t, ProviderConfidence, s.Confidence)
}

func TestGenerateProviderErrorFallsBack(t *testing.T) {
	provider := &fakeCompleter{err: errors.New("context deadline exceeded")}
	collector := metrics.NewCollector()
	g := newTestGenerator(WithProvider(provider), WithMetrics(collector))
	ctx := context.Background()

	s := g.Generate(ctx, ConversationContext{TriggerMessage: "Qual o preço do plano?"})
	assert.Equal(t, SourceFallback, s.Source)
	assert.Equal(t, CategoryObjection, s.Category)
	assert.Equal(t, 0.85, s.Confidence)
	assert.Equal(t, int64(1), collector.Snapshot().Counters[metrics.CounterProviderError])

	// Fallback results are cached too.
	again := g.Generate(ctx, ConversationContext{TriggerMessage: "Qual o preço do plano?"})
	assert.Equal(t, s, again)
	assert.Equal(t, 1, provider.calls)
}

func TestGenerateCacheOutageDegrades(t *testing.T) {
	provider := &fakeCompleter{reply: "ok"}
	collector := metrics.NewCollector()
	g := NewGenerator(brokenCache{}, WithProvider(provider), WithMetrics(collector))

	s1 := g.Generate(context.Background(), ConversationContext{TriggerMessage: "oi"})
	s2 := g.Generate(context.Background(), ConversationContext{TriggerMessage: "oi"})

	assert.Equal(t, "ok", s1.Text)
	assert.Equal(t, "ok", s2.Text)
	assert.Equal(t, 2, provider.calls, "every lookup is a miss")
	assert.Equal(t, int64(4), collector.Snapshot().Counters[metrics.CounterCacheError])
}

func TestGenerateCacheExpiry(t *testing.T) {
	provider := &fakeCompleter{reply: "ok"}
	g := newTestGenerator(WithProvider(provider), WithCacheTTL(20*time.Millisecond))

	g.Generate(context.Background(), ConversationContext{TriggerMessage: "oi"})
	time.Sleep(40 * time.Millisecond)
	g.Generate(context.Background(), ConversationContext{TriggerMessage: "oi"})

	assert.Equal(t, 2, provider.calls)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "ai:suggestion:d41d8cd98f00b204e9800998ecf8427e", CacheKey(""))
	assert.Equal(t, CacheKey("oi"), CacheKey("oi"))
	assert.NotEqual(t, CacheKey("oi"), CacheKey("Oi"))
}

func TestGenerateConcurrent(t *testing.T) {
	g := newTestGenerator(WithProvider(&fakeCompleter{reply: "ok"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := g.Generate(context.Background(), ConversationContext{TriggerMessage: "quero comprar"})
			assert.Equal(t, "ok", s.Text)
		}()
	}
	wg.Wait()
}
