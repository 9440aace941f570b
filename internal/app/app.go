// Package app wires SalesPilot's collaborators from configuration. It is
// shared by the server and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/salespilot/salespilot-go/internal/cache"
	"github.com/salespilot/salespilot-go/internal/config"
	"github.com/salespilot/salespilot-go/internal/db"
	"github.com/salespilot/salespilot-go/internal/llm"
	"github.com/salespilot/salespilot-go/internal/metrics"
	"github.com/salespilot/salespilot-go/internal/queue"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/salespilot/salespilot-go/internal/service"
	"github.com/salespilot/salespilot-go/internal/suggestion"
	"github.com/salespilot/salespilot-go/internal/whatsapp"
)

// App holds every long-lived dependency.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.Collector

	DB    *db.Client
	Cache cache.Cache
	// Redis is nil when REDIS_URL is unset.
	Redis *redis.Client

	Generator *suggestion.Generator
	// Provider names the active language-model backend, "none" when only
	// the heuristic fallback runs.
	Provider string

	Registry   realtime.RoomRegistry
	Backplane  *realtime.Backplane
	Dispatcher *realtime.Dispatcher

	Queue queue.Client
	// MemoryQueue is set when tasks run in-process.
	MemoryQueue *queue.MemoryQueue

	WhatsApp      *whatsapp.Client
	Calls         *service.CallService
	Chats         *service.ChatService
	Notifications *service.NotificationService
	Worker        *service.SuggestionWorker

	closers []func(context.Context) error
}

// New connects to the database and builds the services.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.NewCollector()}

	if err := a.connect(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if err := a.buildQueue(); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.buildRealtime()
	a.buildGenerator(ctx)
	a.buildServices()
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}
	dbClient, err := db.NewClient(ctx, dbCfg, a.Logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	dbClient.SetMetrics(a.Metrics)
	a.DB = dbClient
	a.closers = append(a.closers, dbClient.Close)

	if err := dbClient.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	return a.connectCache(ctx)
}

// connectCache uses Redis when configured. Redis is mandatory only when the
// asynq queue or the backplane needs it; as a plain cache an unreachable
// Redis degrades to the in-process cache.
func (a *App) connectCache(ctx context.Context) error {
	cfg := a.Config
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err == nil {
			a.Redis = rc
			a.Cache = cache.FromClient(rc)
			a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
			return nil
		}
		if cfg.QueueBackend == config.QueueAsynq || cfg.RealtimeBackplane {
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.Logger.Warn("redis unavailable, using in-memory cache", "error", err)
	}

	mc := cache.NewMemoryCache(cfg.CacheEntries, cfg.CacheTTL)
	a.Cache = mc
	a.closers = append(a.closers, func(context.Context) error { return mc.Close() })
	return nil
}

func (a *App) buildQueue() error {
	cfg := a.Config
	if cfg.QueueBackend == config.QueueAsynq {
		qc, err := queue.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("create task queue: %w", err)
		}
		a.Queue = qc
		a.closers = append(a.closers, func(context.Context) error { return qc.Close() })
		return nil
	}

	mq := queue.NewMemoryQueue(cfg.QueueWorkers, cfg.QueueCapacity, a.Metrics, a.Logger)
	a.Queue = mq
	a.MemoryQueue = mq
	a.closers = append(a.closers, mq.Stop)
	return nil
}

func (a *App) buildRealtime() {
	local := realtime.NewMemoryRegistry()
	a.Registry = local
	// Tasks handled by asynq workers reach sockets through the backplane.
	if a.Redis != nil && (a.Config.RealtimeBackplane || a.Config.QueueBackend == config.QueueAsynq) {
		a.Backplane = realtime.NewBackplane(local, a.Redis, a.Config.BackplaneChannel, a.Logger)
		a.Registry = a.Backplane
	}
	a.Dispatcher = realtime.NewDispatcher(a.Registry, a.Metrics, a.Logger)
}

func (a *App) buildGenerator(ctx context.Context) {
	cfg := a.Config
	opts := []suggestion.Option{
		suggestion.WithCacheTTL(cfg.CacheTTL),
		suggestion.WithProviderTimeout(cfg.LLMTimeout),
		suggestion.WithMetrics(a.Metrics),
		suggestion.WithLogger(a.Logger),
	}

	a.Provider = "none"
	if cfg.LLMEnabled() {
		model, err := llm.NewModel(ctx, cfg, llm.WithMetrics(a.Metrics))
		if err != nil {
			a.Logger.Warn("language model unavailable, using fallback suggestions", "provider", cfg.LLMProvider, "error", err)
		} else {
			opts = append(opts, suggestion.WithProvider(model))
			a.Provider = string(cfg.LLMProvider)
		}
	} else {
		a.Logger.Info("no language model configured, using fallback suggestions", "provider", cfg.LLMProvider)
	}
	a.Generator = suggestion.NewGenerator(a.Cache, opts...)
}

func (a *App) buildServices() {
	cfg := a.Config
	a.WhatsApp = whatsapp.NewClient(whatsapp.Config{
		APIURL:        cfg.WhatsAppAPIURL,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		AccessToken:   cfg.WhatsAppAccessToken,
	})

	a.Calls = service.NewCallService(a.DB, a.DB, a.Dispatcher, a.Queue)
	a.Chats = service.NewChatService(a.DB, a.DB, a.Generator, a.Dispatcher, a.WhatsApp, a.Queue, a.Metrics)
	a.Notifications = service.NewNotificationService(a.DB, a.Dispatcher)
	a.Worker = service.NewSuggestionWorker(a.Generator, a.DB, a.Dispatcher, a.Metrics)

	if a.MemoryQueue != nil {
		a.Worker.Register(a.MemoryQueue)
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
