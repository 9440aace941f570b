// Package server exposes SalesPilot over HTTP: the REST API, provider
// webhooks and the realtime websocket endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salespilot/salespilot-go/internal/cache"
	"github.com/salespilot/salespilot-go/internal/metrics"
	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/salespilot/salespilot-go/internal/service"
	"github.com/salespilot/salespilot-go/internal/suggestion"
	"github.com/salespilot/salespilot-go/internal/whatsapp"
)

// Calls is the call API surface. *service.CallService implements it.
type Calls interface {
	Create(ctx context.Context, in models.CallInput) (*models.Call, error)
	Get(ctx context.Context, id string) (*models.Call, error)
	List(ctx context.Context, companyID string) ([]models.Call, error)
	Active(ctx context.Context, companyID string) ([]models.Call, error)
	Stats(ctx context.Context, companyID string) (models.CallStats, error)
	Suggestions(ctx context.Context, id string) ([]models.SuggestionRecord, error)
	Update(ctx context.Context, id string, u models.CallUpdate) (*models.Call, error)
	AddTranscript(ctx context.Context, id, speaker, text string) (*models.Call, error)
	Complete(ctx context.Context, id string) (*models.Call, error)
	HandleProviderStatus(ctx context.Context, sid, status string) (*models.Call, error)
	HandleProviderTranscript(ctx context.Context, sid, text string) (*models.Call, error)
	HandleProviderRecording(ctx context.Context, sid, url string) (*models.Call, error)
}

// Chats is the WhatsApp chat API surface. *service.ChatService implements it.
type Chats interface {
	Create(ctx context.Context, in models.ChatInput) (*models.Chat, error)
	Get(ctx context.Context, id string) (*models.Chat, error)
	List(ctx context.Context, companyID string) ([]models.Chat, error)
	Messages(ctx context.Context, id string, limit int) ([]models.Message, error)
	Suggestions(ctx context.Context, id string) ([]models.SuggestionRecord, error)
	SendMessage(ctx context.Context, chatID, content string) (*models.Message, error)
	HandleIncoming(ctx context.Context, in whatsapp.InboundMessage) (*models.Message, error)
	Suggest(ctx context.Context, chatID string) (suggestion.Suggestion, error)
}

// Notifications is the notification API surface.
// *service.NotificationService implements it.
type Notifications interface {
	Create(ctx context.Context, in models.NotificationInput) (*models.Notification, error)
	List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// Pinger reports database reachability. *db.Client implements it.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Deps are the collaborators the server routes to. Nil optional fields
// disable the matching routes.
type Deps struct {
	Generator     service.Generator
	Calls         Calls
	Chats         Chats
	Notifications Notifications
	Realtime      http.Handler
	Database      Pinger
	Cache         cache.Cache
	Metrics       *metrics.Collector

	WhatsAppVerifyToken   string
	TranscriptionCallback string
	Provider              string
}

// Server wraps the gin engine with dependencies and lifecycle management.
type Server struct {
	engine *gin.Engine
	deps   Deps
	logger *slog.Logger
}

// New creates the server and registers all routes.
func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), LoggingMiddleware(logger))

	s := &Server{engine: engine, deps: deps, logger: logger}
	s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/health", s.handleHealth)
	r.GET("/stats", s.handleStats)

	ai := r.Group("/ai")
	ai.POST("/suggestion", s.handleSuggestion)
	ai.POST("/analyze", s.handleAnalyze)
	ai.GET("/health", s.handleAIHealth)

	if s.deps.Calls != nil {
		calls := r.Group("/calls")
		calls.GET("", s.listCalls)
		calls.GET("/stats", s.callStats)
		calls.GET("/active", s.activeCalls)
		calls.GET("/:id", s.getCall)
		calls.POST("", s.createCall)
		calls.PUT("/:id", s.updateCall)
		calls.POST("/:id/transcript", s.addTranscript)
		calls.POST("/:id/complete", s.completeCall)
		calls.GET("/:id/suggestions", s.callSuggestions)

		twilio := r.Group("/webhooks/twilio")
		twilio.POST("/voice", s.twilioVoice)
		twilio.POST("/status", s.twilioStatus)
		twilio.POST("/transcription", s.twilioTranscription)
		twilio.POST("/recording", s.twilioRecording)
	}

	if s.deps.Chats != nil {
		chats := r.Group("/whatsapp/chats")
		chats.GET("", s.listChats)
		chats.GET("/:id", s.getChat)
		chats.POST("", s.createChat)
		chats.POST("/:id/messages", s.sendMessage)
		chats.GET("/:id/messages", s.listMessages)
		chats.GET("/:id/suggestion", s.chatSuggestion)
		chats.GET("/:id/suggestions", s.chatSuggestions)

		hook := r.Group("/webhooks/whatsapp")
		hook.GET("", s.whatsappVerify)
		hook.POST("", s.whatsappReceive)
	}

	if s.deps.Notifications != nil {
		n := r.Group("/notifications")
		n.GET("", s.listNotifications)
		n.POST("", s.createNotification)
		n.GET("/unread-count", s.unreadCount)
		n.PATCH("/:id/read", s.markRead)
		n.POST("/read-all", s.markAllRead)
	}

	if s.deps.Realtime != nil {
		r.GET("/ws", gin.WrapH(s.deps.Realtime))
	}
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Long for LLM responses
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
