package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salespilot/salespilot-go/internal/suggestion"
)

type suggestionRequest struct {
	CurrentMessage      string `json:"currentMessage"`
	ConversationHistory string `json:"conversationHistory"`
	Context             string `json:"context"`
	CustomerSentiment   string `json:"customerSentiment"`
}

type suggestionResponse struct {
	Suggestion string              `json:"suggestion"`
	Confidence float64             `json:"confidence"`
	Type       suggestion.Category `json:"type"`
	Context    suggestion.Channel  `json:"context,omitempty"`
}

type analyzeRequest struct {
	Transcript string `json:"transcript"`
}

func (s *Server) handleSuggestion(c *gin.Context) {
	var req suggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.CurrentMessage) == "" {
		badRequest(c, "currentMessage is required")
		return
	}
	channel := suggestion.ParseChannel(req.Context)
	if req.Context != "" && channel == "" {
		badRequest(c, "context must be phone_call or whatsapp")
		return
	}
	switch req.CustomerSentiment {
	case "", string(suggestion.SentimentPositive), string(suggestion.SentimentNeutral), string(suggestion.SentimentNegative):
	default:
		badRequest(c, "customerSentiment must be positive, neutral or negative")
		return
	}

	out := s.deps.Generator.Generate(c.Request.Context(), suggestion.ConversationContext{
		TriggerMessage: req.CurrentMessage,
		History:        req.ConversationHistory,
		Channel:        channel,
	})
	c.JSON(http.StatusOK, suggestionResponse{
		Suggestion: out.Text,
		Confidence: out.Confidence,
		Type:       out.Category,
		Context:    channel,
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	c.JSON(http.StatusOK, suggestion.Analyze(req.Transcript))
}

func (s *Server) handleAIHealth(c *gin.Context) {
	provider := s.deps.Provider
	if provider == "" {
		provider = "none"
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "provider": provider, "timestamp": time.Now().UTC()})
}
