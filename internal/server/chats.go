package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/salespilot/salespilot-go/internal/models"
)

type createChatRequest struct {
	CustomerPhone string  `json:"customerPhone"`
	CustomerName  *string `json:"customerName"`
	UserID        string  `json:"userId"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) listChats(c *gin.Context) {
	_, company := identity(c)
	chats, err := s.deps.Chats.List(c.Request.Context(), company)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Views[models.Chat, models.ChatView](chats))
}

func (s *Server) getChat(c *gin.Context) {
	chat, err := s.deps.Chats.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chat.View())
}

func (s *Server) createChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	user, company := identity(c)
	if req.UserID != "" {
		user = req.UserID
	}
	chat, err := s.deps.Chats.Create(c.Request.Context(), models.ChatInput{
		CompanyID:   company,
		UserID:      user,
		Phone:       req.CustomerPhone,
		ContactName: req.CustomerName,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat.View())
}

func (s *Server) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	msg, err := s.deps.Chats.SendMessage(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg.View())
}

func (s *Server) listMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	msgs, err := s.deps.Chats.Messages(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Views[models.Message, models.MessageView](msgs))
}

func (s *Server) chatSuggestion(c *gin.Context) {
	out, err := s.deps.Chats.Suggest(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestionResponse{
		Suggestion: out.Text,
		Confidence: out.Confidence,
		Type:       out.Category,
		Context:    out.Channel,
	})
}

func (s *Server) chatSuggestions(c *gin.Context) {
	recs, err := s.deps.Chats.Suggestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Views[models.SuggestionRecord, models.SuggestionView](recs))
}
