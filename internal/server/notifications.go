package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/salespilot/salespilot-go/internal/models"
)

type createNotificationRequest struct {
	UserID  string         `json:"userId"`
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// requireUser aborts with 400 when the caller did not identify itself.
func requireUser(c *gin.Context) (string, bool) {
	user, _ := identity(c)
	if user == "" {
		badRequest(c, "userId is required")
		return "", false
	}
	return user, true
}

func (s *Server) listNotifications(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	list, err := s.deps.Notifications.List(c.Request.Context(), user, c.Query("unread") == "true")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Views[models.Notification, models.NotificationView](list))
}

func (s *Server) createNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	_, company := identity(c)
	n, err := s.deps.Notifications.Create(c.Request.Context(), models.NotificationInput{
		UserID:    req.UserID,
		CompanyID: company,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Data:      req.Data,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, n.View())
}

func (s *Server) unreadCount(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	count, err := s.deps.Notifications.UnreadCount(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) markRead(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	n, err := s.deps.Notifications.MarkRead(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n.View())
}

func (s *Server) markAllRead(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	count, err := s.deps.Notifications.MarkAllRead(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}
