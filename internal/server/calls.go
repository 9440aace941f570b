package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/salespilot/salespilot-go/internal/realtime"
)

type createCallRequest struct {
	UserID      string  `json:"userId"`
	PhoneNumber string  `json:"phoneNumber"`
	Direction   string  `json:"direction"`
	ProviderSID *string `json:"providerSid"`
}

type updateCallRequest struct {
	Status       *models.CallStatus `json:"status"`
	ProviderSID  *string            `json:"providerSid"`
	RecordingURL *string            `json:"recordingUrl"`
	Summary      *string            `json:"summary"`
}

type transcriptRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// identity returns the caller's user and company ids from the same query
// parameters or headers the websocket handshake uses.
func identity(c *gin.Context) (userID, companyID string) {
	return realtime.Credentials(c.Request)
}

func (s *Server) listCalls(c *gin.Context) {
	_, company := identity(c)
	calls, err := s.deps.Calls.List(c.Request.Context(), company)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Views[models.Call, models.CallView](calls))
}

func (s *Server) activeCalls(c *gin.Context) {
	_, company := identity(c)
	calls, err := s.deps.Calls.Active(c.Request.Context(), company)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Views[models.Call, models.CallView](calls))
}

func (s *Server) callStats(c *gin.Context) {
	_, company := identity(c)
	stats, err := s.deps.Calls.Stats(c.Request.Context(), company)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getCall(c *gin.Context) {
	call, err := s.deps.Calls.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, call.View())
}

func (s *Server) createCall(c *gin.Context) {
	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	user, company := identity(c)
	if req.UserID != "" {
		user = req.UserID
	}
	call, err := s.deps.Calls.Create(c.Request.Context(), models.CallInput{
		CompanyID:   company,
		UserID:      user,
		PhoneNumber: req.PhoneNumber,
		Direction:   req.Direction,
		ProviderSID: req.ProviderSID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, call.View())
}

func (s *Server) updateCall(c *gin.Context) {
	var req updateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	call, err := s.deps.Calls.Update(c.Request.Context(), c.Param("id"), models.CallUpdate{
		Status:       req.Status,
		ProviderSID:  req.ProviderSID,
		RecordingURL: req.RecordingURL,
		Summary:      req.Summary,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, call.View())
}

func (s *Server) addTranscript(c *gin.Context) {
	var req transcriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	call, err := s.deps.Calls.AddTranscript(c.Request.Context(), c.Param("id"), req.Speaker, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, call.View())
}

func (s *Server) completeCall(c *gin.Context) {
	call, err := s.deps.Calls.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, call.View())
}

func (s *Server) callSuggestions(c *gin.Context) {
	recs, err := s.deps.Calls.Suggestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Views[models.SuggestionRecord, models.SuggestionView](recs))
}
