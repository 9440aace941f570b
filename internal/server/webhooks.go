package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"

	"github.com/salespilot/salespilot-go/internal/whatsapp"
)

// Voice greeting played to inbound callers.
const (
	voiceGreeting     = "Bem-vindo ao assistente de vendas com inteligência artificial."
	voiceMaxRecordSec = "3600"
)

// maxWebhookBytes bounds webhook bodies read into memory.
const maxWebhookBytes = 1 << 20

func received(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) whatsappVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode == "subscribe" && s.deps.WhatsAppVerifyToken != "" && token == s.deps.WhatsAppVerifyToken {
		s.logger.Info("whatsapp webhook verified")
		c.String(http.StatusOK, c.Query("hub.challenge"))
		return
	}
	s.logger.Warn("whatsapp webhook verification failed", "mode", mode)
	c.String(http.StatusForbidden, "Verification failed")
}

// whatsappReceive always answers 200 so the provider does not redeliver;
// processing errors are logged.
func (s *Server) whatsappReceive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		s.logger.Warn("read whatsapp webhook", "error", err)
		received(c)
		return
	}
	delivery, err := whatsapp.ParseWebhook(body)
	if err != nil {
		s.logger.Warn("parse whatsapp webhook", "error", err)
		received(c)
		return
	}

	for _, m := range delivery.Messages {
		if _, err := s.deps.Chats.HandleIncoming(c.Request.Context(), m); err != nil {
			s.logger.Error("incoming whatsapp message failed", "from", m.From, "type", m.Type, "error", err)
		}
	}
	for _, st := range delivery.Statuses {
		s.logger.Debug("whatsapp message status", "message_id", st.ExternalID, "status", st.Status, "recipient", st.RecipientID)
	}
	received(c)
}

// twilioVoice answers an inbound call with a greeting and a transcribed
// recording.
func (s *Server) twilioVoice(c *gin.Context) {
	if sid, status := c.PostForm("CallSid"), c.PostForm("CallStatus"); sid != "" && status != "" {
		if _, err := s.deps.Calls.HandleProviderStatus(c.Request.Context(), sid, status); err != nil {
			s.logger.Debug("voice webhook status not applied", "call_sid", sid, "status", status, "error", err)
		}
	}

	doc, err := twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{
			Message:  voiceGreeting,
			Voice:    "alice",
			Language: "pt-BR",
		},
		&twiml.VoiceRecord{
			MaxLength:          voiceMaxRecordSec,
			Transcribe:         "true",
			TranscribeCallback: s.deps.TranscriptionCallback,
		},
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, doc)
}

func (s *Server) twilioStatus(c *gin.Context) {
	sid, status := c.PostForm("CallSid"), c.PostForm("CallStatus")
	if _, err := s.deps.Calls.HandleProviderStatus(c.Request.Context(), sid, status); err != nil {
		s.logger.Warn("twilio status callback", "call_sid", sid, "status", status, "error", err)
	}
	received(c)
}

func (s *Server) twilioTranscription(c *gin.Context) {
	sid, text := c.PostForm("CallSid"), c.PostForm("TranscriptionText")
	if _, err := s.deps.Calls.HandleProviderTranscript(c.Request.Context(), sid, text); err != nil {
		s.logger.Warn("twilio transcription callback", "call_sid", sid, "error", err)
	}
	received(c)
}

func (s *Server) twilioRecording(c *gin.Context) {
	sid, url := c.PostForm("CallSid"), c.PostForm("RecordingUrl")
	if url != "" {
		if _, err := s.deps.Calls.HandleProviderRecording(c.Request.Context(), sid, url); err != nil {
			s.logger.Warn("twilio recording callback", "call_sid", sid, "error", err)
		}
	}
	s.logger.Info("recording ready", "call_sid", sid, "recording_sid", c.PostForm("RecordingSid"))
	received(c)
}
