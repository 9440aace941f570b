package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salespilot/salespilot-go/internal/db"
	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/salespilot/salespilot-go/internal/queue"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/salespilot/salespilot-go/internal/suggestion"
)

// Call directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// CallStatusEvent is the body of a call:status dispatch.
type CallStatusEvent struct {
	CallID         string            `json:"callId"`
	Status         models.CallStatus `json:"status"`
	PreviousStatus models.CallStatus `json:"previousStatus,omitempty"`
	DurationSec    *int              `json:"duration,omitempty"`
	Sentiment      *string           `json:"sentiment,omitempty"`
	Timestamp      int64             `json:"timestamp"`
}

// CallService manages the phone call lifecycle.
type CallService struct {
	calls       CallStore
	suggestions SuggestionStore
	dispatcher  Dispatcher
	queue       queue.Client
	now         func() time.Time
}

// NewCallService wires a CallService.
func NewCallService(calls CallStore, suggestions SuggestionStore, d Dispatcher, q queue.Client) *CallService {
	return &CallService{calls: calls, suggestions: suggestions, dispatcher: d, queue: q, now: time.Now}
}

// Create starts tracking a call in status initiated.
func (s *CallService) Create(ctx context.Context, in models.CallInput) (*models.Call, error) {
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if in.UserID == "" || in.PhoneNumber == "" {
		return nil, fmt.Errorf("%w: userId and phoneNumber are required", ErrValidation)
	}
	switch in.Direction {
	case "":
		in.Direction = DirectionOutbound
	case DirectionInbound, DirectionOutbound:
	default:
		return nil, fmt.Errorf("%w: unknown direction %q", ErrValidation, in.Direction)
	}

	call, err := s.calls.QueryCreateCall(ctx, uuid.NewString(), in)
	if err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}
	slog.Info("call created", "call_id", models.IDString(call.ID), "user_id", in.UserID, "direction", in.Direction)
	return call, nil
}

// Get returns a call by id.
func (s *CallService) Get(ctx context.Context, id string) (*models.Call, error) {
	return s.calls.QueryGetCall(ctx, id)
}

// List returns the most recent calls of a company.
func (s *CallService) List(ctx context.Context, companyID string) ([]models.Call, error) {
	return s.calls.QueryListCalls(ctx, companyID, listLimit)
}

// Active returns the calls of a company that have not ended.
func (s *CallService) Active(ctx context.Context, companyID string) ([]models.Call, error) {
	return s.calls.QueryActiveCalls(ctx, companyID)
}

// Stats aggregates call counts for a company.
func (s *CallService) Stats(ctx context.Context, companyID string) (models.CallStats, error) {
	return s.calls.QueryCallStats(ctx, companyID)
}

// Suggestions returns the newest suggestions generated during a call.
func (s *CallService) Suggestions(ctx context.Context, id string) ([]models.SuggestionRecord, error) {
	if _, err := s.calls.QueryGetCall(ctx, id); err != nil {
		return nil, err
	}
	return s.suggestions.QuerySuggestionsForCall(ctx, id, suggestionHistoryLimit)
}

// Update applies a partial update and notifies the agent when the status
// changed.
func (s *CallService) Update(ctx context.Context, id string, u models.CallUpdate) (*models.Call, error) {
	if u.Status != nil && !u.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *u.Status)
	}
	prev, err := s.calls.QueryGetCall(ctx, id)
	if err != nil {
		return nil, err
	}
	call, err := s.calls.QueryUpdateCall(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("update call: %w", err)
	}
	if u.Status != nil && *u.Status != prev.Status {
		s.notifyStatus(ctx, call, prev.Status)
	}
	return call, nil
}

// AddTranscript appends one utterance to an in-progress call. Customer
// lines schedule a background suggestion for the agent.
func (s *CallService) AddTranscript(ctx context.Context, id, speaker, text string) (*models.Call, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	switch speaker {
	case models.SpeakerCustomer, models.SpeakerAgent:
	default:
		return nil, fmt.Errorf("%w: unknown speaker %q", ErrValidation, speaker)
	}

	current, err := s.calls.QueryGetCall(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.CallInProgress {
		return nil, fmt.Errorf("%w: call %s is %s", ErrInvalidState, id, current.Status)
	}

	call, err := s.calls.QueryAppendTranscript(ctx, id, speaker, text)
	if err != nil {
		return nil, fmt.Errorf("append transcript: %w", err)
	}

	if speaker == models.SpeakerCustomer && call.UserID != "" {
		enqueueSuggestion(ctx, s.queue, SuggestionTask{
			UserID:  call.UserID,
			CallID:  id,
			Trigger: text,
			History: current.Transcript,
			Channel: suggestion.ChannelCall,
		})
	}
	return call, nil
}

// Complete ends a call, scoring its transcript.
func (s *CallService) Complete(ctx context.Context, id string) (*models.Call, error) {
	current, err := s.calls.QueryGetCall(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.CallCompleted {
		return nil, fmt.Errorf("%w: call %s already completed", ErrInvalidState, id)
	}

	a := suggestion.Analyze(current.Transcript)
	call, err := s.calls.QueryCompleteCall(ctx, id, string(a.Sentiment), a.Score, a.Summary)
	if err != nil {
		return nil, fmt.Errorf("complete call: %w", err)
	}
	slog.Info("call completed", "call_id", id, "sentiment", a.Sentiment, "duration_sec", call.DurationSec)
	s.notifyStatus(ctx, call, current.Status)
	return call, nil
}

// ProviderStatus maps a telephony provider status to a CallStatus.
func ProviderStatus(raw string) (models.CallStatus, bool) {
	switch strings.ToLower(raw) {
	case "queued", "initiated":
		return models.CallInitiated, true
	case "ringing":
		return models.CallRinging, true
	case "in-progress", "answered":
		return models.CallInProgress, true
	case "completed":
		return models.CallCompleted, true
	case "busy":
		return models.CallBusy, true
	case "failed":
		return models.CallFailed, true
	case "no-answer":
		return models.CallNoAnswer, true
	case "canceled":
		return models.CallCanceled, true
	}
	return "", false
}

// HandleProviderStatus applies a provider status callback to the call
// with the given provider sid. Completion goes through Complete.
func (s *CallService) HandleProviderStatus(ctx context.Context, sid, raw string) (*models.Call, error) {
	status, ok := ProviderStatus(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider status %q", ErrValidation, raw)
	}
	call, err := s.bySID(ctx, sid)
	if err != nil {
		return nil, err
	}
	id := models.IDString(call.ID)
	if status == models.CallCompleted {
		if call.Status == models.CallCompleted {
			return call, nil
		}
		return s.Complete(ctx, id)
	}
	return s.Update(ctx, id, models.CallUpdate{Status: &status})
}

// HandleProviderTranscript appends a transcribed customer utterance to the
// call with the given provider sid.
func (s *CallService) HandleProviderTranscript(ctx context.Context, sid, text string) (*models.Call, error) {
	call, err := s.bySID(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.AddTranscript(ctx, models.IDString(call.ID), models.SpeakerCustomer, text)
}

// HandleProviderRecording stores the recording url of a call.
func (s *CallService) HandleProviderRecording(ctx context.Context, sid, url string) (*models.Call, error) {
	call, err := s.bySID(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.calls.QueryUpdateCall(ctx, models.IDString(call.ID), models.CallUpdate{RecordingURL: &url})
}

func (s *CallService) bySID(ctx context.Context, sid string) (*models.Call, error) {
	if sid == "" {
		return nil, fmt.Errorf("%w: CallSid is required", ErrValidation)
	}
	call, err := s.calls.QueryFindCallBySID(ctx, sid)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, fmt.Errorf("call with sid %s: %w", sid, db.ErrNotFound)
	}
	return call, nil
}

// FailStale marks calls without activity for idle as failed and notifies
// their agents. It returns the number of calls changed.
func (s *CallService) FailStale(ctx context.Context, idle time.Duration) (int, error) {
	before, err := s.calls.QueryFailStaleCalls(ctx, idle)
	if err != nil {
		return 0, fmt.Errorf("fail stale calls: %w", err)
	}
	for i := range before {
		call := before[i]
		prev := call.Status
		call.Status = models.CallFailed
		s.notifyStatus(ctx, &call, prev)
	}
	return len(before), nil
}

func (s *CallService) notifyStatus(ctx context.Context, call *models.Call, prev models.CallStatus) {
	id := models.IDString(call.ID)
	body := CallStatusEvent{
		CallID:         id,
		Status:         call.Status,
		PreviousStatus: prev,
		DurationSec:    call.DurationSec,
		Sentiment:      call.Sentiment,
		Timestamp:      s.now().UnixMilli(),
	}
	if call.UserID != "" {
		s.dispatcher.Dispatch(ctx, realtime.Payload{Kind: realtime.KindStatus, Room: realtime.UserRoom(call.UserID), Body: body})
	}
	s.dispatcher.Dispatch(ctx, realtime.Payload{Kind: realtime.KindStatus, Room: realtime.CallRoom(id), Body: body})
}
