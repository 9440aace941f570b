// Package client provides an HTTP and websocket client for the SalesPilot
// server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/salespilot/salespilot-go/internal/metrics"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/salespilot/salespilot-go/internal/suggestion"
)

// DefaultURL is used when neither an explicit URL nor SALESPILOT_SERVER_URL
// is set.
const DefaultURL = "http://localhost:3001"

// Client talks to a SalesPilot server as one user of one company.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userID     string
	companyID  string
}

// New creates a new client.
// If baseURL is empty, uses SALESPILOT_SERVER_URL env var or defaults to localhost:3001.
// Timeout can be configured via SALESPILOT_CLIENT_TIMEOUT env var (default 60s).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SALESPILOT_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = DefaultURL
	}

	timeout := 60 * time.Second
	if t := os.Getenv("SALESPILOT_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithIdentity returns a copy of c that identifies as userID of companyID
// on every request.
func (c *Client) WithIdentity(userID, companyID string) *Client {
	cp := *c
	cp.userID = userID
	cp.companyID = companyID
	return &cp
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error: %d - %s", e.Status, e.Message)
}

// do sends a JSON request and decodes a JSON response into result.
// Responses with a status in accept are decoded instead of failing.
func (c *Client) do(ctx context.Context, method, path string, body, result any, accept ...int) error {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userID != "" {
		req.Header.Set("X-User-Id", c.userID)
	}
	if c.companyID != "" {
		req.Header.Set("X-Company-Id", c.companyID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	for _, code := range accept {
		ok = ok || resp.StatusCode == code
	}
	if !ok {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// =============================================================================
// TYPES
// =============================================================================

// SuggestRequest asks for a reply suggestion.
type SuggestRequest struct {
	CurrentMessage      string `json:"currentMessage"`
	ConversationHistory string `json:"conversationHistory,omitempty"`
	Context             string `json:"context,omitempty"`
	CustomerSentiment   string `json:"customerSentiment,omitempty"`
}

// SuggestResponse is a generated suggestion.
type SuggestResponse struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
	Type       string  `json:"type"`
	Context    string  `json:"context,omitempty"`
}

// ComponentHealth is the probe result of one dependency.
type ComponentHealth struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Health is the server health report.
type Health struct {
	Status    string                     `json:"status"`
	Timestamp time.Time                  `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// =============================================================================
// REST
// =============================================================================

// Suggest requests a suggestion for one customer message.
func (c *Client) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResponse, error) {
	var out SuggestResponse
	if err := c.do(ctx, http.MethodPost, "/ai/suggestion", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze scores a transcript.
func (c *Client) Analyze(ctx context.Context, transcript string) (*suggestion.Analysis, error) {
	var out suggestion.Analysis
	if err := c.do(ctx, http.MethodPost, "/ai/analyze", map[string]string{"transcript": transcript}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the health report. An unhealthy server still yields a
// report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches the server metrics snapshot.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var out metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// REALTIME
// =============================================================================

// Event is one server-to-client realtime frame.
type Event struct {
	Name string
	Data json.RawMessage
}

// WatchOptions selects the rooms joined after connecting.
type WatchOptions struct {
	CallIDs []string
	ChatIDs []string
	// PingInterval keeps the connection alive. Zero means 25s.
	PingInterval time.Duration
}

// ErrNoIdentity is returned by Watch when the client has no user id.
var ErrNoIdentity = errors.New("client: user id is required for realtime")

// Watch connects to the realtime endpoint, joins the requested rooms and
// invokes onEvent for every frame until ctx is canceled, the server closes
// the connection or onEvent returns an error.
func (c *Client) Watch(ctx context.Context, opts WatchOptions, onEvent func(Event) error) error {
	if c.userID == "" {
		return ErrNoIdentity
	}

	wsEndpoint := c.baseURL
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint + "/ws")
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("userId", c.userID)
	q.Set("companyId", c.companyID)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	// Track connection state for proper cleanup
	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	send := func(event string, body any) error {
		frame, err := realtime.EncodeFrame(event, "", body)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, frame)
	}

	for _, id := range opts.CallIDs {
		if err := send(realtime.EventJoinCall, map[string]string{"callId": id}); err != nil {
			return fmt.Errorf("join call %s: %w", id, err)
		}
	}
	for _, id := range opts.ChatIDs {
		if err := send(realtime.EventJoinChat, map[string]string{"chatId": id}); err != nil {
			return fmt.Errorf("join chat %s: %w", id, err)
		}
	}

	interval := opts.PingInterval
	if interval <= 0 {
		interval = 25 * time.Second
	}

	// Handle context cancellation and keep-alive in a separate goroutine
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				closeConn()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := send(realtime.EventPing, struct{}{}); err != nil {
					return
				}
			}
		}
	}()

	for {
		var frame realtime.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			// Check if this was due to context cancellation
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		if err := onEvent(Event{Name: frame.Event, Data: frame.Data}); err != nil {
			return err
		}
	}
}
