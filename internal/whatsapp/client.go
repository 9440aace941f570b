// Package whatsapp talks to the WhatsApp Cloud (Graph) API: sending text
// messages and parsing inbound webhook payloads.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// ErrNotConfigured is returned when no phone number id or token is set.
var ErrNotConfigured = errors.New("whatsapp: not configured")

// Config holds Graph API credentials.
type Config struct {
	APIURL        string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// Client sends messages through the Graph API.
type Client struct {
	http          *resty.Client
	phoneNumberID string
}

// NewClient builds a client. A client without credentials is valid but
// every send fails with ErrNotConfigured.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.AccessToken != "" {
		rc.SetAuthToken(cfg.AccessToken)
	}
	c := &Client{http: rc}
	if cfg.AccessToken != "" {
		c.phoneNumberID = cfg.PhoneNumberID
	}
	return c
}

// Enabled reports whether sends can reach the API.
func (c *Client) Enabled() bool {
	return c.phoneNumberID != ""
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

// SendText delivers a text message to phone and returns the provider
// message id.
func (c *Client) SendText(ctx context.Context, phone, text string) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendRequest{
			MessagingProduct: "whatsapp",
			RecipientType:    "individual",
			To:               phone,
			Type:             "text",
			Text:             textBody{Body: text},
		}).
		Post(fmt.Sprintf("/%s/messages", c.phoneNumberID))
	if err != nil {
		return "", fmt.Errorf("whatsapp send: %w", err)
	}
	if resp.IsError() {
		msg := gjson.GetBytes(resp.Body(), "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("whatsapp send: status %d: %s", resp.StatusCode(), msg)
	}
	return gjson.GetBytes(resp.Body(), "messages.0.id").String(), nil
}
