package whatsapp

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// ErrInvalidPayload is returned for bodies that are not JSON.
var ErrInvalidPayload = errors.New("whatsapp: invalid webhook payload")

// InboundMessage is one customer message from a webhook delivery.
type InboundMessage struct {
	ExternalID    string
	From          string
	ContactName   string
	Type          string
	Content       string
	PhoneNumberID string
	Timestamp     time.Time
}

// StatusUpdate reports delivery progress of a message we sent.
type StatusUpdate struct {
	ExternalID  string
	Status      string
	RecipientID string
	Timestamp   time.Time
}

// Delivery is everything extracted from one webhook POST.
type Delivery struct {
	Messages []InboundMessage
	Statuses []StatusUpdate
}

// ParseWebhook walks entry[].changes[] and collects messages and statuses
// from changes whose field is "messages".
func ParseWebhook(body []byte) (Delivery, error) {
	if !gjson.ValidBytes(body) {
		return Delivery{}, ErrInvalidPayload
	}

	var d Delivery
	gjson.GetBytes(body, "entry").ForEach(func(_, entry gjson.Result) bool {
		entry.Get("changes").ForEach(func(_, change gjson.Result) bool {
			if change.Get("field").String() != "messages" {
				return true
			}
			value := change.Get("value")
			phoneNumberID := value.Get("metadata.phone_number_id").String()

			value.Get("messages").ForEach(func(_, m gjson.Result) bool {
				from := m.Get("from").String()
				d.Messages = append(d.Messages, InboundMessage{
					ExternalID:    m.Get("id").String(),
					From:          from,
					ContactName:   contactName(value, from),
					Type:          m.Get("type").String(),
					Content:       ExtractContent(m),
					PhoneNumberID: phoneNumberID,
					Timestamp:     unixSeconds(m.Get("timestamp")),
				})
				return true
			})

			value.Get("statuses").ForEach(func(_, s gjson.Result) bool {
				d.Statuses = append(d.Statuses, StatusUpdate{
					ExternalID:  s.Get("id").String(),
					Status:      s.Get("status").String(),
					RecipientID: s.Get("recipient_id").String(),
					Timestamp:   unixSeconds(s.Get("timestamp")),
				})
				return true
			})
			return true
		})
		return true
	})
	return d, nil
}

// ExtractContent renders a message as text according to its type.
func ExtractContent(m gjson.Result) string {
	switch t := m.Get("type").String(); t {
	case "text":
		return m.Get("text.body").String()
	case "image":
		return "[Image: " + orDefault(m.Get("image.caption").String(), "No caption") + "]"
	case "audio":
		return "[Audio message]"
	case "video":
		return "[Video: " + orDefault(m.Get("video.caption").String(), "No caption") + "]"
	case "document":
		return "[Document: " + orDefault(m.Get("document.filename").String(), "Unknown") + "]"
	case "location":
		return fmt.Sprintf("[Location: %s, %s]", m.Get("location.latitude").Raw, m.Get("location.longitude").Raw)
	case "contacts":
		return "[Contact shared]"
	case "sticker":
		return "[Sticker]"
	default:
		return "[" + t + "]"
	}
}

func contactName(value gjson.Result, waID string) string {
	var name string
	value.Get("contacts").ForEach(func(_, c gjson.Result) bool {
		if c.Get("wa_id").String() == waID {
			name = c.Get("profile.name").String()
			return false
		}
		return true
	})
	return name
}

func unixSeconds(r gjson.Result) time.Time {
	if !r.Exists() {
		return time.Time{}
	}
	return time.Unix(r.Int(), 0).UTC()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
