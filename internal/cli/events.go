package cli

import (
	"fmt"

	"github.com/salespilot/salespilot-go/internal/client"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/tidwall/gjson"
)

// isKeepalive reports whether ev is the server's answer to a ping.
func isKeepalive(ev client.Event) bool {
	return ev.Name == realtime.EventAck && gjson.GetBytes(ev.Data, "pong").Bool()
}

// describe renders a realtime event as a single line.
func describe(ev client.Event) string {
	d := gjson.ParseBytes(ev.Data)
	switch ev.Name {
	case realtime.EventSuggestion:
		return fmt.Sprintf("%s [%s] %s (%.0f%%)", target(d),
			d.Get("suggestion.category").String(),
			d.Get("suggestion.text").String(),
			d.Get("suggestion.confidence").Float()*100)
	case realtime.EventCallStatus:
		line := "call " + d.Get("callId").String() + ": "
		if prev := d.Get("previousStatus").String(); prev != "" {
			line += prev + " -> "
		}
		line += d.Get("status").String()
		if dur := d.Get("duration"); dur.Exists() {
			line += fmt.Sprintf(" (%ds)", dur.Int())
		}
		if s := d.Get("sentiment").String(); s != "" {
			line += ", " + s
		}
		return line
	case realtime.EventChatMessage:
		arrow := "<-"
		if d.Get("message.direction").String() == "outgoing" {
			arrow = "->"
		}
		return fmt.Sprintf("chat %s %s %s", d.Get("chatId").String(), arrow, d.Get("message.content").String())
	case realtime.EventNotification:
		return fmt.Sprintf("%s: %s", d.Get("notification.title").String(), d.Get("notification.message").String())
	case realtime.EventTypingStart, realtime.EventTypingStop:
		verb := "started"
		if ev.Name == realtime.EventTypingStop {
			verb = "stopped"
		}
		return fmt.Sprintf("%s %s typing in chat %s", d.Get("userId").String(), verb, d.Get("chatId").String())
	case realtime.EventUserOnline:
		return d.Get("userId").String() + " is online"
	case realtime.EventUserOffline:
		return d.Get("userId").String() + " went offline"
	case realtime.EventAck:
		return "joined"
	case realtime.EventError:
		return fmt.Sprintf("%s: %s", d.Get("code").String(), d.Get("error").String())
	default:
		return string(ev.Data)
	}
}

func target(d gjson.Result) string {
	if id := d.Get("callId").String(); id != "" {
		return "call " + id
	}
	if id := d.Get("chatId").String(); id != "" {
		return "chat " + id
	}
	return "-"
}
