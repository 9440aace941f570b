package cli

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/salespilot/salespilot-go/internal/client"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/tidwall/gjson"
)

const maxFeedLines = 15

// eventMsg carries one realtime frame into the model.
type eventMsg client.Event

// watchDoneMsg reports that the websocket session ended.
type watchDoneMsg struct {
	err error
}

type feedLine struct {
	at   time.Time
	name string
	text string
}

// feedModel is the bubbletea model for the live event feed.
type feedModel struct {
	rooms      string
	lines      []feedLine
	latest     string
	confidence float64
	meter      progress.Model
	theme      Theme
	joined     bool
	done       bool
	quitting   bool
	err        error
	now        func() time.Time
}

func newFeedModel(rooms string) feedModel {
	return feedModel{
		rooms: rooms,
		meter: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(30),
		),
		theme: defaultTheme,
		now:   time.Now,
	}
}

func (m feedModel) Init() tea.Cmd {
	return m.meter.Init()
}

func (m feedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case eventMsg:
		ev := client.Event(msg)
		if isKeepalive(ev) {
			return m, nil
		}
		if ev.Name == realtime.EventAck {
			m.joined = true
			return m, nil
		}
		if ev.Name == realtime.EventSuggestion {
			m.latest = gjson.GetBytes(ev.Data, "suggestion.text").String()
			m.confidence = gjson.GetBytes(ev.Data, "suggestion.confidence").Float()
		}
		m.lines = append(m.lines, feedLine{at: m.now(), name: ev.Name, text: describe(ev)})
		if len(m.lines) > maxFeedLines {
			m.lines = m.lines[len(m.lines)-maxFeedLines:]
		}
		return m, nil

	case watchDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.meter, cmd = m.meter.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m feedModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m feedModel) renderContent() string {
	if m.quitting {
		return m.theme.hintStyle().Render("Stopped watching.") + "\n"
	}
	if m.done {
		if m.err != nil {
			return m.theme.errorStyle().Render(fmt.Sprintf("✗ Connection lost: %s", m.err)) + "\n"
		}
		return m.theme.hintStyle().Render("Server closed the connection.") + "\n"
	}

	var b strings.Builder
	state := "connecting"
	if m.joined || len(m.lines) > 0 {
		state = "live"
	}
	b.WriteString(m.theme.statusStyle().Render(fmt.Sprintf("[%s]", state)))
	b.WriteString(" " + m.rooms + "\n\n")

	if m.latest != "" {
		b.WriteString(m.theme.accentStyle().Render("Suggestion: ") + m.latest + "\n")
		b.WriteString(m.meter.ViewAs(m.confidence))
		b.WriteString(fmt.Sprintf(" %.0f%%\n\n", m.confidence*100))
	}

	if len(m.lines) == 0 {
		b.WriteString(m.theme.hintStyle().Render("Waiting for events...") + "\n")
	}
	for _, l := range m.lines {
		style := m.theme.statusStyle()
		switch l.name {
		case realtime.EventSuggestion:
			style = m.theme.accentStyle()
		case realtime.EventError:
			style = m.theme.errorStyle()
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n", l.at.Format("15:04:05"), style.Render(fmt.Sprintf("%-16s", l.name)), l.text))
	}

	b.WriteString("\n" + m.theme.hintStyle().Render("Press q to quit") + "\n")
	return b.String()
}
