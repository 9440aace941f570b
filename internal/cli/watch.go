package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/salespilot/salespilot-go/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	watchCalls []string
	watchChats []string
	watchPlain bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow suggestions, call status and chat messages live",
	Long: `Connect to the realtime endpoint as an agent and print events as they
arrive: AI suggestions, call status changes, WhatsApp messages,
notifications and presence.

Events addressed to the agent are always received. Use --call and --chat
to also follow specific calls and chats.

A live view is shown on terminals. With --plain, when output is redirected,
or with -o json / -o yaml, one event is printed per line or document.

Examples:
  salespilot watch -u agent-1 --company acme
  salespilot watch -u agent-1 --call 6f1c... --chat 91aa...
  salespilot watch -u agent-1 -o json | jq .`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchCalls, "call", nil, "call ids to follow")
	watchCmd.Flags().StringSliceVar(&watchChats, "chat", nil, "chat ids to follow")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print events without the live view")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if userID == "" {
		return fmt.Errorf("--user (or SALESPILOT_USER_ID) is required to watch")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := client.WatchOptions{CallIDs: watchCalls, ChatIDs: watchChats}

	if watchPlain || output != outputText || !term.IsTerminal(int(os.Stdout.Fd())) {
		err := apiClient.Watch(ctx, opts, func(ev client.Event) error {
			return printEvent(cmd.OutOrStdout(), output, ev)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	return runFeed(ctx, opts)
}

// runFeed shows the live view until the user quits or the connection ends.
func runFeed(ctx context.Context, opts client.WatchOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newFeedModel(roomsLabel(opts)))

	go func() {
		err := apiClient.Watch(ctx, opts, func(ev client.Event) error {
			p.Send(eventMsg(ev))
			return nil
		})
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		p.Send(watchDoneMsg{err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("feed UI error: %w", err)
	}
	if m, ok := finalModel.(feedModel); ok && !m.quitting && m.err != nil {
		return m.err
	}
	return nil
}

func roomsLabel(opts client.WatchOptions) string {
	parts := []string{"agent " + userID}
	for _, id := range opts.CallIDs {
		parts = append(parts, "call "+id)
	}
	for _, id := range opts.ChatIDs {
		parts = append(parts, "chat "+id)
	}
	return strings.Join(parts, ", ")
}

// printEvent writes one event in the selected format. Keepalive acks are
// skipped.
func printEvent(w io.Writer, format string, ev client.Event) error {
	if isKeepalive(ev) {
		return nil
	}
	if format == outputText {
		_, err := fmt.Fprintf(w, "%-16s %s\n", ev.Name, describe(ev))
		return err
	}

	var data any
	if len(ev.Data) > 0 {
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", ev.Name, err)
		}
	}
	v := map[string]any{"event": ev.Name, "data": data}
	if format == outputJSON {
		return json.NewEncoder(w).Encode(v)
	}
	if _, err := fmt.Fprintln(w, "---"); err != nil {
		return err
	}
	return render(w, format, v, nil)
}
