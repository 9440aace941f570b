package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/salespilot/salespilot-go/internal/client"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Long: `Report the server status and the status of its database and cache.

Exits non-zero when the server is unhealthy.

Examples:
  salespilot health
  salespilot health -o json`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	h, err := apiClient.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}

	if err := render(cmd.OutOrStdout(), output, h, func(w io.Writer) {
		printHealth(w, defaultTheme, h)
	}); err != nil {
		return err
	}
	if h.Status == "unhealthy" {
		return fmt.Errorf("server is unhealthy")
	}
	return nil
}

func printHealth(w io.Writer, t Theme, h *client.Health) {
	fmt.Fprintf(w, "Status: %s\n", statusStyle(t, h.Status).Render(h.Status))

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := h.Checks[name]
		line := fmt.Sprintf("  %-10s %s %4dms", name, statusStyle(t, c.Status).Render(fmt.Sprintf("%-4s", c.Status)), c.LatencyMs)
		if c.Error != "" {
			line += "  " + t.hintStyle().Render(c.Error)
		}
		fmt.Fprintln(w, line)
	}
}

func statusStyle(t Theme, status string) lipgloss.Style {
	switch status {
	case "ok", "up":
		return t.successStyle()
	case "degraded":
		return t.accentStyle()
	default:
		return t.errorStyle()
	}
}
