package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/salespilot/salespilot-go/internal/suggestion"
	"github.com/spf13/cobra"
)

var analyzeFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [transcript]",
	Short: "Score the sentiment of a call transcript",
	Long: `Score a call transcript and print its sentiment, summary, keywords and
action items.

The transcript is read from the argument, from --file, or from stdin when
neither is given.

Examples:
  salespilot analyze "Cliente: ótimo, gostei muito da proposta"
  salespilot analyze --file call.txt
  cat call.txt | salespilot analyze -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "read the transcript from a file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	transcript, err := readTranscript(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := apiClient.Analyze(cmd.Context(), transcript)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	return render(cmd.OutOrStdout(), output, a, func(w io.Writer) {
		printAnalysis(w, defaultTheme, a)
	})
}

func readTranscript(stdin io.Reader, args []string) (string, error) {
	var raw []byte
	var err error
	switch {
	case len(args) == 1:
		raw = []byte(args[0])
	case analyzeFile != "":
		raw, err = os.ReadFile(analyzeFile)
	default:
		raw, err = io.ReadAll(stdin)
	}
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	transcript := strings.TrimSpace(string(raw))
	if transcript == "" {
		return "", fmt.Errorf("transcript is empty")
	}
	return transcript, nil
}

func printAnalysis(w io.Writer, t Theme, a *suggestion.Analysis) {
	style := t.statusStyle()
	switch a.Sentiment {
	case suggestion.SentimentPositive:
		style = t.successStyle()
	case suggestion.SentimentNegative:
		style = t.errorStyle()
	}
	fmt.Fprintf(w, "Sentiment: %s (%.2f)\n", style.Render(string(a.Sentiment)), a.Score)
	fmt.Fprintf(w, "Summary:   %s\n", a.Summary)
	if len(a.Keywords) > 0 {
		fmt.Fprintf(w, "Keywords:  %s\n", strings.Join(a.Keywords, ", "))
	}
	if len(a.ActionItems) > 0 {
		fmt.Fprintln(w, "\nAction items:")
		for _, item := range a.ActionItems {
			fmt.Fprintf(w, "  • %s\n", item)
		}
	}
}
