package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/salespilot/salespilot-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	suggestHistory   []string
	suggestContext   string
	suggestSentiment string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <customer message>",
	Short: "Get a reply suggestion for a customer message",
	Long: `Ask the server for a reply suggestion to one customer message.

Previous lines of the conversation can be passed with --history, oldest
first. Each line should carry its speaker prefix.

Examples:
  salespilot suggest "Está muito caro"
  salespilot suggest "Qual o prazo de entrega?" --context whatsapp
  salespilot suggest "Não sei se preciso disso" \
    --history "Vendedor: Olá, tudo bem?" --history "Cliente: Tudo sim" -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().StringArrayVar(&suggestHistory, "history", nil, "previous conversation line (repeatable)")
	suggestCmd.Flags().StringVar(&suggestContext, "context", "call", "conversation channel: call, whatsapp")
	suggestCmd.Flags().StringVar(&suggestSentiment, "sentiment", "", "customer sentiment: positive, neutral, negative")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	req := client.SuggestRequest{
		CurrentMessage:      strings.Join(args, " "),
		ConversationHistory: strings.Join(suggestHistory, "\n"),
		Context:             suggestContext,
		CustomerSentiment:   suggestSentiment,
	}

	res, err := apiClient.Suggest(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("suggest: %w", err)
	}

	return render(cmd.OutOrStdout(), output, res, func(w io.Writer) {
		printSuggestion(w, defaultTheme, res)
	})
}

func printSuggestion(w io.Writer, t Theme, res *client.SuggestResponse) {
	fmt.Fprintln(w, t.accentStyle().Render(fmt.Sprintf("[%s]", res.Type))+" "+res.Suggestion)
	fmt.Fprintln(w, t.hintStyle().Render(fmt.Sprintf("confidence %.0f%%", res.Confidence*100)))
}
