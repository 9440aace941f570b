// Package cli provides the command-line interface for salespilot.
package cli

import (
	"fmt"
	"os"

	"github.com/salespilot/salespilot-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	userID    string
	companyID string
	output    string
	verbose   bool

	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "salespilot",
	Short: "Real-time sales assistant client",
	Long: `Salespilot talks to a running salespilot-server.

Ask for reply suggestions, score call transcripts, follow live calls and
WhatsApp chats as they happen, and check server health.

The server URL defaults to SALESPILOT_SERVER_URL or http://localhost:3001.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		switch output {
		case outputText, outputJSON, outputYAML:
		default:
			return fmt.Errorf("unknown output format %q (text, json, yaml)", output)
		}
		apiClient = client.New(serverURL).WithIdentity(userID, companyID)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $SALESPILOT_SERVER_URL)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", os.Getenv("SALESPILOT_USER_ID"), "agent user id")
	rootCmd.PersistentFlags().StringVar(&companyID, "company", os.Getenv("SALESPILOT_COMPANY_ID"), "company id")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", outputText, "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "salespilot %s\n", Version)
	},
}
