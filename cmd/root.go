package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxpilot application
var rootCmd = &cobra.Command{
	Use:   "inboxpilot",
	Short: "Self-tuning email agents for Gmail inbox triage",
	Long: `inboxpilot runs a small department of email agents against your Gmail
inbox: triage, morning briefing, VIP monitoring, cleanup, inbox-zero
processing, and a weekly digest. Agents tune their own configuration from
your feedback, inside hard guardrails, under the oversight of a director
meta-agent.

It can run as:
  - A long-running daemon with a JSON API (serve)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)
  - A one-shot CLI for running agents and managing VIPs`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxpilot version %s\n" .Version}}`)

	// If no subcommand is provided, run the daemon by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newAgentsCmd())
	rootCmd.AddCommand(newFeedbackCmd())
	rootCmd.AddCommand(newVIPCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
