package cmd

import (
	"context"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/resources"
	"github.com/teemow/inboxpilot/internal/tools/agent_tools"
)

func newMCPCmd() *cobra.Command {
	var yolo bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve agent tools over MCP stdio",
		Long: `Exposes the agent department to MCP clients over stdio. Read tools
(agents_list, agent_status, inbox_briefing, email_search) are always
registered; pass --yolo to also enable agent_trigger and agent_feedback.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), yolo)
		},
	}

	cmd.Flags().BoolVar(&yolo, "yolo", false, "enable tools that run agents and write feedback")

	return cmd
}

func runMCP(ctx context.Context, yolo bool) error {
	a, err := newApplication(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	mcpSrv := mcpserver.NewMCPServer("inboxpilot", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)

	if err := agent_tools.RegisterAgentTools(mcpSrv, a.app, !yolo); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}
	if err := resources.RegisterAgentResources(mcpSrv, a.app); err != nil {
		return fmt.Errorf("register resources: %w", err)
	}

	return mcpserver.ServeStdio(mcpSrv)
}
