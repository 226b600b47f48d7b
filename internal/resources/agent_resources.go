package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/server"
)

// RegisterAgentResources registers the agent department resources.
func RegisterAgentResources(s *mcpserver.MCPServer, app *server.AppContext) error {
	statusResource := mcp.NewResource(
		"agents://status",
		"Agent Department Status",
		mcp.WithResourceDescription("Every agent's enabled state, schedule, config version, and last result"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(statusResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAgentStatuses(ctx, request, app)
	})

	vipResource := mcp.NewResource(
		"vip://list",
		"VIP Contacts and Domains",
		mcp.WithResourceDescription("Senders the VIP monitor agent watches"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(vipResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleVIPList(ctx, request, app)
	})

	return nil
}

func handleAgentStatuses(_ context.Context, request mcp.ReadResourceRequest, app *server.AppContext) ([]mcp.ResourceContents, error) {
	payload, err := json.MarshalIndent(map[string]any{
		"agents": app.Registry().Statuses(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal agent statuses: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(payload),
		},
	}, nil
}

func handleVIPList(_ context.Context, request mcp.ReadResourceRequest, app *server.AppContext) ([]mcp.ResourceContents, error) {
	contacts, domains, err := app.VIPs().Load()
	if err != nil {
		return nil, fmt.Errorf("load vip list: %w", err)
	}

	payload, err := json.MarshalIndent(map[string]any{
		"contacts": contacts,
		"domains":  domains,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal vip list: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(payload),
		},
	}, nil
}
