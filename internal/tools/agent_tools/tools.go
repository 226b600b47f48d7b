package agent_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/tools/batch"
)

// RegisterAgentTools registers the agent and inbox tools with the MCP server.
// readOnly suppresses the tools that trigger agents or record feedback.
func RegisterAgentTools(s *mcpserver.MCPServer, app *server.AppContext, readOnly bool) error {
	listTool := mcp.NewTool("agents_list",
		mcp.WithDescription("List all email agents with their enabled state, schedule, and last result"),
	)
	s.AddTool(listTool, instrumented("agents_list", app, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAgentsList(ctx, request, app)
	}))

	statusTool := mcp.NewTool("agent_status",
		mcp.WithDescription("Show one agent's configuration, recent executions, and audit trail"),
		mcp.WithString("agent_id",
			mcp.Required(),
			mcp.Description("Agent identifier (e.g. 'triage', 'briefing')"),
		),
	)
	s.AddTool(statusTool, instrumented("agent_status", app, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAgentStatus(ctx, request, app)
	}))

	briefingTool := mcp.NewTool("inbox_briefing",
		mcp.WithDescription("Run the briefing agent and return a summary of recent inbox activity"),
	)
	s.AddTool(briefingTool, instrumented("inbox_briefing", app, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleInboxBriefing(ctx, request, app)
	}))

	searchTool := mcp.NewTool("email_search",
		mcp.WithDescription("Search the mailbox with a Gmail-style query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (e.g. 'is:unread from:boss@example.com')"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)
	s.AddTool(searchTool, instrumented("email_search", app, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleEmailSearch(ctx, request, app)
	}))

	if readOnly {
		return nil
	}

	triggerTool := mcp.NewTool("agent_trigger",
		mcp.WithDescription("Run an agent immediately and return its result"),
		mcp.WithString("agent_id",
			mcp.Required(),
			mcp.Description("Agent identifier to run"),
		),
	)
	s.AddTool(triggerTool, instrumented("agent_trigger", app, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAgentTrigger(ctx, request, app)
	}))

	feedbackTool := mcp.NewTool("agent_feedback",
		mcp.WithDescription("Record feedback on an agent's behavior; feeds the learning loop"),
		mcp.WithString("agent_id",
			mcp.Required(),
			mcp.Description("Agent identifier the feedback applies to"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Feedback type: thumbs_up, thumbs_down, or correction"),
		),
		mcp.WithString("note",
			mcp.Description("Optional free-text note explaining the feedback"),
		),
	)
	s.AddTool(feedbackTool, instrumented("agent_feedback", app, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAgentFeedback(ctx, request, app)
	}))

	archiveTool := mcp.NewTool("email_archive",
		mcp.WithDescription("Archive one or more messages by ID"),
		mcp.WithString("message_ids",
			mcp.Required(),
			mcp.Description("Message ID or array of message IDs to archive"),
		),
	)
	s.AddTool(archiveTool, instrumented("email_archive", app, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleEmailArchive(ctx, request, app)
	}))

	trashTool := mcp.NewTool("email_trash",
		mcp.WithDescription("Move one or more messages to the trash by ID"),
		mcp.WithString("message_ids",
			mcp.Required(),
			mcp.Description("Message ID or array of message IDs to trash"),
		),
	)
	s.AddTool(trashTool, instrumented("email_trash", app, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleEmailTrash(ctx, request, app)
	}))

	return nil
}

func handleAgentsList(_ context.Context, _ mcp.CallToolRequest, app *server.AppContext) (*mcp.CallToolResult, error) {
	statuses := app.Registry().Statuses()

	var b strings.Builder
	fmt.Fprintf(&b, "%d agents:\n", len(statuses))
	for _, st := range statuses {
		state := "disabled"
		if st.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(&b, "- %s (%s, %s, config v%d)", st.AgentID, st.DisplayName, state, st.ConfigVersion)
		if st.LastResult != nil {
			if st.LastResult.Success {
				fmt.Fprintf(&b, " last run ok, %d emails", st.LastResult.EmailsProcessed)
			} else {
				fmt.Fprintf(&b, " last run failed: %s", st.LastResult.Error)
			}
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func handleAgentStatus(ctx context.Context, request mcp.CallToolRequest, app *server.AppContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	agentID, ok := args["agent_id"].(string)
	if !ok || agentID == "" {
		return mcp.NewToolResultError("agent_id is required"), nil
	}

	unit, ok := app.Registry().Get(agentID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown agent: %s", agentID)), nil
	}

	executions, err := app.Ledger().Executions(ctx, agentID, 5)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read executions: %v", err)), nil
	}
	audit, err := app.Ledger().AuditLog(ctx, agentID, 5)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read audit log: %v", err)), nil
	}

	payload, err := json.MarshalIndent(map[string]any{
		"status":            unit.Status(),
		"config":            unit.Config().ToMap(),
		"recent_executions": executions,
		"audit_log":         audit,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func handleAgentTrigger(ctx context.Context, request mcp.CallToolRequest, app *server.AppContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	agentID, ok := args["agent_id"].(string)
	if !ok || agentID == "" {
		return mcp.NewToolResultError("agent_id is required"), nil
	}

	result, err := app.Scheduler().TriggerAgent(ctx, agentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func handleAgentFeedback(ctx context.Context, request mcp.CallToolRequest, app *server.AppContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	agentID, ok := args["agent_id"].(string)
	if !ok || agentID == "" {
		return mcp.NewToolResultError("agent_id is required"), nil
	}
	feedbackType, ok := args["type"].(string)
	if !ok || feedbackType == "" {
		return mcp.NewToolResultError("type is required"), nil
	}
	switch feedbackType {
	case "thumbs_up", "thumbs_down", "correction":
	default:
		return mcp.NewToolResultError(
			fmt.Sprintf("invalid feedback type: %q (want thumbs_up, thumbs_down, or correction)", feedbackType)), nil
	}

	var data map[string]any
	if note, ok := args["note"].(string); ok && note != "" {
		data = map[string]any{"note": note}
	}

	if _, ok := app.Registry().Get(agentID); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown agent: %s", agentID)), nil
	}
	if err := app.Learning().RecordFeedback(ctx, agentID, nil, feedbackType, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("record feedback: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Feedback recorded for %s", agentID)), nil
}

func handleInboxBriefing(ctx context.Context, _ mcp.CallToolRequest, app *server.AppContext) (*mcp.CallToolResult, error) {
	result, err := app.Scheduler().TriggerAgent(ctx, "briefing")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !result.Success {
		return mcp.NewToolResultError(fmt.Sprintf("briefing failed: %s", result.Error)), nil
	}

	payload, err := json.MarshalIndent(result.Data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode briefing: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func handleEmailArchive(ctx context.Context, request mcp.CallToolRequest, app *server.AppContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	ids, err := batch.MessageIDs(args["message_ids"], "message_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report := batch.Apply(ids, "archived", func(id string) error {
		return app.Mailbox().Archive(ctx, []string{id})
	})
	return mcp.NewToolResultText(report.JSON()), nil
}

func handleEmailTrash(ctx context.Context, request mcp.CallToolRequest, app *server.AppContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	ids, err := batch.MessageIDs(args["message_ids"], "message_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report := batch.Apply(ids, "trashed", func(id string) error {
		return app.Mailbox().Trash(ctx, []string{id})
	})
	return mcp.NewToolResultText(report.JSON()), nil
}

func handleEmailSearch(ctx context.Context, request mcp.CallToolRequest, app *server.AppContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	maxResults := 10
	if v, ok := args["max_results"].(float64); ok && v > 0 {
		maxResults = int(v)
	}

	msgs, err := app.Mailbox().List(ctx, mailbox.ListOptions{Query: query, MaxResults: maxResults})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d messages:\n", len(msgs))
	for i, m := range msgs {
		fmt.Fprintf(&b, "%d. [%s] %s from %s (%s)\n", i+1, m.ID, m.Subject, m.From, m.Date)
		if m.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", m.Snippet)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
