package cmd

import (
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolReferenceGroupsByPrefix(t *testing.T) {
	tools := []mcp.Tool{
		{
			Name:        "email_archive",
			Description: "Archive one or more emails.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"message_ids": map[string]interface{}{
						"type":        "string",
						"description": "Message ID or array of message IDs.",
					},
				},
				Required: []string{"message_ids"},
			},
		},
		{
			Name:        "agent_trigger",
			Description: "Run an agent immediately.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"agent_id": map[string]interface{}{"type": "string"},
				},
				Required: []string{"agent_id"},
			},
		},
		{
			Name:        "agents_list",
			Description: "List all agents.",
		},
	}

	markdown := toolReference(tools)

	assert.Contains(t, markdown, "# MCP Tools Reference")
	assert.Contains(t, markdown, "- [Agent Tools](#agent-tools)")
	assert.Contains(t, markdown, "- [Inbox Tools](#inbox-tools)")
	assert.NotContains(t, markdown, "## Other")

	// Sections keep their tools together and in name order.
	agentSection := strings.Index(markdown, "## Agent Tools")
	inboxSection := strings.Index(markdown, "## Inbox Tools")
	require.Greater(t, inboxSection, agentSection)
	trigger := strings.Index(markdown, "### agent_trigger")
	list := strings.Index(markdown, "### agents_list")
	archive := strings.Index(markdown, "### email_archive")
	assert.Greater(t, list, trigger)
	assert.Greater(t, archive, inboxSection)

	assert.Contains(t, markdown, "- `message_ids` (string, required): Message ID or array of message IDs.")
	assert.Contains(t, markdown, "- `agent_id` (string, required)")
}

func TestSectionTitle(t *testing.T) {
	assert.Equal(t, "Agent Tools", sectionTitle("agent_feedback"))
	assert.Equal(t, "Agent Tools", sectionTitle("agents_list"))
	assert.Equal(t, "Inbox Tools", sectionTitle("inbox_briefing"))
	assert.Equal(t, "Inbox Tools", sectionTitle("email_trash"))
	assert.Equal(t, "Other", sectionTitle("diagnostics_dump"))
}
