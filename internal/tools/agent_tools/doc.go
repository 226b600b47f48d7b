// Package agent_tools exposes the agent runtime over MCP: listing and
// inspecting agents, triggering runs, recording feedback, and direct
// inbox tools (briefing, search, bulk archive and trash). Write tools
// are suppressed in read-only mode.
package agent_tools
