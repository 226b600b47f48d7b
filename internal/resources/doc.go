// Package resources provides MCP resources for exposing read-only agent
// state. Resources are data sources MCP clients can fetch without invoking
// a tool, such as the agent department status and the VIP list.
package resources
