// Package batch applies a mailbox action to one or many message IDs and
// reports per-message outcomes, keeping partial failures visible to the
// MCP client instead of aborting the whole request.
package batch
