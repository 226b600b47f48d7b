// Package cmd wires the inboxpilot command line. The root command defaults
// to serve, which runs the agent scheduler and REST API; mcp exposes the
// agent tools over stdio; run, agents, feedback, vip, and auth cover
// one-off operation and setup.
package cmd
