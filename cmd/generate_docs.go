package cmd

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/tools/agent_tools"
)

// toolSections orders the reference by tool name prefix. Tools that match
// no prefix land in the final section.
var toolSections = []struct {
	title    string
	prefixes []string
}{
	{"Agent Tools", []string{"agent_", "agents_"}},
	{"Inbox Tools", []string{"inbox_", "email_"}},
	{"Other", nil},
}

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	// Registration only stores tool definitions and handler closures, so an
	// app context with no collaborators is enough for doc generation.
	app := server.NewAppContext(context.Background(), server.AppContextConfig{})
	defer func() {
		_ = app.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("inboxpilot", version,
		mcpserver.WithToolCapabilities(true),
	)

	// Register in write mode so the docs cover every tool.
	if err := agent_tools.RegisterAgentTools(mcpSrv, app, false); err != nil {
		return fmt.Errorf("register agent tools: %w", err)
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	markdown := toolReference(tools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

// toolReference renders the full markdown reference: a table of contents
// followed by one section per tool category.
func toolReference(tools []mcp.Tool) string {
	slices.SortFunc(tools, func(a, b mcp.Tool) int {
		return strings.Compare(a.Name, b.Name)
	})

	sections := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		title := sectionTitle(tool.Name)
		sections[title] = append(sections[title], tool)
	}

	var sb strings.Builder
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document lists every tool inboxpilot exposes when running as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is generated from the tool definitions.\n\n")

	sb.WriteString("## Table of Contents\n\n")
	for _, section := range toolSections {
		if len(sections[section.title]) == 0 {
			continue
		}
		anchor := strings.ToLower(strings.ReplaceAll(section.title, " ", "-"))
		fmt.Fprintf(&sb, "- [%s](#%s)\n", section.title, anchor)
	}
	sb.WriteString("\n")

	for _, section := range toolSections {
		matched := sections[section.title]
		if len(matched) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", section.title)
		for _, tool := range matched {
			sb.WriteString(toolEntry(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func sectionTitle(name string) string {
	for _, section := range toolSections {
		for _, prefix := range section.prefixes {
			if strings.HasPrefix(name, prefix) {
				return section.title
			}
		}
	}
	return "Other"
}

// toolEntry renders one tool: name, description, and its arguments with
// type and required/optional markers.
func toolEntry(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	if len(tool.InputSchema.Properties) == 0 {
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")
	for _, name := range slices.Sorted(maps.Keys(tool.InputSchema.Properties)) {
		propMap, ok := tool.InputSchema.Properties[name].(map[string]interface{})
		if !ok {
			continue
		}

		propType := "any"
		if t, ok := propMap["type"].(string); ok {
			propType = t
		}
		requirement := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			requirement = "required"
		}

		fmt.Fprintf(&sb, "- `%s` (%s, %s)", name, propType, requirement)
		if desc, ok := propMap["description"].(string); ok && desc != "" {
			fmt.Fprintf(&sb, ": %s", desc)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
