package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/xtrn-google-mcp/internal/config"
	"github.com/teemow/xtrn-google-mcp/internal/server"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
		service    string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for the MCP tools of one service.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := generateDocs(service)
			if err != nil {
				return err
			}
			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), markdown)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&service, "service", config.ServiceGmail, "Service to document: gmail or calendar")

	return cmd
}

// generateDocs registers every tool of service (write tools included) and
// renders them. No credentials are needed since no tool is called.
func generateDocs(service string) (string, error) {
	serverContext, err := server.NewServerContext(context.Background(), &config.Config{}, service)
	if err != nil {
		return "", fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := newMCPServer(service, serverContext.Logger(), nil)
	if err := registerTools(mcpSrv, serverContext, false); err != nil {
		return "", err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	return generateToolsMarkdown(service, tools), nil
}

func generateToolsMarkdown(service string, tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s MCP Tools Reference\n\n", serviceTitle(service)))
	sb.WriteString(fmt.Sprintf("Tools available when running `xtrn-google-mcp serve --service %s`.\n\n", service))
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")
	sb.WriteString("Every result starts with a JSON header entry carrying `xtrn_message_type` ")
	sb.WriteString("(`RESPONSE`, `ERROR` or `LLM_ERROR_RESPONSE`). Tools marked as write tools are ")
	sb.WriteString("not registered with `--read-only`.\n\n")

	toolsByCategory := groupToolsByCategory(tools)
	categories := []string{categoryReadOnly, categoryWrite}

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		if len(toolsByCategory[category]) == 0 {
			continue
		}
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		if len(categoryTools) == 0 {
			continue
		}
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))
		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

const (
	categoryReadOnly = "Read-only Tools"
	categoryWrite    = "Write Tools"
)

func serviceTitle(service string) string {
	switch service {
	case config.ServiceGmail:
		return "Gmail"
	case config.ServiceCalendar:
		return "Google Calendar"
	default:
		return service
	}
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := categoryWrite
		if isReadOnly(tool) {
			category = categoryReadOnly
		}
		categories[category] = append(categories[category], tool)
	}
	return categories
}

func isReadOnly(tool mcp.Tool) bool {
	return tool.Annotations.ReadOnlyHint != nil && *tool.Annotations.ReadOnlyHint
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}
	if !isReadOnly(tool) && tool.Annotations.DestructiveHint != nil && *tool.Annotations.DestructiveHint {
		sb.WriteString("**Destructive:** this tool permanently removes data.\n\n")
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]interface{})
			if !ok {
				continue
			}

			requiredStr := "optional"
			if contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}
			propType := getPropertyType(propMap)

			sb.WriteString(fmt.Sprintf("- `%s` (%s, %s): ", name, propType, requiredStr))
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", propType))
			}
			if enum := enumValues(propMap); len(enum) > 0 {
				sb.WriteString(fmt.Sprintf(" One of: `%s`.", strings.Join(enum, "`, `")))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func enumValues(prop map[string]interface{}) []string {
	switch enum := prop["enum"].(type) {
	case []string:
		return enum
	case []interface{}:
		out := make([]string, 0, len(enum))
		for _, v := range enum {
			out = append(out, fmt.Sprint(v))
		}
		return out
	default:
		return nil
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
