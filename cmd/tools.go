package cmd

import (
	"fmt"
	"log/slog"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/xtrn-google-mcp/internal/config"
	"github.com/teemow/xtrn-google-mcp/internal/server"
	"github.com/teemow/xtrn-google-mcp/internal/tools/calendar_tools"
	"github.com/teemow/xtrn-google-mcp/internal/tools/common"
	"github.com/teemow/xtrn-google-mcp/internal/tools/gmail_tools"
)

// serverName returns the MCP implementation name announced for service.
func serverName(service string) string {
	return "xtrn-google-mcp-" + service
}

// newMCPServer creates the MCP server with the tool middleware chain.
// RecoveryMiddleware is outermost. A nil cfg disables tool deadlines.
func newMCPServer(service string, logger *slog.Logger, cfg *config.Config) *mcpserver.MCPServer {
	toolTimeout, perTool := toolTimeouts(cfg)
	return mcpserver.NewMCPServer(serverName(service), version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithToolHandlerMiddleware(common.RecoveryMiddleware(logger)),
		mcpserver.WithToolHandlerMiddleware(common.LoggingMiddleware(logger)),
		mcpserver.WithToolHandlerMiddleware(common.TimeoutMiddleware(toolTimeout, perTool)),
	)
}

// toolTimeouts returns the default tool deadline and the batch tool override.
func toolTimeouts(cfg *config.Config) (time.Duration, map[string]time.Duration) {
	if cfg == nil {
		return 0, nil
	}
	perTool := make(map[string]time.Duration, len(gmail_tools.BatchToolNames))
	for _, name := range gmail_tools.BatchToolNames {
		perTool[name] = cfg.BatchToolTimeout
	}
	return cfg.ToolTimeout, perTool
}

// registerTools adds the tools of the served backend.
func registerTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	switch service := sc.Service(); service {
	case config.ServiceGmail:
		if err := gmail_tools.RegisterGmailTools(mcpSrv, sc, readOnly); err != nil {
			return fmt.Errorf("failed to register Gmail tools: %w", err)
		}
	case config.ServiceCalendar:
		if err := calendar_tools.RegisterCalendarTools(mcpSrv, sc, readOnly); err != nil {
			return fmt.Errorf("failed to register Calendar tools: %w", err)
		}
	default:
		return fmt.Errorf("unsupported service %q (supported: gmail, calendar)", service)
	}
	return nil
}
