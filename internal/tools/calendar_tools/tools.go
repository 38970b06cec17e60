package calendar_tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	calendar_v3 "google.golang.org/api/calendar/v3"

	"github.com/teemow/xtrn-google-mcp/internal/calendar"
	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
	"github.com/teemow/xtrn-google-mcp/internal/server"
	"github.com/teemow/xtrn-google-mcp/internal/tools/common"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

const serviceName = instrumentation.ServiceCalendar

// Service is the part of *calendar.Client the tools depend on.
type Service interface {
	CreateEvent(ctx context.Context, input calendar.EventInput) (*calendar_v3.Event, error)
	GetEvent(ctx context.Context, eventID string) (*calendar_v3.Event, error)
	PatchEvent(ctx context.Context, eventID string, input calendar.EventInput) (*calendar_v3.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	ListEvents(ctx context.Context, opts calendar.ListOptions) ([]*calendar_v3.Event, error)
}

// ServiceProvider returns a Service authorized for the current call.
type ServiceProvider func(ctx context.Context) (Service, error)

// Toolset holds the dependencies shared by the Calendar tool handlers.
type Toolset struct {
	service ServiceProvider
	inst    common.Instrumentation
	logger  *slog.Logger
}

// NewToolset creates a Toolset. inst may be nil.
func NewToolset(service ServiceProvider, inst common.Instrumentation, logger *slog.Logger) *Toolset {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolset{service: service, inst: inst, logger: logger}
}

// RegisterCalendarTools registers all Calendar tools backed by sc.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc == nil {
		return fmt.Errorf("server context is required")
	}
	provider := func(ctx context.Context) (Service, error) {
		client, err := sc.CalendarClient(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return NewToolset(provider, sc, sc.Logger()).Register(s, readOnly)
}

// Register adds the tools to s. create_event, update_event and delete_event
// are skipped when readOnly is set.
func (ts *Toolset) Register(s *mcpserver.MCPServer, readOnly bool) error {
	if s == nil {
		return fmt.Errorf("mcp server is required")
	}

	greetTool := mcp.NewTool("greet",
		mcp.WithDescription("A simple greeting tool to test the Google Calendar MCP server functionality and verify authentication is working properly"),
		mcp.WithTitleAnnotation("Greet user"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("name",
			mcp.Description("Name to greet (optional). If provided, will personalize the greeting message"),
		),
	)
	s.AddTool(greetTool, common.InstrumentedToolHandler("greet", "", instrumentation.OperationGreet, ts.inst, ts.handleGreet))

	ts.registerEventTools(s, readOnly)
	return nil
}

func (ts *Toolset) handleGreet(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _, err := common.OptionalString(request.GetArguments(), "name")
	if err != nil {
		return envelope.FromError(err), nil
	}
	if name != "" {
		return envelope.Response(fmt.Sprintf("Hello, %s! Welcome to the Google Calendar MCP server.", name)), nil
	}
	return envelope.Response("Hello! Welcome to the Google Calendar MCP server."), nil
}

func (ts *Toolset) client(ctx context.Context) (Service, error) {
	if ts.service == nil {
		return nil, fmt.Errorf("calendar service is not configured")
	}
	return ts.service(ctx)
}

func (ts *Toolset) instrumented(name, operation string, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return common.InstrumentedToolHandler(name, serviceName, operation, ts.inst, handler)
}
