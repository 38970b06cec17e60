package gmail_tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	gmail_v1 "google.golang.org/api/gmail/v1"
	"golang.org/x/time/rate"

	"github.com/teemow/xtrn-google-mcp/internal/config"
	"github.com/teemow/xtrn-google-mcp/internal/gmail"
	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
	"github.com/teemow/xtrn-google-mcp/internal/server"
	"github.com/teemow/xtrn-google-mcp/internal/tools/common"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

const serviceName = instrumentation.ServiceGmail

// Service is the part of *gmail.Client the tools depend on.
type Service interface {
	ListMessages(ctx context.Context, opts gmail.ListOptions) (*gmail_v1.ListMessagesResponse, error)
	GetMessage(ctx context.Context, messageID, format string) (*gmail_v1.Message, error)
	SendMessage(ctx context.Context, raw string) (*gmail_v1.Message, error)
	CreateDraft(ctx context.Context, raw, threadID string) (*gmail_v1.Draft, error)
	ModifyMessage(ctx context.Context, messageID string, add, remove []string) (*gmail_v1.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error

	ListLabels(ctx context.Context) (*gmail_v1.ListLabelsResponse, error)
	CreateLabel(ctx context.Context, label *gmail_v1.Label) (*gmail_v1.Label, error)
	PatchLabel(ctx context.Context, labelID string, label *gmail_v1.Label) (*gmail_v1.Label, error)
	DeleteLabel(ctx context.Context, labelID string) error
	FindLabelByName(ctx context.Context, name string) (*gmail_v1.Label, error)

	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
	AttachmentFilename(ctx context.Context, messageID, attachmentID string) (string, error)
}

// ServiceProvider returns a Service authorized for the current call.
type ServiceProvider func(ctx context.Context) (Service, error)

// Toolset holds the dependencies shared by the Gmail tool handlers.
type Toolset struct {
	service ServiceProvider
	cfg     *config.Config
	inst    common.Instrumentation
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewToolset creates a Toolset. cfg supplies the batch and attachment
// settings; inst may be nil.
func NewToolset(service ServiceProvider, cfg *config.Config, inst common.Instrumentation, logger *slog.Logger) *Toolset {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ts := &Toolset{
		service: service,
		cfg:     cfg,
		inst:    inst,
		logger:  logger,
	}
	if cfg.BatchRateLimit > 0 {
		burst := cfg.BatchRateBurst
		if burst < 1 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(cfg.BatchRateLimit), burst)
	}
	return ts
}

// RegisterGmailTools registers all Gmail tools backed by sc.
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc == nil {
		return fmt.Errorf("server context is required")
	}
	provider := func(ctx context.Context) (Service, error) {
		client, err := sc.GmailClient(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return NewToolset(provider, sc.Config(), sc, sc.Logger()).Register(s, readOnly)
}

// Register adds the tools to s. Tools that change the mailbox are skipped
// when readOnly is set.
func (ts *Toolset) Register(s *mcpserver.MCPServer, readOnly bool) error {
	if s == nil {
		return fmt.Errorf("mcp server is required")
	}

	greetTool := mcp.NewTool("greet",
		mcp.WithDescription("A simple greeting tool to test the Gmail MCP server functionality and verify authentication is working properly"),
		mcp.WithTitleAnnotation("Greet user"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("name",
			mcp.Description("Name to greet (optional, 1-100 characters). If provided, will personalize the greeting message"),
			mcp.MinLength(1),
			mcp.MaxLength(100),
		),
	)
	s.AddTool(greetTool, common.InstrumentedToolHandler("greet", "", instrumentation.OperationGreet, ts.inst, ts.handleGreet))

	ts.registerEmailTools(s, readOnly)
	if !readOnly {
		ts.registerBatchTools(s)
	}
	ts.registerLabelTools(s, readOnly)
	if !readOnly {
		ts.registerAttachmentTools(s)
	}

	return nil
}

func (ts *Toolset) handleGreet(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, ok, err := common.OptionalString(request.GetArguments(), "name")
	if err != nil {
		return envelope.FromError(err), nil
	}
	if ok && len([]rune(name)) > 100 {
		return envelope.FromError(&common.ArgError{Name: "name", Reason: "must be at most 100 characters"}), nil
	}
	if ok && name != "" {
		return envelope.Response(fmt.Sprintf("Hello, %s! Welcome to the Gmail MCP server.", name)), nil
	}
	return envelope.Response("Hello! Welcome to the Gmail MCP server."), nil
}

// client resolves the Service for a call.
func (ts *Toolset) client(ctx context.Context) (Service, error) {
	if ts.service == nil {
		return nil, fmt.Errorf("gmail service is not configured")
	}
	return ts.service(ctx)
}

func (ts *Toolset) metrics() *instrumentation.Metrics {
	if ts.inst == nil {
		return nil
	}
	return ts.inst.Metrics()
}

// instrumented wraps a handler for a Gmail API tool.
func (ts *Toolset) instrumented(name, operation string, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return common.InstrumentedToolHandler(name, serviceName, operation, ts.inst, handler)
}
