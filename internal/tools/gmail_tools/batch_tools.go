package gmail_tools

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"

	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
	"github.com/teemow/xtrn-google-mcp/internal/logging"
	"github.com/teemow/xtrn-google-mcp/internal/tools/batch"
	"github.com/teemow/xtrn-google-mcp/internal/tools/common"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

// BatchToolNames lists the tools that run batch.Run and need a longer
// deadline than single-message tools.
var BatchToolNames = []string{"batch_modify_emails", "batch_delete_emails"}

func (ts *Toolset) registerBatchTools(s *mcpserver.MCPServer) {
	batchModifyTool := mcp.NewTool("batch_modify_emails",
		mcp.WithDescription("Modifies labels for multiple emails in batches for efficient bulk operations. Useful for organizing large numbers of emails at once."),
		mcp.WithTitleAnnotation("Batch modify Gmail email labels"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		stringArray("messageIds", "Array of email message IDs to modify (required, 1-1000 IDs)", mcp.Required()),
		stringArray("addLabelIds", "Array of label IDs to add to all specified emails (optional, e.g., ['IMPORTANT', 'WORK'])"),
		stringArray("removeLabelIds", "Array of label IDs to remove from all specified emails (optional, e.g., ['INBOX', 'UNREAD'])"),
		mcp.WithNumber("batchSize",
			mcp.Description("Number of emails to process in each batch (optional, default: 50, min: 1, max: 100)"),
			mcp.Min(1),
			mcp.Max(batch.MaxChunkSize),
		),
	)
	s.AddTool(batchModifyTool, ts.instrumented("batch_modify_emails", instrumentation.OperationBatch, ts.handleBatchModifyEmails))

	batchDeleteTool := mcp.NewTool("batch_delete_emails",
		mcp.WithDescription("Permanently deletes multiple emails in batches. Each message is deleted independently, so a failure for one ID does not stop the others."),
		mcp.WithTitleAnnotation("Batch delete Gmail emails"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		stringArray("messageIds", "Array of email message IDs to delete (required, 1-1000 IDs)", mcp.Required()),
		mcp.WithNumber("batchSize",
			mcp.Description("Number of emails to process in each batch (optional, default: 50, min: 1, max: 100)"),
			mcp.Min(1),
			mcp.Max(batch.MaxChunkSize),
		),
	)
	s.AddTool(batchDeleteTool, ts.instrumented("batch_delete_emails", instrumentation.OperationBatch, ts.handleBatchDeleteEmails))
}

// batchArgs reads the messageIds and batchSize arguments.
func batchArgs(args map[string]interface{}) ([]string, int, error) {
	ids, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		var pe *batch.ParseError
		if errors.As(err, &pe) {
			return nil, 0, &common.ArgError{Name: pe.Param, Reason: pe.Reason}
		}
		return nil, 0, err
	}
	if len(ids) > batch.MaxItems {
		return nil, 0, &common.ArgError{Name: "messageIds", Reason: "must contain at most 1000 IDs"}
	}
	size, err := common.OptionalInt(args, "batchSize", batch.DefaultChunkSize, 1, batch.MaxChunkSize)
	if err != nil {
		return nil, 0, err
	}
	return ids, int(size), nil
}

func (ts *Toolset) handleBatchModifyEmails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ids, size, err := batchArgs(args)
	if err != nil {
		return envelope.FromError(err), nil
	}
	add, err := common.OptionalStringSlice(args, "addLabelIds")
	if err != nil {
		return envelope.FromError(err), nil
	}
	remove, err := common.OptionalStringSlice(args, "removeLabelIds")
	if err != nil {
		return envelope.FromError(err), nil
	}
	if len(add) == 0 && len(remove) == 0 {
		return envelope.LLMError("At least one of addLabelIds or removeLabelIds must be provided"), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	report, err := ts.runBatch(ctx, "batch_modify_emails", instrumentation.OperationModify, ids, size,
		func(ctx context.Context, id string) error {
			_, err := svc.ModifyMessage(ctx, id, add, remove)
			return err
		})
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(report.Payload(batch.ModifySummary)), nil
}

func (ts *Toolset) handleBatchDeleteEmails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, size, err := batchArgs(request.GetArguments())
	if err != nil {
		return envelope.FromError(err), nil
	}

	svc, err := ts.client(ctx)
	if err != nil {
		return envelope.FromError(err), nil
	}

	report, err := ts.runBatch(ctx, "batch_delete_emails", instrumentation.OperationDelete, ids, size, svc.DeleteMessage)
	if err != nil {
		return envelope.FromError(err), nil
	}
	return envelope.JSON(report.Payload(batch.DeleteSummary)), nil
}

// runBatch executes op for every id with the configured per-item timeout and
// rate limit. Each item gets its own client span; the outcome is recorded on
// the tool span and in batch_items_total.
func (ts *Toolset) runBatch(ctx context.Context, tool, operation string, ids []string, size int, op batch.Operation) (*batch.Report, error) {
	logger := logging.WithOperation(logging.WithTool(ts.logger, tool), operation)

	item := func(ctx context.Context, id string) error {
		ctx, span := instrumentation.StartGoogleAPISpan(ctx, serviceName, operation,
			attribute.String("gmail.message_id", id))
		defer span.End()

		if err := op(ctx, id); err != nil {
			instrumentation.SetSpanError(span, err)
			return itemError(err)
		}
		return nil
	}

	opts := []batch.Option{
		batch.WithItemTimeout(ts.cfg.BatchItemTimeout),
		batch.WithLogger(logger),
	}
	if ts.limiter != nil {
		opts = append(opts, batch.WithLimiter(ts.limiter))
	}

	report, err := batch.Run(ctx, ids, size, item, opts...)
	if err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int(instrumentation.SpanAttrBatchSize, report.Total),
		attribute.Int(instrumentation.SpanAttrBatchFailed, report.Failed()),
	)
	ts.metrics().RecordBatchItems(ctx, operation, report.Successful(), report.Failed())

	logger.Info("batch complete",
		slog.String("trace_id", instrumentation.GetTraceID(ctx)),
		slog.Int("total", report.Total),
		slog.Int("successful", report.Successful()),
		slog.Int("failed", report.Failed()),
		slog.Int("fallbacks", report.Fallbacks),
	)
	return report, nil
}

// itemError reduces an upstream failure to the message Google returned,
// e.g. "Requested entity was not found.".
func itemError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	return err
}
