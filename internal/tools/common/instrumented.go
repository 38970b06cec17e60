package common

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

// Instrumentation supplies the recorders used by InstrumentedToolHandler.
// Either may return nil.
type Instrumentation interface {
	Metrics() *instrumentation.Metrics
	AuditLogger() *instrumentation.AuditLogger
}

// InstrumentedToolHandler wraps handler with a tool span, tool and Google API
// metrics, and an audit log entry. serviceName and operation label the
// google_api_operations_total series; an empty serviceName skips it.
//
//	s.AddTool(tool, common.InstrumentedToolHandler("list_emails", "gmail", "list", sc, handler))
func InstrumentedToolHandler(
	toolName string,
	serviceName string,
	operation string,
	inst Instrumentation,
	handler server.ToolHandlerFunc,
) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var metrics *instrumentation.Metrics
		var auditLogger *instrumentation.AuditLogger
		if inst != nil {
			metrics = inst.Metrics()
			auditLogger = inst.AuditLogger()
		}

		requestID := RequestIDFromContext(ctx)
		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			attribute.String(instrumentation.SpanAttrRequestID, requestID),
			attribute.String(instrumentation.SpanAttrService, serviceName),
			attribute.String(instrumentation.SpanAttrOperation, operation),
		)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithRequestID(requestID).
			WithService(serviceName, operation).
			WithSpanContext(ctx)

		result, err := handler(ctx, request)

		switch {
		case err != nil:
			invocation.Complete(false, "", err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			errType := resultErrorType(result)
			invocation.Complete(false, errType, nil)
			instrumentation.SetSpanResult(span, true, errType)
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanResult(span, false, "")
		}

		status := invocation.Status()
		metrics.RecordToolInvocation(ctx, toolName, status, invocation.Duration)
		if serviceName != "" {
			metrics.RecordGoogleAPIOperation(ctx, serviceName, operation, status, invocation.Duration)
		}
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}

// resultErrorType returns the error_type of an ERROR result, or the message
// type for other failed results.
func resultErrorType(result *mcp.CallToolResult) string {
	h, err := envelope.ParseHeader(result)
	if err != nil {
		return ""
	}
	if h.ErrorType != "" {
		return string(h.ErrorType)
	}
	return string(h.MessageType)
}
