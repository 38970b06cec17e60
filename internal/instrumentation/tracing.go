package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of spans created by this module.
const TracerName = "github.com/teemow/xtrn-google-mcp"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrRequestID = "mcp.request_id"
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"

	// SpanAttrBatchSize is the number of IDs in a batch tool call.
	SpanAttrBatchSize = "batch.size"
	// SpanAttrBatchFailed is the number of IDs that failed.
	SpanAttrBatchFailed = "batch.failed"
)

// StartToolSpan starts a server span named tool.<name>.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, attribute.String(SpanAttrTool, toolName))
	all = append(all, attrs...)

	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "tool."+toolName,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+2)
	all = append(all,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	)
	all = append(all, attrs...)

	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records err on span and marks it failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanResult marks span failed with msg when failed, otherwise Ok.
func SetSpanResult(span trace.Span, failed bool, msg string) {
	if failed {
		span.SetStatus(codes.Error, msg)
		return
	}
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the active trace ID or "".
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}
