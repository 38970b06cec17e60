package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
)

// Metrics records the server's OpenTelemetry instruments. A nil *Metrics or
// a zero value is a valid no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	oauthTokenRefreshTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	batchItemsTotal metric.Int64Counter
}

var (
	httpBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}
	apiBuckets  = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
	toolBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}
)

// instruments creates instruments on one meter and keeps the first error.
type instruments struct {
	meter metric.Meter
	err   error
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	if in.err != nil {
		return nil
	}
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		in.err = fmt.Errorf("failed to create %s counter: %w", name, err)
	}
	return c
}

func (in *instruments) histogram(name, desc string, buckets []float64) metric.Float64Histogram {
	if in.err != nil {
		return nil
	}
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		in.err = fmt.Errorf("failed to create %s histogram: %w", name, err)
	}
	return h
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	in := &instruments{meter: meter}
	m := &Metrics{
		httpRequestsTotal:   in.counter("http_requests_total", "Total number of HTTP requests", "{request}"),
		httpRequestDuration: in.histogram("http_request_duration_seconds", "HTTP request duration in seconds", httpBuckets),

		googleAPIOperationsTotal:   in.counter("google_api_operations_total", "Total number of Google API operations", "{operation}"),
		googleAPIOperationDuration: in.histogram("google_api_operation_duration_seconds", "Google API operation duration in seconds", apiBuckets),

		oauthTokenRefreshTotal: in.counter("oauth_token_refresh_total", "Total number of OAuth token refresh attempts", "{attempt}"),

		toolInvocationsTotal: in.counter("mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"),
		toolDuration:         in.histogram("mcp_tool_duration_seconds", "MCP tool execution duration in seconds", toolBuckets),

		batchItemsTotal: in.counter("batch_items_total", "Total number of items processed by batch tools", "{item}"),
	}
	if in.err != nil {
		return nil, in.err
	}
	return m, nil
}

// RecordHTTPRequest records a request served by the streamable HTTP transport.
// path should already be normalized with NormalizeHTTPPath.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation records one Google API backed tool call, e.g.
// service "gmail", operation "delete".
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthTokenRefresh counts a token refresh. result is one of the
// OAuthResult constants.
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}
	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool call.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordBatchItems adds the per-item outcome counts of one batch run.
func (m *Metrics) RecordBatchItems(ctx context.Context, operation string, succeeded, failed int) {
	if m == nil || m.batchItemsTotal == nil {
		return
	}
	for status, n := range map[string]int{StatusSuccess: succeeded, StatusError: failed} {
		if n == 0 {
			continue
		}
		m.batchItemsTotal.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String(attrOperation, operation),
			attribute.String(attrStatus, status),
		))
	}
}
