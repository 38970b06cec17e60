// Package instrumentation wires OpenTelemetry metrics, tracing and audit
// logging for the MCP server.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds: streamable HTTP transport
//   - google_api_operations_total, google_api_operation_duration_seconds: by service and operation
//   - oauth_token_refresh_total: by result (success, invalid_grant, missing_fields, unknown)
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: by tool and status
//   - batch_items_total: per-item outcomes of batch tools
//
// Metrics are exported through Prometheus (served by the server package on a
// dedicated port), OTLP over HTTP, or stdout. Stdout exporters write to
// stderr so they never interleave with the stdio transport.
//
// # Configuration
//
// DefaultConfig reads INSTRUMENTATION_ENABLED, METRICS_EXPORTER,
// TRACING_EXPORTER, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE,
// OTEL_TRACES_SAMPLER_ARG, OTEL_SERVICE_NAME and AUDIT_LOGGING_ENABLED.
package instrumentation
