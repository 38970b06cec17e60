package common

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/teemow/xtrn-google-mcp/internal/logging"
	"github.com/teemow/xtrn-google-mcp/internal/tools/envelope"
)

type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID set by LoggingMiddleware, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// LoggingMiddleware assigns every tool call a request ID and logs its outcome.
func LoggingMiddleware(logger *slog.Logger) server.ToolHandlerMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			requestID := uuid.New().String()
			ctx = WithRequestID(ctx, requestID)
			log := logger.With(logging.RequestID(requestID), logging.Tool(req.Params.Name))

			log.Debug("tool call started")
			start := time.Now()

			result, err := next(ctx, req)
			durationMS := time.Since(start).Milliseconds()

			switch {
			case err != nil:
				log.Error("tool call failed", "duration_ms", durationMS, logging.Err(err))
			case result != nil && result.IsError:
				h, _ := envelope.ParseHeader(result)
				log.Warn("tool call returned error", "duration_ms", durationMS,
					"message_type", string(h.MessageType), "error_type", string(h.ErrorType))
			default:
				log.Info("tool call completed", "duration_ms", durationMS,
					"result_bytes", len(envelope.PayloadText(result)))
			}
			return result, err
		}
	}
}

// TimeoutMiddleware bounds every tool call with a deadline. perTool replaces
// timeout for the named tools. A zero timeout disables the bound.
func TimeoutMiddleware(timeout time.Duration, perTool map[string]time.Duration) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			d := timeout
			if override, ok := perTool[req.Params.Name]; ok {
				d = override
			}
			if d <= 0 {
				return next(ctx, req)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// RecoveryMiddleware converts a handler panic into an UNKNOWN_ERROR result.
func RecoveryMiddleware(logger *slog.Logger) server.ToolHandlerMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("tool handler panicked",
						logging.Tool(req.Params.Name),
						logging.RequestID(RequestIDFromContext(ctx)),
						"panic", r,
						"stack", string(debug.Stack()))
					result = envelope.Error(envelope.ErrorTypeUnknown, envelope.UnknownErrorMessage)
					err = nil
				}
			}()
			return next(ctx, req)
		}
	}
}
