// Package logging provides structured logging utilities for the xtrn Google
// MCP servers.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from LOG_LEVEL / LOG_FORMAT
//   - PII sanitization (email anonymization, token masking)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "gmail.batch_delete")
//	logger.Info("batch finished",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Debug("token refreshed",
//	    slog.String("access_token", logging.SanitizeToken(tok)))
//
// # Security Considerations
//
//   - Recipient addresses are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly
package logging
