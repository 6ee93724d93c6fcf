// Package logging provides structured logging utilities for the smartmail gateway.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "gmail.list_threads")
//	logger.Info("listing threads", logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("session created", logging.UserHash(email))
//
// # Security Considerations
//
//   - User emails are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly, only their length via SanitizeToken
//   - Attachment ids are truncated
package logging
