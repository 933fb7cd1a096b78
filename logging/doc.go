// Package logging provides the structured logger shared by the library's
// components and the CLI.
//
// This package wraps Go's standard log/slog so every record carries the
// library name and version, and so REST, auth, and WebSocket output can be
// told apart with Component scoping.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Component-scoped child loggers (component=auth, component=ws, ...)
//   - Level-based filtering (debug, info, warn, error)
//   - Silent Discard fallback when the caller supplies no logger
//
// # Configuration
//
// Logging is configured via the LoggingConfig in the client config file:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	wsLog := logger.Component("ws")
//	wsLog.Info("session started", "uri", uri)
//
// A library embedded in a host application must stay quiet unless asked:
// when Connect receives a nil logger it uses Discard, never a process
// stream.
//
// # Security
//
// Never log tokens, passwords, or client secrets.
// Use field redaction for sensitive data:
//
//	logger.Info("token acquired", "subject", claims.Subject)
package logging
