package logging

import (
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/nerrad567/hirograph/config"
)

// Logger is the structured logger handed to the library's components.
//
// It embeds *slog.Logger, so the full slog API is available. Every record
// carries the library name and version; records from a Component-scoped
// logger additionally carry the component name, which is how REST, auth,
// and WebSocket output is told apart in a shared stream.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// levelNames maps config level strings to slog levels. Unknown strings
// fall back to info in New.
var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New builds a Logger from a logging config section, writing to the
// destination the config names (stderr, or stdout for anything else).
//
// Parameters:
//   - cfg: Logging configuration (level, format, output)
//   - version: Client version stamped on every record
//
// Returns:
//   - *Logger: Configured logger ready to hand to Connect
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return NewWriter(w, cfg, version)
}

// NewWriter is New with an explicit destination. It exists for callers
// that capture or redirect log output rather than writing to a process
// stream.
func NewWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	level, ok := levelNames[strings.ToLower(cfg.Level)]
	if !ok {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("library", "hirograph"),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a Logger that drops every record.
//
// It is the fallback when no logger is supplied: a library must not
// write to a process stream the caller never asked for.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(math.MaxInt32),
	}))}
}

// Component returns a child logger scoped to one library component.
// Every record it emits carries component=<name>.
//
// Example:
//
//	authLog := logger.Component("auth")
//	authLog.Warn("refresh failed, falling back to login", "error", err)
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// With returns a child logger carrying additional default attributes,
// given as alternating key-value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}
