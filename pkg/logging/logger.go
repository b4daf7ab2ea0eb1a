package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "requestID"

// LevelTrace sits below debug and covers per-frame engine chatter.
const LevelTrace = slog.LevelDebug - 4

var (
	level  = new(slog.LevelVar)
	logger *slog.Logger
)

func init() {
	// Compact console output until SetJSONOutput is called
	logger = slog.New(NewCompactHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// SetLevel changes the logging level of every logger, including those from New.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetJSONOutput switches to JSON format output
func SetJSONOutput(l slog.Level) {
	level.Set(l)
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// SetOutput redirects compact output, mainly for tests.
func SetOutput(w io.Writer) {
	logger = slog.New(NewCompactHandler(w, &slog.HandlerOptions{Level: level}))
}

// New returns a logger tagged with a component name. It shares the package level
// but binds the handler active at call time.
func New(component string) *slog.Logger {
	return logger.With("component", component)
}

// ParseLevel resolves the configured verbosity. An explicit name wins over the
// count of -v flags.
func ParseLevel(verbosity string, verboseCount int) (slog.Level, error) {
	switch strings.ToLower(verbosity) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "":
	default:
		return slog.LevelInfo, fmt.Errorf("unknown verbosity %q", verbosity)
	}

	switch {
	case verboseCount >= 2:
		return LevelTrace, nil
	case verboseCount == 1:
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, nil
	}
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func withRequestID(ctx context.Context, args []any) []any {
	if requestID := GetRequestID(ctx); requestID != "" {
		return append([]any{"requestID", requestID}, args...)
	}
	return args
}

// Trace logs at TRACE level (per-tick detail)
func Trace(msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// TraceContext logs at TRACE level with context
func TraceContext(ctx context.Context, msg string, args ...any) {
	logger.Log(ctx, LevelTrace, msg, withRequestID(ctx, args)...)
}

// Debug logs at DEBUG level (rebuilds, collapse changes)
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// DebugContext logs at DEBUG level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	logger.DebugContext(ctx, msg, withRequestID(ctx, args)...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// InfoContext logs at INFO level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	logger.InfoContext(ctx, msg, withRequestID(ctx, args)...)
}

// Warn logs at WARN level (degraded but recoverable)
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// WarnContext logs at WARN level with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	logger.WarnContext(ctx, msg, withRequestID(ctx, args)...)
}

// Error logs at ERROR level (failed operations)
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

// ErrorContext logs at ERROR level with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	logger.ErrorContext(ctx, msg, withRequestID(ctx, args)...)
}

// Fatal logs at ERROR level and exits
func Fatal(msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
