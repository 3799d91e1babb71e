package log

import (
	"context"
	"log/slog"
	"net/http"

	"cattlevalue/internal/core"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context, falling back to
// the process default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestIDMiddleware adds the request id to the context logger.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger logs HTTP traffic and herd events with consistent fields.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// log prefers the request logger stored in ctx so its request id reaches
// every record.
func (sl *StructuredLogger) log(ctx context.Context, level slog.Level, msg string, fields LogFields) {
	logger := sl.logger
	if l, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		logger = l
	}
	if c, ok := fields[FieldComponent].(string); ok && c != logger.Component() {
		logger = logger.WithComponent(c)
	}
	logger.Log(ctx, level, msg, fields.ToSlice()...)
}

// LogHTTPStart logs the start of an HTTP request at debug level.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	sl.log(ctx, slog.LevelDebug, "HTTP request started", fields)
}

// LogHTTPEnd logs request completion; 4xx is a warning, 5xx an error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 500 {
		level = slog.LevelError
	} else if statusCode >= 400 {
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	sl.log(ctx, level, "HTTP request completed", fields)
}

// LogCattleChange logs a successful add, edit or remove.
func (sl *StructuredLogger) LogCattleChange(ctx context.Context, op string, c core.TrackedCattle, herdSize int, version uint64) {
	fields := NewFields().
		WithCattle(c.ID, c.Type, c.Weight, len(c.Values)).
		WithHerd(herdSize, version).
		WithOperation(op).
		WithComponent(ComponentHerd)
	sl.log(ctx, slog.LevelInfo, "Herd updated", fields)
}

func (sl *StructuredLogger) LogHerdCleared(ctx context.Context, removed int, version uint64) {
	fields := NewFields().
		WithHerd(0, version).
		WithOperation(OpClear).
		WithComponent(ComponentHerd)
	fields["removed"] = removed
	sl.log(ctx, slog.LevelInfo, "Herd cleared", fields)
}

func (sl *StructuredLogger) LogDatasetLoaded(ctx context.Context, source string, types int) {
	fields := NewFields().
		WithOperation(OpLoad).
		WithComponent(ComponentDataset)
	fields[FieldDatasetSource] = source
	fields[FieldDatasetTypes] = types
	sl.log(ctx, slog.LevelInfo, "Reference dataset loaded", fields)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation).WithComponent(component)
	sl.log(ctx, slog.LevelError, msg, fields)
}
