package log

import (
	"context"
	"net/http"
)

type contextKey string

const loggerKey contextKey = "logger"

// Middleware stores the logger in each request's context so handlers log
// through the request's enriched logger instead of the process default.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), loggerKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the request logger, or an http-tagged default when the
// context carries none.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	return New(Config{Component: ComponentHTTP})
}

// RequestIDMiddleware rebinds the context logger with the request id so every
// handler line correlates with the trace log.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			ctx := context.WithValue(r.Context(), loggerKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger emits the fixed-shape business events.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogEntryCreated(ctx context.Context, entryID int64, title string, price int64, category string) {
	fields := NewFields().
		WithEntry(entryID, title, price, category).
		WithOperation(OpCreate)
	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Entry created", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogEntryDeleted(ctx context.Context, entryID, userID int64) {
	fields := NewFields().WithOperation(OpDelete)
	fields[FieldEntryID] = entryID
	fields[FieldUserID] = userID
	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Entry deleted", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	sl.logger.ErrorContext(ctx, msg, fields.WithError(err).WithOperation(operation).ToSlice()...)
}
