// Package trace assigns every request an id, logs its start and outcome,
// and keeps rolling counters by status class.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// ResponseHeader carries the request id back to the caller so client-side
// reports can be matched against the server log.
const ResponseHeader = "X-Request-Id"

// Middleware traces requests end to end.
type Middleware struct {
	clientIP func(*http.Request) string

	requests   atomic.Int64
	clientErrs atomic.Int64
	serverErrs atomic.Int64
	totalMs    atomic.Int64
}

// Metrics is a point-in-time snapshot of the trace counters.
type Metrics struct {
	Requests     int64
	ClientErrors int64
	ServerErrors int64
	AverageMs    int64
}

func NewMiddleware(clientIP func(*http.Request) string) *Middleware {
	return &Middleware{clientIP: clientIP}
}

// Middleware wraps next with request-id assignment and start/finish logging.
// The completion line's level follows the status: 4xx warns, 5xx errors.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := NewRequestID()

		ip := ""
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(ResponseHeader, requestID)

		// Session identity is deliberately absent here: the token header
		// must never end up in the log.
		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"client_ip", ip,
			"content_length", r.ContentLength)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		m.record(sw.status, elapsed)

		level := slog.LevelInfo
		switch {
		case sw.status >= 500:
			level = slog.LevelError
		case sw.status >= 400:
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Request finished",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", elapsed.Milliseconds(),
			"client_ip", ip)
	})
}

func (m *Middleware) record(status int, elapsed time.Duration) {
	m.requests.Add(1)
	m.totalMs.Add(elapsed.Milliseconds())
	switch {
	case status >= 500:
		m.serverErrs.Add(1)
	case status >= 400:
		m.clientErrs.Add(1)
	}
}

// GetMetrics returns a snapshot of the counters since start.
func (m *Middleware) GetMetrics() Metrics {
	n := m.requests.Load()
	snap := Metrics{
		Requests:     n,
		ClientErrors: m.clientErrs.Load(),
		ServerErrors: m.serverErrs.Load(),
	}
	if n > 0 {
		snap.AverageMs = m.totalMs.Load() / n
	}
	return snap
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// NewRequestID returns a short random id. Entropy failure falls back to the
// clock so a request is never left without an id.
func NewRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b[:])
}

// GetRequestID extracts the request id placed in ctx by Middleware.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
