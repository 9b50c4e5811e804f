// Package trace assigns request ids and logs each request's outcome.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type contextKey struct{}

const HeaderRequestID = "X-Request-ID"

type Middleware struct {
	extractIP func(*http.Request) string

	total    atomic.Int64
	inFlight atomic.Int64
	errors   atomic.Int64
	totalUs  atomic.Int64
}

type Metrics struct {
	TotalRequests  int64
	InFlight       int64
	ServerErrors   int64
	AverageLatency time.Duration
}

func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP}
}

// Middleware tags the request context and response with a request id and
// logs completion at a level matching the status class.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = NewRequestID()
		}
		ctx := WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, requestID)

		m.total.Add(1)
		m.inFlight.Add(1)
		defer m.inFlight.Add(-1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.totalUs.Add(duration.Microseconds())

		level := slog.LevelInfo
		switch {
		case rw.statusCode >= 500:
			level = slog.LevelError
			m.errors.Add(1)
		case rw.statusCode >= 400:
			level = slog.LevelWarn
		}

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		slog.Log(ctx, level, "HTTP request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	})
}

func (m *Middleware) GetMetrics() Metrics {
	total := m.total.Load()
	var avg time.Duration
	if total > 0 {
		avg = time.Duration(m.totalUs.Load()/total) * time.Microsecond
	}
	return Metrics{
		TotalRequests:  total,
		InFlight:       m.inFlight.Load(),
		ServerErrors:   m.errors.Load(),
		AverageLatency: avg,
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func NewRequestID() string {
	return "req_" + uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// RequestID returns the id stored by the middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
