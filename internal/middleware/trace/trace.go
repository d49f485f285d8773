package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	applog "invoicer/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the request ID in and out.
	HeaderRequestID = "X-Request-ID"
)

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *applog.StructuredLogger

	totalRequests int64
	clientErrors  int64
	serverErrors  int64
	totalMicros   int64
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	ClientErrors        int64
	ServerErrors        int64
	AverageResponseTime int64 // in microseconds
}

// NewMiddleware creates a trace middleware. A nil logger logs through the
// process default.
func NewMiddleware(extractIP func(*http.Request) string, logger *applog.StructuredLogger) *Middleware {
	if logger == nil {
		logger = applog.NewStructuredLogger(applog.New(applog.Config{
			Component: applog.ComponentTrace,
			Handler:   slog.Default().Handler(),
		}))
	}
	return &Middleware{
		extractIP: extractIP,
		logger:    logger,
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		// Keep a well-formed upstream ID so proxy and app logs line up.
		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)

		m.logger.LogHTTPStart(ctx, r, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.record(rw.statusCode, duration)
		m.logger.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

func (m *Middleware) record(status int, d time.Duration) {
	atomic.AddInt64(&m.totalRequests, 1)
	atomic.AddInt64(&m.totalMicros, d.Microseconds())
	switch {
	case status >= 500:
		atomic.AddInt64(&m.serverErrors, 1)
	case status >= 400:
		atomic.AddInt64(&m.clientErrors, 1)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
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

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	total := atomic.LoadInt64(&m.totalRequests)
	var avg int64
	if total > 0 {
		avg = atomic.LoadInt64(&m.totalMicros) / total
	}
	return Metrics{
		TotalRequests:       total,
		ClientErrors:        atomic.LoadInt64(&m.clientErrors),
		ServerErrors:        atomic.LoadInt64(&m.serverErrors),
		AverageResponseTime: avg,
	}
}

// LoggerMiddleware stores a request-scoped logger carrying the request ID,
// retrievable with applog.FromContext.
func LoggerMiddleware(base *applog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := base.With(
				applog.FieldRequestID, GetRequestID(ctx),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
			)
			ctx = context.WithValue(ctx, applog.LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
