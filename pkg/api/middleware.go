package api

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Aaron-1990/line-routing/pkg/logging"
)

type contextKey string

const (
	claimsContextKey    contextKey = "claims"
	requestIDContextKey contextKey = "request_id"
)

// panicRecoveryMiddleware recovers from panics in HTTP handlers so a
// broken handler cannot take the server down.
func (s *Server) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic in HTTP handler",
					logging.String("method", r.Method),
					logging.Path(r.URL.Path),
					logging.Any("panic", err),
					logging.String("stack", string(debug.Stack())),
				)
				s.respondError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware assigns every request an ID, honoring one the
// client already carries, and echoes it back as X-Request-ID.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request ID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.logger.Info("http request",
			logging.String("method", r.Method),
			logging.Path(r.URL.Path),
			logging.Int("status", wrapper.statusCode),
			logging.Latency(time.Since(start)),
			logging.RequestID(RequestIDFromContext(r.Context())),
		)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bodySizeLimitMiddleware caps request bodies. The Content-Length
// check rejects oversized requests before reading; MaxBytesReader
// covers chunked encoding and lying clients.
func (s *Server) bodySizeLimitMiddleware(next http.Handler, maxBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxBytes {
			s.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware tracks request counts, latencies and sizes.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		s.reg.HTTPRequestsInFlight.Inc()
		defer s.reg.HTTPRequestsInFlight.Dec()

		wrapper := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		// Label by route shape, not raw path, so model IDs do not
		// explode the label cardinality.
		route := routePattern(r.URL.Path)
		statusStr := strconv.Itoa(wrapper.statusCode)
		s.reg.RecordHTTPRequest(r.Method, route, statusStr, time.Since(start))
		s.reg.HTTPResponseSizeBytes.WithLabelValues(r.Method, route).Observe(float64(wrapper.bytesWritten))
	})
}

// routePattern collapses concrete model and area IDs back into the
// route template.
func routePattern(path string) string {
	if !strings.HasPrefix(path, "/routings/") {
		return path
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, "/routings/"), "/"), "/")
	switch len(parts) {
	case 1:
		return "/routings/{modelId}"
	case 2:
		switch parts[1] {
		case "validation", "order", "batches", "exists":
			return "/routings/{modelId}/" + parts[1]
		}
	case 3:
		if parts[1] == "areas" {
			return "/routings/{modelId}/areas/{areaCode}"
		}
	}
	return "/routings/invalid"
}

// statusResponseWriter wraps http.ResponseWriter to capture the status
// code.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// metricsResponseWriter additionally counts bytes written.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *metricsResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}
