package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/covspect/covspect/internal/errdefs"
)

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(buf []byte) (int, error) {
	if !sw.written {
		sw.statusCode = http.StatusOK
		sw.written = true
	}
	return sw.ResponseWriter.Write(buf)
}

// instrument tags each request with an id, records request metrics and
// writes an access log line.
func (s *Server) instrument(operation string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		sw := &statusWriter{ResponseWriter: w}
		next(sw, r)

		elapsed := time.Since(start)
		s.metrics.Requests.WithLabelValues(operation, strconv.Itoa(sw.statusCode)).Inc()
		s.metrics.RequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
		slog.Info("request served",
			"id", requestID,
			"operation", operation,
			"path", r.URL.Path,
			"status", sw.statusCode,
			"duration_ms", elapsed.Milliseconds())
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a service error to its HTTP status. Anything without
// a known kind is a server fault and gets logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errdefs.IsNotFound(err):
		status = http.StatusNotFound
	case errdefs.IsPathNotFound(err), errdefs.IsInvalidFilter(err):
		status = http.StatusBadRequest
	case errdefs.IsStoreUnavailable(err):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(r.Context(), w, status, errorResponse{Error: err.Error()})
}

// writeJSON encodes value to the response writer with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
