package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/dengue/pkg/logger"
	"github.com/okian/dengue/pkg/metrics"
)

// instrument records request count and latency for endpoint, and counts and
// logs every response with a 4xx or 5xx status.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(elapsed.Microseconds())/1e3)

		class := statusClass(rec.status)
		if class == "" {
			return
		}
		metrics.RecordErrorByComponent("http_"+endpoint, class)
		s.logger.Debug(r.Context(), "status request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Duration("elapsed", elapsed),
		)
	}
}

// statusClass names the error class of an HTTP status, or "" for success.
func statusClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= http.StatusBadRequest:
		return "client_error"
	default:
		return ""
	}
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
