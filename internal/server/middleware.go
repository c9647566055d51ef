package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examiner_http_requests_total",
			Help: "HTTP requests by path and status code",
		},
		[]string{"path", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examiner_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withRequestContext tags each request with an ID, puts a request-scoped
// logger in its context and records metrics once it completes.
func withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		log := clog.FromContext(r.Context()).With("request_id", id)
		ctx := clog.WithLogger(r.Context(), log)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		path := metricPath(r.URL.Path)
		httpRequests.WithLabelValues(path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(path).Observe(elapsed.Seconds())

		log.With("method", r.Method).
			With("path", r.URL.Path).
			With("code", rec.status).
			With("duration_ms", elapsed.Milliseconds()).
			Debug("request completed")
	})
}

// metricPath bounds label cardinality to the known routes.
func metricPath(p string) string {
	switch p {
	case MarkAnswerPath, "/healthz", "/metrics":
		return p
	}
	return "other"
}
