package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examiner_llm_requests_total",
			Help: "Total number of model calls by provider, purpose and outcome",
		},
		[]string{"provider", "purpose", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examiner_llm_request_duration_seconds",
			Help:    "Latency of model calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"provider", "purpose"},
	)

	tokenCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examiner_llm_tokens_total",
			Help: "Tokens consumed by model calls",
		},
		[]string{"provider", "direction"},
	)
)

func observeRequest(provider, purpose string, latency time.Duration, resp *Response, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	requestCounter.WithLabelValues(provider, purpose, outcome).Inc()
	requestDuration.WithLabelValues(provider, purpose).Observe(latency.Seconds())
	if resp != nil {
		tokenCounter.WithLabelValues(provider, "input").Add(float64(resp.Usage.InputTokens))
		tokenCounter.WithLabelValues(provider, "output").Add(float64(resp.Usage.OutputTokens))
	}
}
