package feedback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examiner_extractions_total",
			Help: "Feedback extractions by strategy and outcome status",
		},
		[]string{"strategy", "status"},
	)

	invalidHighlights = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examiner_invalid_highlights_total",
			Help: "Feedback records returned with a highlight outside full, partial, none",
		},
		[]string{"policy"},
	)
)
