package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PreviewFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vrental_preview_fetch_total",
		Help: "The total number of listing page fetches by source and outcome",
	}, []string{"source", "outcome"})

	PreviewFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vrental_preview_fetch_duration_seconds",
		Help:    "Duration of listing page fetches including rate limiter waits",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"source"})

	PreviewItemPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vrental_preview_item_panics_total",
		Help: "Batch items whose fetch panicked and was recovered",
	})
)
