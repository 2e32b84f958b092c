package previewapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts batch requests by HTTP status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preview_api_requests_total",
		Help: "Total number of batch preview requests",
	}, []string{"status"})

	// BatchSize records how many valid items a request carried after capping.
	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "preview_api_batch_size",
		Help:    "Number of valid items per batch preview request",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 6},
	})

	// TrackedClients is the number of client rate limiters kept in memory.
	TrackedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "preview_api_tracked_clients",
		Help: "Number of client IPs with a live rate limiter",
	})

	// LatencyHistogram measures request latency.
	LatencyHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "preview_api_latency_seconds",
		Help:    "Latency of batch preview requests",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	})
)
