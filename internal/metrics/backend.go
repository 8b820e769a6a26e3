package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Backend and page controller Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecdemo",
			Name:      "backend_requests_total",
			Help:      "Total number of requests sent to a demo backend",
		},
		[]string{"backend", "endpoint", "outcome"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vecdemo",
			Name:      "backend_request_duration_seconds",
			Help:      "Demo backend request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend", "endpoint"},
	)

	SupersededTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecdemo",
			Name:      "superseded_requests_total",
			Help:      "Responses dropped because a newer request of the same kind started",
		},
		[]string{"page", "kind"},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vecdemo",
			Name:      "sessions_active",
			Help:      "Browser sessions currently holding page state",
		},
	)

	SessionsEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vecdemo",
			Name:      "sessions_evicted_total",
			Help:      "Sessions dropped before their TTL because the store was full",
		},
	)
)

var registerOnce sync.Once

// RegisterBackendMetrics registers the backend and session metrics. Safe to call more than once.
func RegisterBackendMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(BackendRequestsTotal)
		prometheus.MustRegister(BackendRequestDuration)
		prometheus.MustRegister(SupersededTotal)
		prometheus.MustRegister(SessionsActive)
		prometheus.MustRegister(SessionsEvictedTotal)
	})
}
