package cfapi

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/krypticgrind/cfcore/pkg/observability"
)

var (
	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfapi_request_total",
			Help: "Total number of Codeforces API calls by final outcome",
		},
		[]string{"endpoint", "status"},
	)

	requestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cfapi_request_duration_seconds",
			Help:    "End-to-end Codeforces API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"endpoint"},
	)

	retryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfapi_retry_total",
			Help: "Total number of per-attempt retries by failure reason",
		},
		[]string{"endpoint", "reason"},
	)

	mirrorFailoverTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfapi_mirror_failover_total",
			Help: "Total number of failovers to a backup mirror",
		},
		[]string{"mirror"},
	)

	cacheFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfapi_cache_fallback_total",
			Help: "Cache fallback lookups after a failed fetch by outcome",
		},
		[]string{"endpoint", "outcome"},
	)
)

func init() {
	observability.Registerer.MustRegister(
		requestTotal,
		requestDurationSeconds,
		retryTotal,
		mirrorFailoverTotal,
		cacheFallbackTotal,
	)
}
