package observability

import (
	"net/http"
	"os"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricLabels returns the service/instance labels every registered metric
// carries. Overridable via env for multi-instance deployments.
func MetricLabels() prometheus.Labels {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "cfcore"
	}
	instance := os.Getenv("INSTANCE_ID")
	if instance == "" {
		instance, _ = os.Hostname()
	}
	return prometheus.Labels{"service": service, "instance": instance}
}

// Registerer is the shared wrapped registerer packages register against.
var Registerer = prometheus.WrapRegistererWith(MetricLabels(), prometheus.DefaultRegisterer)

// StartMetricsServer starts a background HTTP server for Prometheus metrics.
// Optional; the embedding application decides whether to expose one.
func StartMetricsServer(addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		slog.Info("Starting metrics server", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
}
