package config

import (
	"github.com/marmos91/snapfiles/pkg/metrics"
	promMetrics "github.com/marmos91/snapfiles/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// CommandMetrics is the collector for the dispatcher (never nil, uses noop if disabled)
	CommandMetrics metrics.CommandMetrics

	// HTTPMetrics is the collector for the HTTP adapter (never nil, uses noop if disabled)
	HTTPMetrics metrics.HTTPMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled the global Prometheus registry is initialized and
// Prometheus-backed collectors are returned along with the metrics server.
// Otherwise the server is nil and the collectors are no-ops.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			CommandMetrics: metrics.NewNoopCommandMetrics(),
			HTTPMetrics:    metrics.NewNoopHTTPMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Metrics.Port,
		}),
		CommandMetrics: promMetrics.NewCommandMetrics(),
		HTTPMetrics:    promMetrics.NewHTTPMetrics(),
	}
}
