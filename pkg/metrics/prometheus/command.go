// Package prometheus implements the metrics interfaces on top of the
// global Prometheus registry.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/snapfiles/pkg/metrics"
)

// commandMetrics is the Prometheus implementation of metrics.CommandMetrics.
type commandMetrics struct {
	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	bytesTransferred *prometheus.CounterVec
	openHandles      prometheus.Gauge
}

// NewCommandMetrics creates a Prometheus-backed CommandMetrics.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewCommandMetrics() metrics.CommandMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopCommandMetrics()
	}
	return newCommandMetrics(metrics.GetRegistry())
}

func newCommandMetrics(reg prometheus.Registerer) *commandMetrics {
	return &commandMetrics{
		commandsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapfiles_commands_total",
				Help: "Total number of file commands by command and status",
			},
			[]string{"command", "status"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "snapfiles_command_duration_milliseconds",
				Help: "Duration of file commands in milliseconds",
				Buckets: []float64{
					0.1,  // 100µs
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
				},
			},
			[]string{"command"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapfiles_bytes_transferred_total",
				Help: "Total payload bytes read from or written to files",
			},
			[]string{"command", "direction"},
		),
		openHandles: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "snapfiles_open_handles",
				Help: "Current number of open file handles in the cache",
			},
		),
	}
}

func (m *commandMetrics) RecordCommand(command string, duration time.Duration, failed bool) {
	status := "success"
	if failed {
		status = "failure"
	}

	m.commandsTotal.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds() * 1000)
}

func (m *commandMetrics) RecordBytes(command string, direction string, bytes int) {
	m.bytesTransferred.WithLabelValues(command, direction).Add(float64(bytes))
}

func (m *commandMetrics) SetOpenHandles(count int) {
	m.openHandles.Set(float64(count))
}
