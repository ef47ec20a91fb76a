package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/snapfiles/pkg/metrics"
)

// httpMetrics is the Prometheus implementation of metrics.HTTPMetrics.
type httpMetrics struct {
	requestsInFlight prometheus.Gauge
	responsesTotal   *prometheus.CounterVec
	responseSize     prometheus.Histogram
	rateLimited      prometheus.Counter
}

// NewHTTPMetrics creates a Prometheus-backed HTTPMetrics.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewHTTPMetrics() metrics.HTTPMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopHTTPMetrics()
	}
	return newHTTPMetrics(metrics.GetRegistry())
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	return &httpMetrics{
		requestsInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "snapfiles_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),
		responsesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapfiles_http_responses_total",
				Help: "Total number of HTTP responses by method and status code",
			},
			[]string{"method", "code"},
		),
		responseSize: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "snapfiles_http_response_size_bytes",
				Help: "Distribution of HTTP response body sizes",
				Buckets: []float64{
					64,      // 64B
					1024,    // 1KB
					65536,   // 64KB
					1048576, // 1MB
				},
			},
		),
		rateLimited: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "snapfiles_http_rate_limited_total",
				Help: "Total number of HTTP requests rejected by the rate limiter",
			},
		),
	}
}

func (m *httpMetrics) RecordRequestStart() {
	m.requestsInFlight.Inc()
}

func (m *httpMetrics) RecordRequestEnd() {
	m.requestsInFlight.Dec()
}

func (m *httpMetrics) RecordResponse(method string, status int, bytes int) {
	m.responsesTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.responseSize.Observe(float64(bytes))
}

func (m *httpMetrics) RecordRateLimited() {
	m.rateLimited.Inc()
}
