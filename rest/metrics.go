package rest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/botkit/metric"
)

// restMetrics holds Prometheus metrics for request outcomes. A nil
// receiver disables recording, so call sites never branch on it.
type restMetrics struct {
	requests    *prometheus.CounterVec
	retries     prometheus.Counter
	rateLimited prometheus.Counter
	duration    *prometheus.HistogramVec
}

func newRestMetrics(registry *metric.MetricsRegistry) *restMetrics {
	if registry == nil {
		return nil
	}

	m := &restMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "rest",
			Name:      "requests_total",
			Help:      "Total HTTP attempts by method and status",
		}, []string{"method", "status"}),

		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "rest",
			Name:      "retries_total",
			Help:      "Total re-attempts after a retryable failure",
		}),

		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "rest",
			Name:      "rate_limited_total",
			Help:      "Total 429 responses received",
		}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "botkit",
			Subsystem: "rest",
			Name:      "request_duration_seconds",
			Help:      "HTTP attempt round-trip duration",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method"}),
	}

	_ = registry.RegisterCounterVec("rest", "requests_total", m.requests)
	_ = registry.RegisterCounter("rest", "retries_total", m.retries)
	_ = registry.RegisterCounter("rest", "rate_limited_total", m.rateLimited)
	_ = registry.RegisterHistogramVec("rest", "request_duration", m.duration)

	return m
}

func (m *restMetrics) recordRequest(method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, status).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *restMetrics) recordRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *restMetrics) recordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
