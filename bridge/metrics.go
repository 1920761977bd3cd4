package bridge

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/botkit/metric"
)

// bridgeMetrics counts publish outcomes per subject. A nil receiver
// disables recording.
type bridgeMetrics struct {
	published *prometheus.CounterVec
}

func newBridgeMetrics(registry *metric.MetricsRegistry) *bridgeMetrics {
	if registry == nil {
		return nil
	}

	m := &bridgeMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "bridge",
			Name:      "published_total",
			Help:      "Events republished to NATS by subject and outcome",
		}, []string{"subject", "outcome"}),
	}

	_ = registry.RegisterCounterVec("bridge", "published_total", m.published)
	return m
}

func (m *bridgeMetrics) recordPublish(subject, outcome string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(subject, outcome).Inc()
}
