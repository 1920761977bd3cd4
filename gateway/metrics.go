package gateway

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/botkit/metric"
)

// gatewayMetrics holds Prometheus metrics for the stream connection.
// A nil receiver disables recording, so call sites never branch on it.
type gatewayMetrics struct {
	connects   *prometheus.CounterVec
	reconnects prometheus.Counter
	frames     *prometheus.CounterVec
	probes     *prometheus.CounterVec
	stalls     prometheus.Counter
	connected  prometheus.Gauge
}

func newGatewayMetrics(registry *metric.MetricsRegistry) *gatewayMetrics {
	if registry == nil {
		return nil
	}

	m := &gatewayMetrics{
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "gateway",
			Name:      "connects_total",
			Help:      "Connection attempts by outcome",
		}, []string{"outcome"}),

		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "gateway",
			Name:      "reconnects_total",
			Help:      "Reconnect cycles after a dropped connection",
		}),

		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "gateway",
			Name:      "frames_total",
			Help:      "Frames read from the stream by opcode",
		}, []string{"op"}),

		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "gateway",
			Name:      "heartbeat_probes_total",
			Help:      "Heartbeat probes by outcome",
		}, []string{"outcome"}),

		stalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "gateway",
			Name:      "heartbeat_stalls_total",
			Help:      "Heartbeat ack waits that exceeded the stall threshold",
		}),

		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "botkit",
			Subsystem: "gateway",
			Name:      "connected",
			Help:      "1 while the stream connection is established",
		}),
	}

	_ = registry.RegisterCounterVec("gateway", "connects_total", m.connects)
	_ = registry.RegisterCounter("gateway", "reconnects_total", m.reconnects)
	_ = registry.RegisterCounterVec("gateway", "frames_total", m.frames)
	_ = registry.RegisterCounterVec("gateway", "heartbeat_probes_total", m.probes)
	_ = registry.RegisterCounter("gateway", "heartbeat_stalls_total", m.stalls)
	_ = registry.RegisterGauge("gateway", "connected", m.connected)

	return m
}

func (m *gatewayMetrics) recordConnect(outcome string) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(outcome).Inc()
}

func (m *gatewayMetrics) recordReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *gatewayMetrics) recordFrame(op string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(op).Inc()
}

func (m *gatewayMetrics) recordProbe(outcome string) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(outcome).Inc()
}

func (m *gatewayMetrics) recordStall() {
	if m == nil {
		return
	}
	m.stalls.Inc()
}

func (m *gatewayMetrics) setConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}
