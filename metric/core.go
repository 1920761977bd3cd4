package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all runtime-level metrics (not component-specific)
type Metrics struct {
	// Session metrics
	SessionStatus     *prometheus.GaugeVec
	EventsReceived    *prometheus.CounterVec
	EventsDispatched  *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec
	HeartbeatLatency  prometheus.Gauge

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all runtime metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "botkit",
				Subsystem: "session",
				Name:      "status",
				Help:      "Session status (0=closed, 1=connecting, 2=ready, 3=resuming, 4=failed)",
			},
			[]string{"session"},
		),

		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "botkit",
				Subsystem: "events",
				Name:      "received_total",
				Help:      "Total number of stream events received",
			},
			[]string{"type"},
		),

		EventsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "botkit",
				Subsystem: "events",
				Name:      "dispatched_total",
				Help:      "Total number of events delivered to handlers",
			},
			[]string{"type", "status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "botkit",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by component and type",
			},
			[]string{"component", "error_type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "botkit",
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		HeartbeatLatency: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "botkit",
				Subsystem: "heartbeat",
				Name:      "latency_seconds",
				Help:      "Latency between the last probe and its acknowledgement",
			},
		),

		// NATS metrics
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "botkit",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "botkit",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnection attempts",
			},
		),
	}
}

// RecordSessionStatus updates the session status gauge
func (m *Metrics) RecordSessionStatus(session string, status float64) {
	m.SessionStatus.WithLabelValues(session).Set(status)
}

// RecordEventReceived increments the received events counter
func (m *Metrics) RecordEventReceived(eventType string) {
	m.EventsReceived.WithLabelValues(eventType).Inc()
}

// RecordEventDispatched increments the dispatched events counter
func (m *Metrics) RecordEventDispatched(eventType, status string) {
	m.EventsDispatched.WithLabelValues(eventType, status).Inc()
}

// RecordError increments the error counter
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHealthCheck updates the health check status
func (m *Metrics) RecordHealthCheck(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordHeartbeatLatency updates the heartbeat latency gauge
func (m *Metrics) RecordHeartbeatLatency(latency time.Duration) {
	m.HeartbeatLatency.Set(latency.Seconds())
}

// SetNATSConnected updates the NATS connection status
func (m *Metrics) SetNATSConnected(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSReconnect increments the NATS reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
