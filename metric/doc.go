// Package metric provides Prometheus-based metrics collection and HTTP server
// for bot runtime monitoring and observability.
//
// The package offers a centralized metrics registry managing both core runtime
// metrics (session status, event throughput, heartbeat latency, NATS health)
// and custom component-specific metrics. It includes an HTTP server exposing
// metrics in Prometheus format for monitoring system integration.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Runtime-level metrics automatically registered (Metrics type)
//  2. Component Registry: Extensible registration for component-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with health checks (Server type)
//
// This architecture separates infrastructure concerns (core metrics) from
// component concerns (REST client, gateway, cache, bridge metrics) while
// providing a unified metrics endpoint for monitoring systems.
//
// # Basic Usage
//
// Setting up metrics collection and HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil && err != http.ErrServerClosed {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core runtime metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordSessionStatus("main", 2)
//	coreMetrics.RecordEventReceived("MessageCreated")
//	coreMetrics.SetNATSConnected(true)
//
// The metrics server will expose Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at http://localhost:9090/health.
//
// # Core Metrics
//
// The package automatically registers core runtime metrics tracking:
//
//   - Session lifecycle: session_status (0=closed, 1=connecting, 2=ready, 3=resuming, 4=failed)
//   - Event flow: events_received_total, events_dispatched_total
//   - Heartbeat health: heartbeat_latency_seconds
//   - NATS connectivity: nats_connected, nats_reconnects_total
//   - Error tracking: errors_total
//
// Access core metrics through the registry:
//
//	coreMetrics := registry.CoreMetrics()
//
//	// Session lifecycle tracking
//	coreMetrics.RecordSessionStatus("main", 2) // 2 = ready
//
//	// Event flow metrics
//	coreMetrics.RecordEventReceived("MessageCreated")
//	coreMetrics.RecordEventDispatched("MessageCreated", "ok")
//
//	// Heartbeat health
//	coreMetrics.RecordHeartbeatLatency(42 * time.Millisecond)
//
//	// Error tracking
//	coreMetrics.RecordError("gateway", "decode")
//
// # Component-Specific Metrics
//
// Components register custom metrics through the registry:
//
//	requestCounter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "botkit_rest_requests_total",
//	    Help: "Total number of REST requests",
//	})
//	err := registry.RegisterCounter("rest", "requests_total", requestCounter)
//
// Vector metrics carry labels for multi-dimensional data:
//
//	statusVec := prometheus.NewCounterVec(
//	    prometheus.CounterOpts{
//	        Name: "botkit_rest_responses_total",
//	        Help: "REST responses by status class",
//	    },
//	    []string{"status"},
//	)
//	err := registry.RegisterCounterVec("rest", "responses_total", statusVec)
//	statusVec.WithLabelValues("2xx").Inc()
//
// # MetricsRegistrar Interface
//
// Components accept the MetricsRegistrar interface for dependency injection,
// which enables testing with mock registrars and keeps coupling loose:
//
//	func NewClient(metrics metric.MetricsRegistrar) *Client {
//	    counter := prometheus.NewCounter(prometheus.CounterOpts{
//	        Name: "botkit_rest_requests_total",
//	        Help: "Total REST requests",
//	    })
//	    metrics.RegisterCounter("rest", "requests_total", counter)
//	    ...
//	}
//
// A nil registrar disables metrics cleanly: components treat a nil registry
// as "no metrics" and skip recording.
//
// # Thread Safety
//
// All registry operations are thread-safe:
//   - Registration methods use mutex protection
//   - Metric recording is lock-free (Prometheus guarantee)
//   - CoreMetrics() returns a thread-safe shared instance
//   - PrometheusRegistry() is safe for concurrent access
//
// # Error Handling
//
// Registration methods return classified errors for:
//
//   - Duplicate registration: attempting to register the same metric name twice
//   - Prometheus conflicts: internal Prometheus registration failures
//
// The Server.Start() method returns errors for:
//
//   - Server already running
//   - Nil registry
//   - HTTP server failures (port in use, permission denied)
//
// All core metrics use the namespace "botkit" with per-concern subsystems:
//   - botkit_session_status{session="..."}
//   - botkit_events_received_total{type="..."}
//   - botkit_nats_connected
package metric
