// Package health provides health monitoring for bot runtime components
// with thread-safe status tracking and aggregation.
//
// The health package enables tracking the health status of individual components
// (REST client, gateway session, heartbeat, NATS bridge) and aggregating
// runtime-wide health information for monitoring, alerting, and operational visibility.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: component operating normally
//   - Degraded: component operating with reduced functionality
//   - Unhealthy: component not functioning properly
//
// This three-state model enables nuanced health reporting. A gateway whose
// heartbeat latency exceeds its threshold is degraded but still serving
// traffic, while a gateway whose connection dropped is unhealthy and triggers
// a reconnect.
//
// # Core Components
//
// Status: Individual component health state containing status level, descriptive
// message, timestamp, optional metrics, and hierarchical sub-statuses.
//
// Monitor: Thread-safe centralized tracking system for multiple component health
// statuses with concurrent read/write access and automatic timestamp management.
//
// Helpers: Convenience functions for creating status objects and aggregating
// runtime health.
//
// # Basic Usage
//
// Creating and tracking component health:
//
//	monitor := health.NewMonitor()
//
//	// Update component health
//	monitor.UpdateHealthy("gateway", "Stream connection established")
//	monitor.UpdateDegraded("heartbeat", "Probe latency above threshold")
//	monitor.UpdateUnhealthy("bridge", "NATS connection lost")
//
//	// Check individual component health
//	if status, exists := monitor.Get("gateway"); exists {
//	    if status.IsHealthy() {
//	        log.Println("Gateway is healthy")
//	    }
//	}
//
//	// Get all component statuses
//	allStatuses := monitor.GetAll()
//	for name, status := range allStatuses {
//	    log.Printf("%s: %s - %s", name, status.Status, status.Message)
//	}
//
// # Runtime-Wide Health Aggregation
//
// Combining multiple component health statuses into a single indicator:
//
//	runtimeHealth := monitor.AggregateHealth("botkit")
//	if runtimeHealth.IsUnhealthy() {
//	    log.Printf("Runtime unhealthy: %s", runtimeHealth.Message)
//	}
//
//	// Aggregation uses hierarchical rules:
//	// - Any unhealthy component → runtime unhealthy
//	// - Any degraded component (with no unhealthy) → runtime degraded
//	// - All healthy → runtime healthy
//
// # Metrics Mirroring
//
// Build the monitor with WithMetrics to mirror every status update into the
// core health check gauge, so Prometheus dashboards and the /health endpoint
// report the same states:
//
//	registry := metric.NewMetricsRegistry()
//	monitor := health.NewMonitor(health.WithMetrics(registry.CoreMetrics()))
//
//	monitor.UpdateHealthy("gateway", "connected")
//	// botkit_health_check_status{component="gateway"} is now 1
//
// # Component Reports
//
// Converting raw component readings to health.Status:
//
//	report := health.Report{
//	    Healthy:   false,
//	    LastError: "dial failed to wss://stream.example.com",
//	    Uptime:    uptime,
//	}
//	status := health.FromReport("gateway", report)
//
//	// Error messages are automatically sanitized to remove:
//	// - URLs (http://, nats://, ws://)
//	// - File paths (Unix and Windows)
//	// - IP addresses and ports
//	// - Credentials (password, token, key, secret)
//
// # Thread Safety
//
// All Monitor operations are thread-safe and can be safely called from
// multiple goroutines. The Monitor uses an RWMutex internally to allow
// concurrent reads while protecting writes. Status objects are immutable:
// methods like WithMetrics and WithSubStatus return new copies rather than
// modifying the original.
//
// # Security
//
// Error messages passed through FromReport are automatically sanitized to
// remove potentially sensitive information:
//
//	// Original error with sensitive data
//	err := "failed to connect to https://api.example.com/v1 with password=secret123"
//
//	// After sanitization via FromReport
//	// "failed to connect to [URL] with [REDACTED]"
//
// This prevents accidental exposure of tokens or endpoints in health
// dashboards and logs.
//
// # Error Handling Philosophy
//
// The health package does not return errors because it represents the result
// of error handling, not part of error propagation. Health status is an
// observability output. Components should wrap errors with the botkit/errors
// package before converting them to health status messages; the health
// package then sanitizes the messages for safe display.
package health
