package gateway

import (
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/c360/botkit/errors"
	"github.com/c360/botkit/metric"
)

// HeartbeatState tracks the watchdog lifecycle.
type HeartbeatState int

const (
	// HeartbeatIdle means the watchdog has not started yet.
	HeartbeatIdle HeartbeatState = iota
	// HeartbeatRunning means probes are being sent on schedule.
	HeartbeatRunning
	// HeartbeatStopped means the watchdog exited, either by request or
	// because a probe could not be submitted.
	HeartbeatStopped
)

// String returns the state name.
func (s HeartbeatState) String() string {
	switch s {
	case HeartbeatIdle:
		return "idle"
	case HeartbeatRunning:
		return "running"
	case HeartbeatStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// defaultAckWait bounds each wait slice for a probe acknowledgment.
	// A slice expiring logs a stall with goroutine stacks but keeps
	// waiting; the probe itself is never abandoned.
	defaultAckWait = 10 * time.Second
	// degradedLatency is the ack latency above which the connection is
	// reported unhealthy even though it is technically alive.
	degradedLatency = 10 * time.Second
)

// SubmitFunc asks the connection owner to send one probe. It returns a
// channel that yields the probe result (nil on acknowledgment) exactly
// once. A non-nil error return means the probe could not even be
// submitted and the watchdog must stop.
type SubmitFunc func() (<-chan error, error)

// HeartbeatRecord is a snapshot of the most recent probe round trip.
type HeartbeatRecord struct {
	SentAt  time.Time
	AckedAt time.Time
	Latency time.Duration
}

// Heartbeat is the liveness watchdog. It submits a probe every interval
// and measures the acknowledgment latency. Until the first ack arrives
// the reported latency is +Inf, which keeps health checks honest during
// startup.
type Heartbeat struct {
	interval time.Duration
	ackWait  time.Duration
	submit   SubmitFunc
	logger   *slog.Logger
	metrics  *gatewayMetrics
	core     *metric.Metrics

	mu     sync.Mutex
	state  HeartbeatState
	record HeartbeatRecord
	acked  bool

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// HeartbeatOption configures optional collaborators.
type HeartbeatOption func(*Heartbeat)

// WithHeartbeatLogger sets the logger.
func WithHeartbeatLogger(logger *slog.Logger) HeartbeatOption {
	return func(h *Heartbeat) {
		if logger != nil {
			h.logger = logger.With("component", "heartbeat")
		}
	}
}

// WithHeartbeatMetrics wires probe counters and the latency histogram.
func WithHeartbeatMetrics(m *gatewayMetrics, core *metric.Metrics) HeartbeatOption {
	return func(h *Heartbeat) {
		h.metrics = m
		h.core = core
	}
}

// WithAckWait overrides the per-slice ack wait. Tests shrink this.
func WithAckWait(d time.Duration) HeartbeatOption {
	return func(h *Heartbeat) {
		if d > 0 {
			h.ackWait = d
		}
	}
}

// NewHeartbeat builds a watchdog in the idle state.
func NewHeartbeat(interval time.Duration, submit SubmitFunc, opts ...HeartbeatOption) (*Heartbeat, error) {
	if interval <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "gateway", "NewHeartbeat",
			"interval must be positive")
	}
	if submit == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "gateway", "NewHeartbeat",
			"submit func is required")
	}
	h := &Heartbeat{
		interval: interval,
		ackWait:  defaultAckWait,
		submit:   submit,
		logger:   slog.Default().With("component", "heartbeat"),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Start launches the probe loop. Calling Start on anything but an idle
// watchdog is an error.
func (h *Heartbeat) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != HeartbeatIdle {
		return errors.WrapInvalid(errors.ErrAlreadyOpen, "gateway", "Start",
			"heartbeat already "+h.state.String())
	}
	h.state = HeartbeatRunning
	go h.run()
	return nil
}

// Stop halts the probe loop and waits up to timeout for it to exit.
// Idempotent.
func (h *Heartbeat) Stop(timeout time.Duration) {
	h.stopOnce.Do(func() { close(h.stopCh) })
	select {
	case <-h.done:
	case <-time.After(timeout):
		h.logger.Warn("heartbeat did not stop in time", "timeout", timeout)
	}
}

// State reports the current lifecycle state.
func (h *Heartbeat) State() HeartbeatState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Latency reports the last measured round trip in seconds. Before the
// first acknowledgment it is +Inf.
func (h *Heartbeat) Latency() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.acked {
		return math.Inf(1)
	}
	return h.record.Latency.Seconds()
}

// Record returns a snapshot of the most recent completed probe.
func (h *Heartbeat) Record() HeartbeatRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.record
}

func (h *Heartbeat) run() {
	defer close(h.done)
	defer h.setState(HeartbeatStopped)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
		}

		sentAt := time.Now()
		ackCh, err := h.submit()
		if err != nil {
			// The socket is gone; the session's reconnect loop owns
			// recovery. A new heartbeat starts with the new connection.
			h.logger.Error("heartbeat probe submission failed", "error", err)
			h.metrics.recordProbe("submit_failed")
			return
		}
		h.metrics.recordProbe("sent")

		if !h.awaitAck(ackCh, sentAt) {
			return
		}
	}
}

// awaitAck blocks until the probe resolves or the watchdog is stopped.
// Each expired wait slice logs a stall with a full goroutine dump so a
// wedged read pump is diagnosable from logs alone.
func (h *Heartbeat) awaitAck(ackCh <-chan error, sentAt time.Time) bool {
	for {
		select {
		case <-h.stopCh:
			return false
		case err := <-ackCh:
			if err != nil {
				h.logger.Warn("heartbeat probe failed", "error", err)
				h.metrics.recordProbe("failed")
				return true
			}
			h.recordAck(sentAt, time.Now())
			return true
		case <-time.After(h.ackWait):
			h.metrics.recordStall()
			h.logger.Warn("heartbeat ack overdue, connection may be stalled",
				"waited", time.Since(sentAt).Round(time.Millisecond),
				"stacks", goroutineStacks())
		}
	}
}

func (h *Heartbeat) recordAck(sentAt, ackedAt time.Time) {
	latency := ackedAt.Sub(sentAt)

	h.mu.Lock()
	h.record = HeartbeatRecord{SentAt: sentAt, AckedAt: ackedAt, Latency: latency}
	h.acked = true
	h.mu.Unlock()

	h.metrics.recordProbe("acked")
	if h.core != nil {
		h.core.RecordHeartbeatLatency(latency)
	}
	if latency > degradedLatency {
		h.logger.Warn("heartbeat latency degraded", "latency", latency.Round(time.Millisecond))
		return
	}
	h.logger.Debug("heartbeat acknowledged", "latency", latency.Round(time.Millisecond))
}

func (h *Heartbeat) setState(s HeartbeatState) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

func goroutineStacks() string {
	buf := make([]byte, 64*1024)
	n := runtime.Stack(buf, true)
	return string(buf[:n])
}
