// Package worker provides a generic, thread-safe worker pool with a
// bounded queue. The bot runtime uses it as the event dispatch queue: the
// gateway read pump submits frames, a single worker applies them in order,
// and a full queue rejects instead of blocking so a slow handler can never
// stall pong delivery.
//
// # Core Concepts
//
// The pool manages a fixed number of goroutines (workers) that process
// work items from a bounded channel. Worker count is the ordering knob:
// one worker processes items strictly in submission order (how the
// dispatch queue uses it), more workers trade ordering for parallelism.
//
// Using Go generics, the pool processes any work type T without type
// assertions:
//
//	pool := worker.NewPool[event.Envelope](
//	    1,    // one worker keeps frames ordered
//	    256,  // queue absorbs dispatch bursts
//	    func(ctx context.Context, env event.Envelope) error {
//	        return dispatch(ctx, env)
//	    },
//	)
//
// Observability follows the dual-tracking pattern used throughout this
// module: statistics are ALWAYS tracked with atomic counters, Prometheus
// metrics are opt-in via WithMetricsRegistry.
//
// # Architecture Decisions
//
// Non-blocking Submit with backpressure:
//
// Submit() uses a non-blocking send rather than blocking on a full queue.
// Callers never wait for queue space; ErrQueueFull is the overload signal.
// The dispatch path treats it as "drop the frame and count it" — a
// deliberate choice over stalling the read pump, which would starve
// heartbeat acknowledgments and tear down the connection.
//
// Context-based cancellation:
//
// Workers receive the context from Start() and pass it to the processor,
// so in-flight work observes cancellation. The metrics updater goroutine
// exits only on context cancellation, so callers must cancel the Start
// context before Stop when metrics are enabled.
//
// Graceful shutdown:
//
// Stop(timeout) closes the work channel, lets workers drain the remaining
// queue, and waits up to timeout for them to finish, returning
// ErrStopTimeout otherwise. Stop is idempotent.
//
// # Usage
//
// Lifecycle with metrics:
//
//	registry := metric.NewMetricsRegistry()
//	pool := worker.NewPool[event.Envelope](
//	    1, 256, dispatch,
//	    worker.WithMetricsRegistry[event.Envelope](registry, "client_dispatch"),
//	)
//
//	ctx, cancel := context.WithCancel(context.Background())
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//
//	// read pump:
//	if err := pool.Submit(env); err != nil {
//	    if errors.Is(err, worker.ErrQueueFull) {
//	        // overloaded: drop and record, never block the pump
//	    }
//	}
//
//	// teardown: cancel before Stop so the metrics updater exits
//	cancel()
//	_ = pool.Stop(5 * time.Second)
//
// Metrics exposed under the given prefix: queue_depth, utilization,
// submitted_total, processed_total, failed_total, dropped_total, and a
// processing_duration_seconds histogram by status.
//
// # Thread Safety
//
// All public methods are safe for concurrent use. Submit is lock-free
// (channel semantics), Start/Stop are mutex-guarded, Stats uses atomic
// loads. Start can only be called once; Submit fails with
// ErrPoolNotStarted/ErrPoolStopped outside the running window.
//
// # Error Handling
//
// The pool uses plain sentinel errors rather than the module's error
// classification, because pool errors are programming errors or resource
// exhaustion, never remote failures:
//
//   - ErrPoolNotStarted / ErrPoolAlreadyStarted / ErrNilProcessor: programming errors
//   - ErrPoolStopped: expected after Stop
//   - ErrQueueFull: backpressure signal
//   - ErrStopTimeout: workers stuck past the shutdown budget
//
// Processor errors are counted in the failed total but not interpreted.
//
// # Known Limitations
//
//  1. No per-item timeout: implement in the processor via the context
//  2. No priority queues: items are processed in submission order
//  3. No cancellation of individual queued items
//  4. Queue depth metrics update on a 1-second ticker
//  5. No dynamic worker scaling: worker count is fixed at construction
package worker
