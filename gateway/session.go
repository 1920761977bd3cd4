package gateway

import (
	"context"
	stderrors "errors"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/botkit/errors"
	"github.com/c360/botkit/event"
	"github.com/c360/botkit/metric"
	"github.com/c360/botkit/pkg/retry"
)

// Config controls the session lifecycle.
type Config struct {
	URL   string
	Token string
	// HeartbeatInterval is the fallback probe interval when the welcome
	// frame does not carry one.
	HeartbeatInterval time.Duration
	HandshakeTimeout  time.Duration
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	// MaxReconnects bounds consecutive failed reconnect attempts.
	// Negative means unlimited.
	MaxReconnects int
}

// EnvelopeHandler receives every frame read from the stream, welcome
// and resume frames included.
type EnvelopeHandler func(event.Envelope)

// SessionOption configures optional collaborators.
type SessionOption func(*Session)

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger.With("component", "gateway")
		}
	}
}

// WithSessionMetrics wires connection and heartbeat metrics.
func WithSessionMetrics(registry *metric.MetricsRegistry) SessionOption {
	return func(s *Session) {
		if registry != nil {
			s.metrics = newGatewayMetrics(registry)
			s.core = registry.CoreMetrics()
		}
	}
}

// WithProbeWait overrides the heartbeat ack wait slice. Tests shrink it.
func WithProbeWait(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.probeWait = d
		}
	}
}

// Session owns one logical stream connection: the dial, the welcome
// exchange, the heartbeat watchdog, the read pump, and the reconnect
// loop that keeps the stream alive until Close.
type Session struct {
	cfg       Config
	handler   EnvelopeHandler
	logger    *slog.Logger
	metrics   *gatewayMetrics
	core      *metric.Metrics
	probeWait time.Duration

	mu           sync.Mutex
	conn         *Conn
	heartbeat    *Heartbeat
	welcome      event.Welcome
	lastSeq      string
	pending      chan error
	pendingNonce string
	opened       bool

	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSession builds a session. Nothing connects until Open.
func NewSession(cfg Config, handler EnvelopeHandler, opts ...SessionOption) *Session {
	s := &Session{
		cfg:     cfg,
		handler: handler,
		logger:  slog.Default().With("component", "gateway"),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open establishes the first connection synchronously so a rejected
// handshake (*HandshakeError) reaches the caller directly, then starts
// the read pump and the reconnect supervisor.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.opened {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyOpen, "gateway", "Open", "session already open")
	}
	s.opened = true
	s.mu.Unlock()

	if s.cfg.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "gateway", "Open", "gateway URL required")
	}

	if err := s.establish(ctx); err != nil {
		s.metrics.recordConnect("failed")
		return err
	}
	s.metrics.recordConnect("ok")

	s.wg.Add(1)
	go s.supervise()
	return nil
}

// Close stops the supervisor, the heartbeat, and the connection. Safe
// to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		conn := s.conn
		hb := s.heartbeat
		s.mu.Unlock()

		if hb != nil {
			hb.Stop(5 * time.Second)
		}
		if conn != nil {
			_ = conn.Close()
		}
		s.wg.Wait()
		s.metrics.setConnected(false)
	})
	return nil
}

// Connected reports whether a live connection is currently held.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Latency reports the heartbeat round trip in seconds, +Inf before the
// first acknowledgment or while disconnected.
func (s *Session) Latency() float64 {
	s.mu.Lock()
	hb := s.heartbeat
	s.mu.Unlock()
	if hb == nil {
		return math.Inf(1)
	}
	return hb.Latency()
}

// Welcome returns the payload of the most recent welcome frame.
func (s *Session) Welcome() event.Welcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.welcome
}

// LastSeq returns the resume cursor from the most recent frame.
func (s *Session) LastSeq() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}

// establish dials, consumes the welcome frame, and starts a fresh
// heartbeat. Callers own retry policy.
func (s *Session) establish(ctx context.Context) error {
	s.mu.Lock()
	lastSeq := s.lastSeq
	s.mu.Unlock()

	conn, err := Connect(ctx, DialConfig{
		URL:              s.cfg.URL,
		Token:            s.cfg.Token,
		HandshakeTimeout: s.cfg.HandshakeTimeout,
		LastEventID:      lastSeq,
	})
	if err != nil {
		return err
	}
	conn.SetPongHandler(s.handlePong)

	// The server speaks first: the welcome frame carries the heartbeat
	// interval and the resume cursor.
	env, err := conn.ReadEnvelope()
	if err != nil {
		_ = conn.Close()
		return err
	}
	welcome, err := event.DecodeWelcome(env)
	if err != nil {
		_ = conn.Close()
		return err
	}
	s.metrics.recordFrame(strconv.Itoa(env.Op))

	interval := s.cfg.HeartbeatInterval
	if welcome.HeartbeatIntervalMs > 0 {
		interval = time.Duration(welcome.HeartbeatIntervalMs) * time.Millisecond
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	hbOpts := []HeartbeatOption{
		WithHeartbeatLogger(s.logger),
		WithHeartbeatMetrics(s.metrics, s.core),
	}
	if s.probeWait > 0 {
		hbOpts = append(hbOpts, WithAckWait(s.probeWait))
	}
	hb, err := NewHeartbeat(interval, s.submitProbe, hbOpts...)
	if err != nil {
		_ = conn.Close()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.heartbeat = hb
	s.welcome = welcome
	if welcome.LastMessageID != "" {
		s.lastSeq = welcome.LastMessageID
	}
	s.mu.Unlock()

	if err := hb.Start(); err != nil {
		_ = conn.Close()
		return err
	}
	s.metrics.setConnected(true)
	s.logger.Info("gateway connected",
		"heartbeat_interval", interval,
		"resumed", lastSeq != "")

	// Probe immediately so a socket that died during the handshake is
	// caught before the first scheduled beat.
	if ch, err := s.submitProbe(); err == nil {
		go func() {
			if perr := <-ch; perr != nil {
				s.logger.Warn("post-connect probe failed", "error", perr)
			}
		}()
	}

	if s.handler != nil {
		s.handler(env)
	}
	return nil
}

// submitProbe sends one ping carrying a fresh nonce and registers the
// channel the matching pong resolves. The heartbeat watchdog calls this
// every interval.
func (s *Session) submitProbe() (<-chan error, error) {
	nonce := uuid.NewString()

	s.mu.Lock()
	conn := s.conn
	if conn == nil {
		s.mu.Unlock()
		return nil, errors.WrapTransient(errors.ErrNoConnection, "gateway", "submitProbe",
			"no active connection")
	}
	if s.pending != nil {
		// Resolve a superseded probe so its waiter does not hang.
		s.pending <- errors.WrapTransient(errors.ErrConnectionTimeout, "gateway", "submitProbe",
			"probe superseded before acknowledgment")
	}
	ch := make(chan error, 1)
	s.pending = ch
	s.pendingNonce = nonce
	s.mu.Unlock()

	if err := conn.Ping(nonce); err != nil {
		s.mu.Lock()
		if s.pending == ch {
			s.pending = nil
			s.pendingNonce = ""
		}
		s.mu.Unlock()
		return nil, err
	}
	return ch, nil
}

// handlePong resolves the in-flight probe. A pong carrying a stale
// nonce is ignored; the current probe keeps waiting.
func (s *Session) handlePong(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return
	}
	if payload != "" && s.pendingNonce != "" && payload != s.pendingNonce {
		s.logger.Debug("stale pong ignored", "nonce", payload)
		return
	}
	s.pending <- nil
	s.pending = nil
	s.pendingNonce = ""
}

// failPending resolves the in-flight probe with a connection error so
// the watchdog is not left waiting on a dead socket.
func (s *Session) failPending(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return
	}
	s.pending <- err
	s.pending = nil
	s.pendingNonce = ""
}

// supervise runs the read pump and reconnects with exponential backoff
// when it fails, until Close or the reconnect budget is exhausted.
func (s *Session) supervise() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		readErr := s.pump(conn)
		s.teardown(conn)

		select {
		case <-s.stopCh:
			return
		default:
		}

		s.logger.Warn("gateway connection lost", "error", readErr)
		if !s.reconnect() {
			return
		}
	}
}

// pump reads frames until the connection dies.
func (s *Session) pump(conn *Conn) error {
	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			s.failPending(err)
			return err
		}
		s.metrics.recordFrame(strconv.Itoa(env.Op))

		if env.Seq != "" {
			s.mu.Lock()
			s.lastSeq = env.Seq
			s.mu.Unlock()
		}
		if s.handler != nil {
			s.handler(env)
		}
	}
}

func (s *Session) teardown(conn *Conn) {
	s.mu.Lock()
	hb := s.heartbeat
	if s.conn == conn {
		s.conn = nil
		s.heartbeat = nil
	}
	s.mu.Unlock()

	if hb != nil {
		hb.Stop(5 * time.Second)
	}
	if conn != nil {
		_ = conn.Close()
	}
	s.metrics.setConnected(false)
}

// reconnect re-establishes the connection with exponential backoff.
// Returns false when the session should give up: Close was called, an
// authorization handshake failure occurred, or the attempt budget ran
// out.
func (s *Session) reconnect() bool {
	minDelay := s.cfg.ReconnectMinDelay
	if minDelay <= 0 {
		minDelay = time.Second
	}
	maxDelay := s.cfg.ReconnectMaxDelay
	if maxDelay < minDelay {
		maxDelay = 2 * time.Minute
	}

	for attempt := 0; s.cfg.MaxReconnects < 0 || attempt < s.cfg.MaxReconnects; attempt++ {
		delay := reconnectDelay(minDelay, maxDelay, attempt)
		s.logger.Info("gateway reconnecting", "attempt", attempt+1, "delay", delay)
		s.metrics.recordReconnect()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-s.stopCh:
				cancel()
			case <-ctx.Done():
			}
		}()
		sleepErr := retry.Sleep(ctx, delay)
		if sleepErr != nil {
			cancel()
			return false
		}

		err := s.establish(ctx)
		cancel()
		if err == nil {
			s.metrics.recordConnect("ok")
			return true
		}
		s.metrics.recordConnect("failed")

		var hsErr *HandshakeError
		if stderrors.As(err, &hsErr) && hsErr.StatusCode >= 400 && hsErr.StatusCode < 500 {
			// Rejected credentials do not heal with retries.
			s.logger.Error("gateway handshake rejected, giving up",
				"status", hsErr.StatusCode)
			return false
		}
		s.logger.Warn("gateway reconnect failed", "attempt", attempt+1, "error", err)

		select {
		case <-s.stopCh:
			return false
		default:
		}
	}

	s.logger.Error("gateway reconnect budget exhausted", "max", s.cfg.MaxReconnects)
	return false
}

// reconnectDelay doubles the base per attempt, capped.
func reconnectDelay(minDelay, maxDelay time.Duration, attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := minDelay << uint(attempt)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}
