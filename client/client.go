// Package client is the bot runtime. It wires the REST executor, the
// gateway session, the entity caches, the mention resolver, and the
// optional NATS bridge into one lifecycle: New builds, Open connects,
// Close tears down.
package client

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/botkit/bridge"
	"github.com/c360/botkit/config"
	"github.com/c360/botkit/errors"
	"github.com/c360/botkit/event"
	"github.com/c360/botkit/gateway"
	"github.com/c360/botkit/health"
	"github.com/c360/botkit/metric"
	"github.com/c360/botkit/natsclient"
	"github.com/c360/botkit/pkg/worker"
	"github.com/c360/botkit/rest"
	"github.com/c360/botkit/state"
)

// dispatchBuffer decouples the gateway read pump from event handlers so
// a slow handler cannot stall pong delivery.
const dispatchBuffer = 256

// Client is the bot runtime.
type Client struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	core     *metric.Metrics
	monitor  *health.Monitor

	rest     *rest.Client
	state    *state.State
	resolver *state.Resolver
	session  *gateway.Session
	nats     *natsclient.Client
	bridge   *bridge.Bridge

	handlers handlerSet

	// pool is the dispatch queue: one worker keeps frames ordered, the
	// bounded queue drops under backpressure instead of stalling the
	// gateway read pump.
	pool    *worker.Pool[event.Envelope]
	baseCtx context.Context
	cancel  context.CancelFunc

	opened bool
	closed bool
}

// Option configures optional collaborators.
type Option func(*Client)

// WithLogger sets the root logger; component loggers derive from it.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics wires Prometheus metrics through every component.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Client) {
		c.registry = registry
	}
}

// New builds the runtime without connecting anything.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "client", "New", "config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "client", "New", "config validation")
	}
	if cfg.Bot.Token == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "client", "New", "bot token is required")
	}

	c := &Client{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.registry != nil {
		c.core = c.registry.CoreMetrics()
	}

	poolOpts := []worker.Option[event.Envelope]{}
	if c.registry != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[event.Envelope](c.registry, "client_dispatch"))
	}
	c.pool = worker.NewPool(1, dispatchBuffer, c.dispatch, poolOpts...)
	c.monitor = health.NewMonitor(health.WithMetrics(c.core))

	restOpts := []rest.Option{rest.WithLogger(c.logger)}
	if c.registry != nil {
		restOpts = append(restOpts, rest.WithMetrics(c.registry))
	}
	api, err := rest.NewClient(rest.Config{
		BaseURL:   cfg.API.BaseURL,
		MediaURL:  cfg.API.MediaURL,
		Token:     cfg.Bot.Token,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
	}, restOpts...)
	if err != nil {
		return nil, err
	}
	c.rest = api

	stateOpts := []state.Option{state.WithLogger(c.logger)}
	if c.registry != nil {
		stateOpts = append(stateOpts, state.WithMetrics(c.registry))
	}
	st, err := state.New(cfg.Cache, stateOpts...)
	if err != nil {
		return nil, err
	}
	c.state = st
	c.resolver = state.NewResolver(st, api, stateOpts...)

	return c, nil
}

// REST exposes the request executor for calls the runtime does not wrap.
func (c *Client) REST() *rest.Client { return c.rest }

// State exposes the entity caches.
func (c *Client) State() *state.State { return c.state }

// Resolver exposes the mention resolver.
func (c *Client) Resolver() *state.Resolver { return c.resolver }

// Open connects everything: NATS bridge first (when enabled), then the
// gateway. A rejected gateway handshake reaches the caller as a
// *gateway.HandshakeError value.
func (c *Client) Open(ctx context.Context) error {
	if c.opened {
		return errors.WrapInvalid(errors.ErrAlreadyOpen, "client", "Open", "runtime already open")
	}
	c.opened = true

	c.baseCtx, c.cancel = context.WithCancel(context.Background())

	if c.cfg.Bridge.Enabled {
		if err := c.openBridge(ctx); err != nil {
			c.abortOpen(ctx)
			return err
		}
	}

	gwURL := c.cfg.Gateway.URL
	if gwURL == "" {
		discovered, err := c.rest.GetGatewayURL(ctx)
		if err != nil {
			c.abortOpen(ctx)
			return err
		}
		gwURL = discovered
	}

	sessOpts := []gateway.SessionOption{gateway.WithSessionLogger(c.logger)}
	if c.registry != nil {
		sessOpts = append(sessOpts, gateway.WithSessionMetrics(c.registry))
	}
	c.session = gateway.NewSession(gateway.Config{
		URL:               gwURL,
		Token:             c.cfg.Bot.Token,
		HeartbeatInterval: c.cfg.Gateway.HeartbeatInterval,
		HandshakeTimeout:  c.cfg.Gateway.HandshakeTimeout,
		ReconnectMinDelay: c.cfg.Gateway.ReconnectMinDelay,
		ReconnectMaxDelay: c.cfg.Gateway.ReconnectMaxDelay,
		MaxReconnects:     c.cfg.Gateway.MaxReconnects,
	}, c.enqueue, sessOpts...)

	if err := c.pool.Start(c.baseCtx); err != nil {
		c.abortOpen(ctx)
		return errors.WrapFatal(err, "client", "Open", "starting dispatch pool")
	}

	if err := c.session.Open(ctx); err != nil {
		c.monitor.Update("gateway", health.NewUnhealthy("gateway", "connect failed"))
		c.abortOpen(ctx)
		return err
	}

	c.monitor.UpdateHealthy("gateway", "connected")
	if c.core != nil {
		c.core.RecordSessionStatus(c.cfg.Bot.Name, 1)
	}
	c.logger.Info("bot runtime open", "bot", c.cfg.Bot.Name, "bridge", c.cfg.Bridge.Enabled)
	return nil
}

// abortOpen releases everything a failed Open started: the base
// context, the dispatch pool (a no-op if it never started), and the
// NATS connection. The runtime stays marked open so Close remains an
// idempotent no-op for callers that still defer it.
func (c *Client) abortOpen(ctx context.Context) {
	c.cancel()
	if err := c.pool.Stop(time.Second); err != nil {
		c.logger.Warn("dispatch pool stop timed out", "error", err)
	}
	if c.nats != nil {
		_ = c.nats.Close(ctx)
		c.nats = nil
	}
	c.closed = true
}

func (c *Client) openBridge(ctx context.Context) error {
	natsOpts := []natsclient.ClientOption{
		natsclient.WithLogger(c.logger),
		natsclient.WithMaxReconnects(c.cfg.Bridge.NATS.MaxReconnects),
	}
	if c.cfg.Bridge.NATS.ReconnectWait > 0 {
		natsOpts = append(natsOpts, natsclient.WithReconnectWait(c.cfg.Bridge.NATS.ReconnectWait))
	}
	if c.cfg.Bridge.NATS.Token != "" {
		natsOpts = append(natsOpts, natsclient.WithToken(c.cfg.Bridge.NATS.Token))
	} else if c.cfg.Bridge.NATS.Username != "" {
		natsOpts = append(natsOpts,
			natsclient.WithCredentials(c.cfg.Bridge.NATS.Username, c.cfg.Bridge.NATS.Password))
	}
	if c.core != nil {
		natsOpts = append(natsOpts, natsclient.WithMetrics(c.core))
	}

	nc, err := natsclient.NewClient(c.cfg.Bridge.NATS.URLs, natsOpts...)
	if err != nil {
		return err
	}
	if err := nc.Connect(ctx); err != nil {
		return err
	}
	if err := nc.WaitForConnection(ctx); err != nil {
		_ = nc.Close(ctx)
		return err
	}
	c.nats = nc

	prefix := c.cfg.SubjectPrefix()
	bridgeOpts := []bridge.Option{bridge.WithLogger(c.logger)}
	if c.registry != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithMetrics(c.registry))
	}
	if c.cfg.Bridge.NATS.JetStream.Enabled {
		stream := c.cfg.Bridge.NATS.JetStream.Stream
		if stream == "" {
			stream = "BOTKIT_EVENTS"
		}
		if _, err := nc.EnsureStream(ctx, jetstream.StreamConfig{
			Name:     stream,
			Subjects: []string{prefix + ".>"},
		}); err != nil {
			_ = nc.Close(ctx)
			return err
		}
		bridgeOpts = append(bridgeOpts, bridge.WithJetStream())
	}
	c.bridge = bridge.New(nc, prefix, bridgeOpts...)

	c.monitor.UpdateHealthy("nats", "connected")
	return nil
}

// enqueue hands a frame from the gateway read pump to the dispatch
// pool. When the queue is full the frame is dropped with a counter
// bump rather than blocking the pump.
func (c *Client) enqueue(env event.Envelope) {
	if err := c.pool.Submit(env); err != nil {
		c.logger.Warn("dropping frame", "op", env.Op, "type", env.Type, "error", err)
		if c.core != nil {
			c.core.RecordError("client", "dispatch_overflow")
		}
	}
}

// Close tears the runtime down in dependency order and is idempotent.
func (c *Client) Close(ctx context.Context) error {
	if !c.opened || c.closed {
		return nil
	}
	c.closed = true

	if c.session != nil {
		_ = c.session.Close()
	}
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.pool.Stop(5 * time.Second); err != nil {
		c.logger.Warn("dispatch pool stop timed out", "error", err)
	}
	if c.nats != nil {
		_ = c.nats.Close(ctx)
	}
	_ = c.state.Close()

	if c.core != nil {
		c.core.RecordSessionStatus(c.cfg.Bot.Name, 0)
	}
	c.monitor.Update("gateway", health.NewUnhealthy("gateway", "closed"))
	c.logger.Info("bot runtime closed", "bot", c.cfg.Bot.Name)
	return nil
}

// Latency reports the gateway heartbeat round trip in seconds, +Inf
// until the first acknowledgment.
func (c *Client) Latency() float64 {
	if c.session == nil {
		return math.Inf(1)
	}
	return c.session.Latency()
}

// Health aggregates component health into one status.
func (c *Client) Health() health.Status {
	if c.session != nil {
		switch {
		case !c.session.Connected():
			c.monitor.Update("gateway", health.NewUnhealthy("gateway", "disconnected"))
		case math.IsInf(c.session.Latency(), 1):
			c.monitor.Update("gateway", health.NewDegraded("gateway", "awaiting first heartbeat ack"))
		default:
			c.monitor.UpdateHealthy("gateway", "connected")
		}
	}
	if c.nats != nil {
		if c.nats.IsHealthy() {
			c.monitor.UpdateHealthy("nats", "connected")
		} else {
			c.monitor.Update("nats", health.NewUnhealthy("nats", "disconnected"))
		}
	}
	return c.monitor.AggregateHealth("botkit")
}

// DeferredDelete schedules a best-effort message deletion after delay.
// It returns immediately; failures are logged, never surfaced. Closing
// the runtime cancels pending deletions.
func (c *Client) DeferredDelete(channelID rest.ChannelID, messageID rest.MessageID, delay time.Duration) {
	ctx := c.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := c.rest.DeleteMessage(ctx, channelID, messageID); err != nil {
			c.logger.Warn("deferred delete failed",
				"channel_id", channelID, "message_id", messageID, "error", err)
		}
	}()
}
