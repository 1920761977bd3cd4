// Package bridge republishes gateway events onto NATS subjects so other
// services can consume the bot's event stream without holding their own
// platform connection. Publishing is best effort: a NATS outage never
// takes the bot down.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode"

	"github.com/c360/botkit/event"
	"github.com/c360/botkit/metric"
)

// Publisher is the slice of the NATS client the bridge needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// Bridge fans dispatch frames out to NATS. Core (at most once) or
// JetStream (persisted) delivery is chosen at construction.
type Bridge struct {
	publisher Publisher
	prefix    string
	jetstream bool
	logger    *slog.Logger
	metrics   *bridgeMetrics
}

// Option configures optional collaborators.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger.With("component", "bridge")
		}
	}
}

// WithMetrics wires per-subject publish counters.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(b *Bridge) {
		b.metrics = newBridgeMetrics(registry)
	}
}

// WithJetStream routes publishes through JetStream for persisted
// delivery instead of core NATS.
func WithJetStream() Option {
	return func(b *Bridge) {
		b.jetstream = true
	}
}

// New builds a bridge publishing under the given subject prefix,
// typically "bot.<name>".
func New(publisher Publisher, prefix string, opts ...Option) *Bridge {
	b := &Bridge{
		publisher: publisher,
		prefix:    strings.TrimSuffix(prefix, "."),
		logger:    slog.Default().With("component", "bridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// envelopeOut is the frame republished to NATS: the original envelope
// fields plus nothing else, so consumers parse one stable shape.
type envelopeOut struct {
	Op   int             `json:"op"`
	Type string          `json:"t,omitempty"`
	Seq  string          `json:"s,omitempty"`
	Data json.RawMessage `json:"d,omitempty"`
}

// Publish forwards one dispatch frame. Non-dispatch frames are skipped.
// Failures are logged and counted, never returned as fatal: the bot's
// own event handling must not depend on the bridge being up.
func (b *Bridge) Publish(ctx context.Context, env event.Envelope) {
	if env.Op != event.OpDispatch || env.Type == "" {
		return
	}

	subject := b.Subject(env.Type)
	data, err := json.Marshal(envelopeOut(env))
	if err != nil {
		b.logger.Error("bridge envelope marshal failed", "subject", subject, "error", err)
		b.metrics.recordPublish(subject, "marshal_error")
		return
	}

	if b.jetstream {
		err = b.publisher.PublishToStream(ctx, subject, data)
	} else {
		err = b.publisher.Publish(ctx, subject, data)
	}
	if err != nil {
		b.logger.Warn("bridge publish failed", "subject", subject, "error", err)
		b.metrics.recordPublish(subject, "error")
		return
	}
	b.metrics.recordPublish(subject, "ok")
}

// Subject maps an event type to its NATS subject:
// "bot.<name>.message_created" for MessageCreated.
func (b *Bridge) Subject(eventType string) string {
	return b.prefix + "." + camelToSnake(eventType)
}

func camelToSnake(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
