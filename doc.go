// Package botkit is a resilient client runtime for chat platform bots.
//
// # Architecture
//
// The runtime is built from five cooperating layers:
//
//	┌─────────────────────────────────────┐
//	│            client                   │  Lifecycle, dispatch,
//	│   (Open, handlers, actions, Close)  │  health aggregation
//	└─────────────────────────────────────┘
//	      ↓ reads              ↓ calls
//	┌──────────────┐    ┌──────────────┐
//	│   gateway    │    │     rest     │  WebSocket session with
//	│  (session,   │    │  (executor,  │  heartbeat watchdog;
//	│  heartbeat)  │    │  endpoints)  │  retrying HTTP executor
//	└──────────────┘    └──────────────┘
//	      ↓ decoded by         ↓ cached in
//	┌──────────────┐    ┌──────────────┐
//	│    event     │    │    state     │  Typed payloads;
//	│ (envelopes)  │    │(caches, men- │  entity caches and
//	│              │    │tion resolver)│  mention resolution
//	└──────────────┘    └──────────────┘
//	             ↓ republished by
//	      ┌──────────────┐
//	      │    bridge    │  Gateway frames → NATS subjects
//	      └──────────────┘
//
// The rest package executes API calls with rate limiting, linear
// backoff retry, and typed error classification. The gateway package
// owns the WebSocket session: handshake, welcome exchange, nonce'd
// heartbeat probes with a liveness watchdog, and supervised reconnect
// with resume cursors. The state package keeps per-kind entity caches
// (message history is FIFO-bounded) and resolves mention references
// with a bulk-fetch cutover. The bridge package republishes decoded
// frames onto NATS subjects, optionally through JetStream.
//
// Supporting packages: config (schema-validated loading with env
// overrides), errors (classified error handling), metric (Prometheus
// registry and server), health (component health aggregation),
// natsclient (resilient NATS connection), and pkg/cache, pkg/retry,
// pkg/worker (generic utilities).
//
// # Usage
//
//	cfg, err := config.NewLoader().LoadFile("configs/bot.json")
//	if err != nil {
//	    return err
//	}
//
//	bot, err := client.New(cfg)
//	if err != nil {
//	    return err
//	}
//
//	bot.OnMessageCreated(func(ctx context.Context, msg *state.Message) {
//	    if msg.Content == "!ping" {
//	        _, _ = bot.Reply(ctx, msg.ChannelID, msg.ID, "pong")
//	    }
//	})
//
//	if err := bot.Open(ctx); err != nil {
//	    return err
//	}
//	defer bot.Close(ctx)
//
// The cmd/botkit daemon wraps this into a supervised process with
// config loading, metrics serving, and signal handling.
package botkit
