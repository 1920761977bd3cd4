// Package natsclient provides a robust NATS client with circuit breaker
// protection, automatic reconnection, and JetStream support. It carries
// the bot's event bridge traffic: gateway frames the runtime decodes can
// be republished to NATS subjects for downstream consumers.
//
// # Core Features
//
// Circuit Breaker Pattern: Prevents cascading failures by failing fast after
// a threshold of consecutive failures (default: 5). The circuit opens to
// prevent further attempts, then gradually tests the connection with
// exponential backoff.
//
// Connection Lifecycle Management: Handles connection states automatically
// through the lifecycle: Disconnected → Connecting → Connected → Reconnecting
// → Connected. The client manages all transitions with configurable callbacks
// for state changes.
//
// JetStream Support: EnsureStream creates or looks up a stream idempotently,
// and PublishToStream publishes with acknowledgment, which the bridge uses
// when durable event delivery is configured.
//
// # Basic Usage
//
// Creating and connecting to NATS:
//
//	client, err := natsclient.NewClient([]string{"nats://localhost:4222"})
//	if err != nil {
//	    return err
//	}
//
//	ctx := context.Background()
//	err = client.Connect(ctx)
//	if err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	// Publish a message
//	err = client.Publish(ctx, "subject.name", []byte("message data"))
//
//	// Subscribe to messages
//	err = client.Subscribe(ctx, "subject.*", func(msgCtx context.Context, data []byte) {
//	    fmt.Printf("Received: %s\n", string(data))
//	})
//
// # Advanced Configuration
//
// Creating a client with options:
//
//	client, err := natsclient.NewClient([]string{"nats://localhost:4222"},
//	    natsclient.WithMaxReconnects(-1),  // Infinite reconnects
//	    natsclient.WithReconnectWait(2*time.Second),
//	    natsclient.WithCircuitBreakerThreshold(10),
//	    natsclient.WithToken("s3cr3t"),
//	    natsclient.WithDisconnectCallback(func(err error) {
//	        log.Printf("Disconnected: %v", err)
//	    }),
//	)
//
// # JetStream
//
// Durable event delivery through a stream:
//
//	stream, err := client.EnsureStream(ctx, jetstream.StreamConfig{
//	    Name:     "BOTKIT_EVENTS",
//	    Subjects: []string{"bot.mybot.>"},
//	})
//	if err != nil {
//	    return err
//	}
//
//	err = client.PublishToStream(ctx, "bot.mybot.message_created", payload)
//
// # Testing
//
// NewTestClient starts a disposable NATS server in a container and wires
// cleanup into the test lifecycle:
//
//	func TestMyFeature(t *testing.T) {
//	    tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
//	    // tc.Client is connected and ready
//	}
//
// Testcontainers over Mocks: integration tests use a real NATS server via
// testcontainers to catch actual integration issues; mock-based testing can
// miss edge cases in the NATS protocol implementation.
//
// Health monitoring runs on an interval and reports through IsHealthy and
// the OnHealthChange callback; the bot runtime folds it into its aggregate
// health status.
package natsclient
