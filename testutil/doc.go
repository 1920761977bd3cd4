// Package testutil provides test fixtures and mocks shared across the
// bot runtime's test suites.
//
// # Core Components
//
// MockNATSClient - In-memory NATS client for testing pub/sub patterns:
//   - Thread-safe for concurrent use
//   - Stores core and stream publishes separately for verification
//   - Supports subscription handlers and failure injection
//   - No external NATS server required
//
// Entity fixtures - Minimal valid wire payloads for every entity kind
// (UserEntity, MemberEntity, ServerEntity, ChannelEntity, MessageEntity,
// RoleEntity, EmojiEntity) plus gateway frame builders (WelcomeFrame,
// DispatchFrame).
//
// Wait helpers - WaitForMessage and WaitForMessageCount poll a mock
// client until a condition holds or the timeout expires, failing the
// test with a useful count on timeout.
//
// # Usage
//
//	pub := testutil.NewMockNATSClient()
//	b := bridge.New(pub, "bot.test")
//	b.Publish(ctx, env)
//	testutil.AssertMessageReceived(t, pub, "bot.test.message_created")
//
// For tests that need a real NATS server, use natsclient.NewTestClient,
// which starts one in a container.
package testutil
