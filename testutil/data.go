package testutil

import "fmt"

// Canned entity payloads in the chat platform's wire shape. Tests that
// only need "a valid message" or "a valid member" use these instead of
// rebuilding JSON by hand.

// UserEntity is a minimal valid user payload.
const UserEntity = `{"id":"u1","name":"Test User","type":"user","createdAt":"2024-01-01T00:00:00Z"}`

// MemberEntity is a minimal valid member payload. The server id is
// stamped at decode time, not carried on the wire.
const MemberEntity = `{"user":{"id":"u1","name":"Test User"},"nickname":"tester","joinedAt":"2024-01-02T00:00:00Z"}`

// ServerEntity is a minimal valid server payload.
const ServerEntity = `{"id":"srv1","name":"Test Server","ownerId":"u1","timezone":"UTC"}`

// ChannelEntity is a minimal valid channel payload.
const ChannelEntity = `{"id":"c1","serverId":"srv1","type":"chat","name":"general"}`

// MessageEntity is a minimal valid message payload.
const MessageEntity = `{"id":"m1","channelId":"c1","serverId":"srv1","createdBy":"u1","content":"hello"}`

// RoleEntity is a minimal valid role payload.
const RoleEntity = `{"id":"r1","name":"Moderator","priority":1}`

// EmojiEntity is a minimal valid emoji payload.
const EmojiEntity = `{"id":"e1","name":"wave","url":"https://cdn.example/wave.png"}`

// WelcomeFrame builds the gateway's first frame with the given
// heartbeat interval in milliseconds.
func WelcomeFrame(heartbeatMs int) string {
	return fmt.Sprintf(
		`{"op":1,"d":{"heartbeatIntervalMs":%d,"lastMessageId":"m-0","botId":"bot-test"}}`,
		heartbeatMs)
}

// DispatchFrame builds a dispatch frame carrying the given typed
// payload.
func DispatchFrame(eventType, seq, data string) string {
	return fmt.Sprintf(`{"op":0,"t":%q,"s":%q,"d":%s}`, eventType, seq, data)
}
