package rest

// Typed identifiers for route building. Keeping each kind as its own
// string type means a call site cannot pass a user id where a channel id
// belongs without the compiler objecting.

// ServerID identifies a server (guild/team) on the platform.
type ServerID string

// ChannelID identifies a channel or thread.
type ChannelID string

// UserID identifies a user or bot account.
type UserID string

// MessageID identifies a single message within a channel.
type MessageID string

// RoleID identifies a role within a server.
type RoleID string

// EmojiID identifies a custom emoji within a server.
type EmojiID string

func (id ServerID) String() string  { return string(id) }
func (id ChannelID) String() string { return string(id) }
func (id UserID) String() string    { return string(id) }
func (id MessageID) String() string { return string(id) }
func (id RoleID) String() string    { return string(id) }
func (id EmojiID) String() string   { return string(id) }
