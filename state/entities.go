package state

import (
	"encoding/json"
	"time"

	"github.com/c360/botkit/errors"
	"github.com/c360/botkit/rest"
)

// Entity structs decoded from platform payloads. Validation happens at
// the decode boundary; anything held in the caches has already passed.

// User is a platform account.
type User struct {
	ID        rest.UserID `json:"id"`
	Name      string      `json:"name"`
	Type      string      `json:"type,omitempty"` // "user" or "bot"
	AvatarURL string      `json:"avatar,omitempty"`
	CreatedAt time.Time   `json:"createdAt,omitempty"`
}

// Validate checks required fields.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "state", "Validate", "user missing id")
	}
	return nil
}

// Member is a user's presence in one server. ServerID is not on the
// wire for bulk member payloads; decoders stamp it from context.
type Member struct {
	User     User          `json:"user"`
	ServerID rest.ServerID `json:"serverId,omitempty"`
	Nickname string        `json:"nickname,omitempty"`
	RoleIDs  []rest.RoleID `json:"roleIds,omitempty"`
	JoinedAt time.Time     `json:"joinedAt,omitempty"`
}

// Validate checks required fields.
func (m *Member) Validate() error {
	if m.User.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "state", "Validate", "member missing user id")
	}
	return nil
}

// Server is a guild-level container.
type Server struct {
	ID        rest.ServerID `json:"id"`
	Name      string        `json:"name"`
	OwnerID   rest.UserID   `json:"ownerId,omitempty"`
	Type      string        `json:"type,omitempty"`
	Timezone  string        `json:"timezone,omitempty"`
	CreatedAt time.Time     `json:"createdAt,omitempty"`
}

// Validate checks required fields.
func (s *Server) Validate() error {
	if s.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "state", "Validate", "server missing id")
	}
	return nil
}

// Channel is a server channel, thread, or direct-message channel.
type Channel struct {
	ID        rest.ChannelID `json:"id"`
	ServerID  rest.ServerID  `json:"serverId,omitempty"`
	GroupID   string         `json:"groupId,omitempty"`
	ParentID  rest.ChannelID `json:"parentId,omitempty"`
	Type      string         `json:"type,omitempty"`
	Name      string         `json:"name,omitempty"`
	Topic     string         `json:"topic,omitempty"`
	CreatedAt time.Time      `json:"createdAt,omitempty"`
}

// Validate checks required fields.
func (c *Channel) Validate() error {
	if c.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "state", "Validate", "channel missing id")
	}
	return nil
}

// IsDM reports whether the channel is a direct-message channel.
func (c *Channel) IsDM() bool {
	return c.Type == "dm"
}

// Message is one chat message. Mentions holds the raw references from
// the payload; the resolver turns them into entities on demand.
type Message struct {
	ID              rest.MessageID   `json:"id"`
	ChannelID       rest.ChannelID   `json:"channelId"`
	ServerID        rest.ServerID    `json:"serverId,omitempty"`
	Type            string           `json:"type,omitempty"`
	CreatedBy       rest.UserID      `json:"createdBy,omitempty"`
	Content         string           `json:"content,omitempty"`
	ReplyMessageIDs []rest.MessageID `json:"replyMessageIds,omitempty"`
	Mentions        *Mentions        `json:"mentions,omitempty"`
	Private         bool             `json:"isPrivate,omitempty"`
	CreatedAt       time.Time        `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time       `json:"updatedAt,omitempty"`
}

// Validate checks required fields.
func (m *Message) Validate() error {
	if m.ID == "" || m.ChannelID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "state", "Validate",
			"message missing id or channelId")
	}
	return nil
}

// Role is a server role.
type Role struct {
	ID          rest.RoleID   `json:"id"`
	ServerID    rest.ServerID `json:"serverId,omitempty"`
	Name        string        `json:"name"`
	Priority    int           `json:"priority,omitempty"`
	IsBase      bool          `json:"isBase,omitempty"`
	Permissions []string      `json:"permissions,omitempty"`
	CreatedAt   time.Time     `json:"createdAt,omitempty"`
}

// Validate checks required fields.
func (r *Role) Validate() error {
	if r.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "state", "Validate", "role missing id")
	}
	return nil
}

// Emoji is a custom server emoji.
type Emoji struct {
	ID        rest.EmojiID  `json:"id"`
	ServerID  rest.ServerID `json:"serverId,omitempty"`
	Name      string        `json:"name"`
	URL       string        `json:"url,omitempty"`
	CreatedBy rest.UserID   `json:"createdBy,omitempty"`
}

// Validate checks required fields.
func (e *Emoji) Validate() error {
	if e.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "state", "Validate", "emoji missing id")
	}
	return nil
}

func decode[E interface{ Validate() error }](payload []byte, out E, what string) (E, error) {
	var zero E
	if err := json.Unmarshal(payload, out); err != nil {
		return zero, errors.WrapInvalid(err, "state", "decode", "unmarshal "+what)
	}
	if err := out.Validate(); err != nil {
		return zero, err
	}
	return out, nil
}

// DecodeUser parses and validates a user payload.
func DecodeUser(payload []byte) (*User, error) {
	return decode(payload, &User{}, "user")
}

// DecodeMember parses and validates a member payload, stamping the
// server it belongs to.
func DecodeMember(payload []byte, serverID rest.ServerID) (*Member, error) {
	m, err := decode(payload, &Member{}, "member")
	if err != nil {
		return nil, err
	}
	m.ServerID = serverID
	return m, nil
}

// DecodeServer parses and validates a server payload.
func DecodeServer(payload []byte) (*Server, error) {
	return decode(payload, &Server{}, "server")
}

// DecodeChannel parses and validates a channel payload.
func DecodeChannel(payload []byte) (*Channel, error) {
	return decode(payload, &Channel{}, "channel")
}

// DecodeMessage parses and validates a message payload.
func DecodeMessage(payload []byte) (*Message, error) {
	return decode(payload, &Message{}, "message")
}

// DecodeRole parses and validates a role payload, stamping the server
// when the wire omits it.
func DecodeRole(payload []byte, serverID rest.ServerID) (*Role, error) {
	r, err := decode(payload, &Role{}, "role")
	if err != nil {
		return nil, err
	}
	if r.ServerID == "" {
		r.ServerID = serverID
	}
	return r, nil
}

// DecodeEmoji parses and validates an emoji payload.
func DecodeEmoji(payload []byte, serverID rest.ServerID) (*Emoji, error) {
	e, err := decode(payload, &Emoji{}, "emoji")
	if err != nil {
		return nil, err
	}
	if e.ServerID == "" {
		e.ServerID = serverID
	}
	return e, nil
}
