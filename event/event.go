// Package event defines the gateway wire envelope and the typed events
// decoded from it. All payload validation happens here, at the
// deserialization boundary; downstream code works with checked structs.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/c360/botkit/errors"
)

// Opcodes carried in the envelope op field.
const (
	// OpDispatch frames carry a typed domain event in d.
	OpDispatch = 0
	// OpWelcome is the first frame after the upgrade; it carries the
	// heartbeat interval and the resume cursor.
	OpWelcome = 1
	// OpResume acknowledges a successful resume after reconnect.
	OpResume = 2
)

// Event type names as they appear on the wire.
const (
	TypeMessageCreated = "MessageCreated"
	TypeMessageUpdated = "MessageUpdated"
	TypeMessageDeleted = "MessageDeleted"
	TypeMemberJoined   = "MemberJoined"
	TypeMemberRemoved  = "MemberRemoved"
	TypeChannelCreated = "ChannelCreated"
	TypeChannelDeleted = "ChannelDeleted"
	TypeServerUpdated  = "ServerUpdated"
)

// Envelope is the wire frame: {op, t, s, d}. The sequence id s is the
// resume cursor replayed on reconnect.
type Envelope struct {
	Op   int             `json:"op"`
	Type string          `json:"t,omitempty"`
	Seq  string          `json:"s,omitempty"`
	Data json.RawMessage `json:"d,omitempty"`
}

// Parse decodes a raw frame into an envelope.
func Parse(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errors.WrapInvalid(err, "event", "Parse", "unmarshal envelope")
	}
	return env, nil
}

// Welcome is the op 1 payload.
type Welcome struct {
	HeartbeatIntervalMs int    `json:"heartbeatIntervalMs"`
	LastMessageID       string `json:"lastMessageId,omitempty"`
	BotID               string `json:"botId,omitempty"`
}

// MessageCreated carries a new message. The message body stays raw so
// the state layer decodes and caches it at its own boundary.
type MessageCreated struct {
	ServerID string          `json:"serverId,omitempty"`
	Message  json.RawMessage `json:"message"`
}

// Validate implements payload validation for MessageCreated.
func (e *MessageCreated) Validate() error {
	if len(e.Message) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "event", "Validate",
			"MessageCreated missing message")
	}
	return nil
}

// MessageUpdated carries an edited message.
type MessageUpdated struct {
	ServerID string          `json:"serverId,omitempty"`
	Message  json.RawMessage `json:"message"`
}

// Validate implements payload validation for MessageUpdated.
func (e *MessageUpdated) Validate() error {
	if len(e.Message) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "event", "Validate",
			"MessageUpdated missing message")
	}
	return nil
}

// MessageDeleted identifies a removed message.
type MessageDeleted struct {
	ServerID  string `json:"serverId,omitempty"`
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
}

// Validate implements payload validation for MessageDeleted.
func (e *MessageDeleted) Validate() error {
	if e.MessageID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "event", "Validate",
			"MessageDeleted missing messageId")
	}
	return nil
}

// MemberJoined carries a member joining a server.
type MemberJoined struct {
	ServerID string          `json:"serverId"`
	Member   json.RawMessage `json:"member"`
}

// Validate implements payload validation for MemberJoined.
func (e *MemberJoined) Validate() error {
	if e.ServerID == "" || len(e.Member) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "event", "Validate",
			"MemberJoined missing serverId or member")
	}
	return nil
}

// MemberRemoved identifies a member leaving a server.
type MemberRemoved struct {
	ServerID string `json:"serverId"`
	UserID   string `json:"userId"`
}

// Validate implements payload validation for MemberRemoved.
func (e *MemberRemoved) Validate() error {
	if e.ServerID == "" || e.UserID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "event", "Validate",
			"MemberRemoved missing serverId or userId")
	}
	return nil
}

// ChannelCreated carries a new channel.
type ChannelCreated struct {
	ServerID string          `json:"serverId,omitempty"`
	Channel  json.RawMessage `json:"channel"`
}

// Validate implements payload validation for ChannelCreated.
func (e *ChannelCreated) Validate() error {
	if len(e.Channel) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "event", "Validate",
			"ChannelCreated missing channel")
	}
	return nil
}

// ChannelDeleted identifies a removed channel.
type ChannelDeleted struct {
	ServerID  string `json:"serverId,omitempty"`
	ChannelID string `json:"channelId"`
}

// Validate implements payload validation for ChannelDeleted.
func (e *ChannelDeleted) Validate() error {
	if e.ChannelID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "event", "Validate",
			"ChannelDeleted missing channelId")
	}
	return nil
}

// ServerUpdated carries a changed server.
type ServerUpdated struct {
	Server json.RawMessage `json:"server"`
}

// Validate implements payload validation for ServerUpdated.
func (e *ServerUpdated) Validate() error {
	if len(e.Server) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "event", "Validate",
			"ServerUpdated missing server")
	}
	return nil
}

// validator is satisfied by every typed payload.
type validator interface {
	Validate() error
}

// Decode turns a dispatch envelope into its typed payload. Unknown event
// types return ErrUnknownEvent; callers log and skip those.
func Decode(env Envelope) (any, error) {
	if env.Op != OpDispatch {
		return nil, errors.WrapInvalid(errors.ErrInvalidPayload, "event", "Decode",
			fmt.Sprintf("op %d is not a dispatch frame", env.Op))
	}

	var payload validator
	switch env.Type {
	case TypeMessageCreated:
		payload = &MessageCreated{}
	case TypeMessageUpdated:
		payload = &MessageUpdated{}
	case TypeMessageDeleted:
		payload = &MessageDeleted{}
	case TypeMemberJoined:
		payload = &MemberJoined{}
	case TypeMemberRemoved:
		payload = &MemberRemoved{}
	case TypeChannelCreated:
		payload = &ChannelCreated{}
	case TypeChannelDeleted:
		payload = &ChannelDeleted{}
	case TypeServerUpdated:
		payload = &ServerUpdated{}
	default:
		return nil, errors.WrapInvalid(errors.ErrUnknownEvent, "event", "Decode", env.Type)
	}

	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, errors.WrapInvalid(err, "event", "Decode",
			fmt.Sprintf("unmarshal %s payload", env.Type))
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

// DecodeWelcome extracts the op 1 payload.
func DecodeWelcome(env Envelope) (Welcome, error) {
	if env.Op != OpWelcome {
		return Welcome{}, errors.WrapInvalid(errors.ErrInvalidPayload, "event", "DecodeWelcome",
			fmt.Sprintf("op %d is not a welcome frame", env.Op))
	}
	var w Welcome
	if err := json.Unmarshal(env.Data, &w); err != nil {
		return Welcome{}, errors.WrapInvalid(err, "event", "DecodeWelcome", "unmarshal welcome payload")
	}
	if w.HeartbeatIntervalMs < 0 {
		return Welcome{}, errors.WrapInvalid(errors.ErrInvalidPayload, "event", "DecodeWelcome",
			"negative heartbeat interval")
	}
	return w, nil
}
