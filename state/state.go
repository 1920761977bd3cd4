// Package state holds the in-memory entity caches fed by gateway events
// and REST responses, plus the mention resolver that turns raw mention
// references into cached entities.
//
// Every entity kind gets its own cache. Messages use bounded FIFO
// eviction so a busy channel cannot grow memory without limit; the
// other kinds are unbounded because their population is naturally
// bounded by server membership.
package state

import (
	"log/slog"

	"github.com/c360/botkit/config"
	"github.com/c360/botkit/errors"
	"github.com/c360/botkit/metric"
	"github.com/c360/botkit/pkg/cache"
	"github.com/c360/botkit/rest"
)

// State is the entity cache layer. All methods are safe for concurrent
// use; safety lives in the underlying caches.
type State struct {
	logger *slog.Logger

	users    cache.Cache[*User]
	servers  cache.Cache[*Server]
	members  cache.Cache[*Member]
	channels cache.Cache[*Channel]
	messages cache.Cache[*Message]
	roles    cache.Cache[*Role]
	emoji    cache.Cache[*Emoji]
}

// Option configures optional collaborators.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.With("component", "state")
		}
	}
}

// WithMetrics exports per-cache hit/miss/eviction metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// New builds the cache layer. Message history follows cfg.Messages;
// every other kind uses an unbounded cache.
func New(cfg config.CacheConfig, opts ...Option) (*State, error) {
	o := &options{logger: slog.Default().With("component", "state")}
	for _, opt := range opts {
		opt(o)
	}

	s := &State{logger: o.logger}

	var err error
	if s.users, err = newSimple[*User](o, "state_users"); err != nil {
		return nil, err
	}
	if s.servers, err = newSimple[*Server](o, "state_servers"); err != nil {
		return nil, err
	}
	if s.members, err = newSimple[*Member](o, "state_members"); err != nil {
		return nil, err
	}
	if s.channels, err = newSimple[*Channel](o, "state_channels"); err != nil {
		return nil, err
	}
	if s.roles, err = newSimple[*Role](o, "state_roles"); err != nil {
		return nil, err
	}
	if s.emoji, err = newSimple[*Emoji](o, "state_emoji"); err != nil {
		return nil, err
	}

	msgCfg := cfg.Messages
	if msgCfg.Strategy == "" {
		msgCfg = cache.DefaultMessageConfig()
	}
	var msgOpts []cache.Option[*Message]
	if o.registry != nil {
		msgOpts = append(msgOpts, cache.WithMetrics[*Message](o.registry, "state_messages"))
	}
	msgOpts = append(msgOpts, cache.WithEvictionCallback[*Message](func(key string, _ *Message) {
		o.logger.Debug("message evicted from history", "message_id", key)
	}))
	if s.messages, err = cache.NewFromConfig[*Message](msgCfg, msgOpts...); err != nil {
		return nil, errors.WrapInvalid(err, "state", "New", "build message cache")
	}

	return s, nil
}

func newSimple[V any](o *options, prefix string) (cache.Cache[V], error) {
	var copts []cache.Option[V]
	if o.registry != nil {
		copts = append(copts, cache.WithMetrics[V](o.registry, prefix))
	}
	c, err := cache.NewSimple[V](copts...)
	if err != nil {
		return nil, errors.WrapInvalid(err, "state", "New", "build "+prefix+" cache")
	}
	return c, nil
}

// Close releases all caches.
func (s *State) Close() error {
	for _, c := range []interface{ Close() error }{
		s.users, s.servers, s.members, s.channels, s.messages, s.roles, s.emoji,
	} {
		_ = c.Close()
	}
	return nil
}

// memberKey scopes a member to one server.
func memberKey(serverID rest.ServerID, userID rest.UserID) string {
	return string(serverID) + ":" + string(userID)
}

// roleKey scopes a role to one server.
func roleKey(serverID rest.ServerID, roleID rest.RoleID) string {
	return string(serverID) + ":" + string(roleID)
}

// CreateUser decodes, validates, and caches a user payload. An existing
// entry with the same id is replaced.
func (s *State) CreateUser(payload []byte) (*User, error) {
	u, err := DecodeUser(payload)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Set(string(u.ID), u); err != nil {
		return nil, errors.WrapInvalid(err, "state", "CreateUser", "cache user")
	}
	return u, nil
}

// GetUser returns a cached user.
func (s *State) GetUser(id rest.UserID) (*User, bool) {
	return s.users.Get(string(id))
}

// ForgetUser drops a user from the cache.
func (s *State) ForgetUser(id rest.UserID) {
	_, _ = s.users.Delete(string(id))
}

// CreateServer decodes, validates, and caches a server payload.
func (s *State) CreateServer(payload []byte) (*Server, error) {
	srv, err := DecodeServer(payload)
	if err != nil {
		return nil, err
	}
	if _, err := s.servers.Set(string(srv.ID), srv); err != nil {
		return nil, errors.WrapInvalid(err, "state", "CreateServer", "cache server")
	}
	return srv, nil
}

// GetServer returns a cached server.
func (s *State) GetServer(id rest.ServerID) (*Server, bool) {
	return s.servers.Get(string(id))
}

// ForgetServer drops a server from the cache.
func (s *State) ForgetServer(id rest.ServerID) {
	_, _ = s.servers.Delete(string(id))
}

// CreateMember decodes, validates, and caches a member payload. The
// member's user is cached too so user lookups stay warm.
func (s *State) CreateMember(payload []byte, serverID rest.ServerID) (*Member, error) {
	m, err := DecodeMember(payload, serverID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.Set(memberKey(serverID, m.User.ID), m); err != nil {
		return nil, errors.WrapInvalid(err, "state", "CreateMember", "cache member")
	}
	user := m.User
	_, _ = s.users.Set(string(user.ID), &user)
	return m, nil
}

// GetMember returns a cached member of one server.
func (s *State) GetMember(serverID rest.ServerID, userID rest.UserID) (*Member, bool) {
	return s.members.Get(memberKey(serverID, userID))
}

// ForgetMember drops a member from the cache.
func (s *State) ForgetMember(serverID rest.ServerID, userID rest.UserID) {
	_, _ = s.members.Delete(memberKey(serverID, userID))
}

// CreateChannel decodes, validates, and caches a channel payload.
func (s *State) CreateChannel(payload []byte) (*Channel, error) {
	c, err := DecodeChannel(payload)
	if err != nil {
		return nil, err
	}
	if _, err := s.channels.Set(string(c.ID), c); err != nil {
		return nil, errors.WrapInvalid(err, "state", "CreateChannel", "cache channel")
	}
	return c, nil
}

// GetChannel returns a cached channel.
func (s *State) GetChannel(id rest.ChannelID) (*Channel, bool) {
	return s.channels.Get(string(id))
}

// ForgetChannel drops a channel from the cache.
func (s *State) ForgetChannel(id rest.ChannelID) {
	_, _ = s.channels.Delete(string(id))
}

// CreateMessage decodes, validates, and caches a message payload. When
// the history is full the oldest cached message is evicted.
func (s *State) CreateMessage(payload []byte) (*Message, error) {
	m, err := DecodeMessage(payload)
	if err != nil {
		return nil, err
	}
	if _, err := s.messages.Set(string(m.ID), m); err != nil {
		return nil, errors.WrapInvalid(err, "state", "CreateMessage", "cache message")
	}
	return m, nil
}

// GetMessage returns a cached message.
func (s *State) GetMessage(id rest.MessageID) (*Message, bool) {
	return s.messages.Get(string(id))
}

// ForgetMessage drops a message from the history.
func (s *State) ForgetMessage(id rest.MessageID) {
	_, _ = s.messages.Delete(string(id))
}

// MessageHistorySize reports how many messages are cached.
func (s *State) MessageHistorySize() int {
	return s.messages.Size()
}

// CreateRole decodes, validates, and caches a role payload.
func (s *State) CreateRole(payload []byte, serverID rest.ServerID) (*Role, error) {
	r, err := DecodeRole(payload, serverID)
	if err != nil {
		return nil, err
	}
	if _, err := s.roles.Set(roleKey(r.ServerID, r.ID), r); err != nil {
		return nil, errors.WrapInvalid(err, "state", "CreateRole", "cache role")
	}
	return r, nil
}

// GetRole returns a cached role of one server.
func (s *State) GetRole(serverID rest.ServerID, roleID rest.RoleID) (*Role, bool) {
	return s.roles.Get(roleKey(serverID, roleID))
}

// ForgetRole drops a role from the cache.
func (s *State) ForgetRole(serverID rest.ServerID, roleID rest.RoleID) {
	_, _ = s.roles.Delete(roleKey(serverID, roleID))
}

// CreateEmoji decodes, validates, and caches an emoji payload.
func (s *State) CreateEmoji(payload []byte, serverID rest.ServerID) (*Emoji, error) {
	e, err := DecodeEmoji(payload, serverID)
	if err != nil {
		return nil, err
	}
	if _, err := s.emoji.Set(string(e.ID), e); err != nil {
		return nil, errors.WrapInvalid(err, "state", "CreateEmoji", "cache emoji")
	}
	return e, nil
}

// GetEmoji returns a cached emoji.
func (s *State) GetEmoji(id rest.EmojiID) (*Emoji, bool) {
	return s.emoji.Get(string(id))
}

// ForgetEmoji drops an emoji from the cache.
func (s *State) ForgetEmoji(id rest.EmojiID) {
	_, _ = s.emoji.Delete(string(id))
}
