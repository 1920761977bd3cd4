package client

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/c360/botkit/errors"
	"github.com/c360/botkit/event"
	"github.com/c360/botkit/rest"
	"github.com/c360/botkit/state"
)

// handlerSet holds registered event callbacks. Registration is allowed
// at any time, including while the runtime is open.
type handlerSet struct {
	mu sync.RWMutex

	raw            []func(event.Envelope)
	messageCreated []func(context.Context, *state.Message)
	messageUpdated []func(context.Context, *state.Message)
	messageDeleted []func(context.Context, *event.MessageDeleted)
	memberJoined   []func(context.Context, *state.Member)
	memberRemoved  []func(context.Context, *event.MemberRemoved)
	channelCreated []func(context.Context, *state.Channel)
	channelDeleted []func(context.Context, *event.ChannelDeleted)
	serverUpdated  []func(context.Context, *state.Server)
}

// OnRaw registers a callback for every frame, welcome and resume
// included, before any decoding.
func (c *Client) OnRaw(fn func(event.Envelope)) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.raw = append(c.handlers.raw, fn)
}

// OnMessageCreated registers a callback for new messages. The message
// is already cached when the callback runs.
func (c *Client) OnMessageCreated(fn func(context.Context, *state.Message)) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.messageCreated = append(c.handlers.messageCreated, fn)
}

// OnMessageUpdated registers a callback for edited messages.
func (c *Client) OnMessageUpdated(fn func(context.Context, *state.Message)) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.messageUpdated = append(c.handlers.messageUpdated, fn)
}

// OnMessageDeleted registers a callback for removed messages.
func (c *Client) OnMessageDeleted(fn func(context.Context, *event.MessageDeleted)) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.messageDeleted = append(c.handlers.messageDeleted, fn)
}

// OnMemberJoined registers a callback for members joining a server.
func (c *Client) OnMemberJoined(fn func(context.Context, *state.Member)) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.memberJoined = append(c.handlers.memberJoined, fn)
}

// OnMemberRemoved registers a callback for members leaving a server.
func (c *Client) OnMemberRemoved(fn func(context.Context, *event.MemberRemoved)) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.memberRemoved = append(c.handlers.memberRemoved, fn)
}

// OnChannelCreated registers a callback for new channels.
func (c *Client) OnChannelCreated(fn func(context.Context, *state.Channel)) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.channelCreated = append(c.handlers.channelCreated, fn)
}

// OnChannelDeleted registers a callback for removed channels.
func (c *Client) OnChannelDeleted(fn func(context.Context, *event.ChannelDeleted)) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.channelDeleted = append(c.handlers.channelDeleted, fn)
}

// OnServerUpdated registers a callback for server changes.
func (c *Client) OnServerUpdated(fn func(context.Context, *state.Server)) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.serverUpdated = append(c.handlers.serverUpdated, fn)
}

// dispatch routes one frame: bridge first, then cache updates, then
// handlers. Cache updates always precede handlers so a callback sees
// the state the event produced. It runs on the dispatch pool's single
// worker, which keeps frames ordered.
func (c *Client) dispatch(ctx context.Context, env event.Envelope) error {
	c.handlers.mu.RLock()
	raw := c.handlers.raw
	c.handlers.mu.RUnlock()
	for _, fn := range raw {
		fn(env)
	}

	if c.bridge != nil {
		c.bridge.Publish(ctx, env)
	}

	if env.Op != event.OpDispatch {
		return nil
	}
	if c.core != nil {
		c.core.RecordEventReceived(env.Type)
	}

	decoded, err := event.Decode(env)
	if err != nil {
		if stderrors.Is(err, errors.ErrUnknownEvent) {
			c.logger.Debug("skipping unknown event type", "type", env.Type)
			c.recordDispatch(env.Type, "skipped")
			return nil
		}
		c.logger.Warn("event payload rejected", "type", env.Type, "error", err)
		if c.core != nil {
			c.core.RecordError("client", "decode")
		}
		c.recordDispatch(env.Type, "error")
		return err
	}

	if err := c.apply(ctx, decoded); err != nil {
		c.logger.Warn("event application failed", "type", env.Type, "error", err)
		c.recordDispatch(env.Type, "error")
		return err
	}
	c.recordDispatch(env.Type, "ok")
	return nil
}

func (c *Client) recordDispatch(eventType, status string) {
	if c.core != nil {
		c.core.RecordEventDispatched(eventType, status)
	}
}

// apply updates the caches and invokes the typed handlers.
func (c *Client) apply(ctx context.Context, decoded any) error {
	c.handlers.mu.RLock()
	defer c.handlers.mu.RUnlock()

	switch ev := decoded.(type) {
	case *event.MessageCreated:
		msg, err := c.state.CreateMessage(ev.Message)
		if err != nil {
			return err
		}
		for _, fn := range c.handlers.messageCreated {
			fn(ctx, msg)
		}

	case *event.MessageUpdated:
		msg, err := c.state.CreateMessage(ev.Message)
		if err != nil {
			return err
		}
		for _, fn := range c.handlers.messageUpdated {
			fn(ctx, msg)
		}

	case *event.MessageDeleted:
		c.state.ForgetMessage(rest.MessageID(ev.MessageID))
		for _, fn := range c.handlers.messageDeleted {
			fn(ctx, ev)
		}

	case *event.MemberJoined:
		member, err := c.state.CreateMember(ev.Member, rest.ServerID(ev.ServerID))
		if err != nil {
			return err
		}
		for _, fn := range c.handlers.memberJoined {
			fn(ctx, member)
		}

	case *event.MemberRemoved:
		c.state.ForgetMember(rest.ServerID(ev.ServerID), rest.UserID(ev.UserID))
		for _, fn := range c.handlers.memberRemoved {
			fn(ctx, ev)
		}

	case *event.ChannelCreated:
		ch, err := c.state.CreateChannel(ev.Channel)
		if err != nil {
			return err
		}
		for _, fn := range c.handlers.channelCreated {
			fn(ctx, ch)
		}

	case *event.ChannelDeleted:
		c.state.ForgetChannel(rest.ChannelID(ev.ChannelID))
		for _, fn := range c.handlers.channelDeleted {
			fn(ctx, ev)
		}

	case *event.ServerUpdated:
		srv, err := c.state.CreateServer(ev.Server)
		if err != nil {
			return err
		}
		for _, fn := range c.handlers.serverUpdated {
			fn(ctx, srv)
		}
	}
	return nil
}
