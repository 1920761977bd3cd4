package client

import (
	"context"

	"github.com/c360/botkit/rest"
	"github.com/c360/botkit/state"
)

// MessagePayload is the body of a message create or edit call.
type MessagePayload struct {
	Content         string           `json:"content,omitempty"`
	ReplyMessageIDs []rest.MessageID `json:"replyMessageIds,omitempty"`
	IsPrivate       bool             `json:"isPrivate,omitempty"`
	IsSilent        bool             `json:"isSilent,omitempty"`
}

// SendMessage posts a message and caches the created entity.
func (c *Client) SendMessage(
	ctx context.Context,
	channelID rest.ChannelID,
	payload MessagePayload,
	files ...rest.File,
) (*state.Message, error) {
	raw, err := c.rest.SendMessage(ctx, channelID, payload, files...)
	if err != nil {
		return nil, err
	}
	return c.state.CreateMessage(raw)
}

// Reply posts a message referencing an existing one.
func (c *Client) Reply(
	ctx context.Context,
	channelID rest.ChannelID,
	replyTo rest.MessageID,
	content string,
) (*state.Message, error) {
	return c.SendMessage(ctx, channelID, MessagePayload{
		Content:         content,
		ReplyMessageIDs: []rest.MessageID{replyTo},
	})
}

// EditMessage replaces a message body and refreshes the cache entry.
func (c *Client) EditMessage(
	ctx context.Context,
	channelID rest.ChannelID,
	messageID rest.MessageID,
	payload MessagePayload,
) (*state.Message, error) {
	raw, err := c.rest.EditMessage(ctx, channelID, messageID, payload)
	if err != nil {
		return nil, err
	}
	return c.state.CreateMessage(raw)
}

// DeleteMessage removes a message remotely and from the local history.
func (c *Client) DeleteMessage(ctx context.Context, channelID rest.ChannelID, messageID rest.MessageID) error {
	if err := c.rest.DeleteMessage(ctx, channelID, messageID); err != nil {
		return err
	}
	c.state.ForgetMessage(messageID)
	return nil
}

// ResolveMentions fills the mention references of a message. A message
// without mentions resolves to an empty result.
func (c *Client) ResolveMentions(
	ctx context.Context,
	msg *state.Message,
	opts state.FillOptions,
) (*state.Resolved, error) {
	if msg.Mentions.Empty() {
		return &state.Resolved{}, nil
	}
	return c.resolver.Fill(ctx, msg.ServerID, *msg.Mentions, opts)
}
