package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/c360/botkit/errors"
)

// Typed endpoint helpers. Each returns the raw entity payload so the
// state layer can decode and cache it at its own boundary.

// GetGatewayURL discovers the websocket endpoint for this token.
func (c *Client) GetGatewayURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.DoJSON(ctx, Request{Route: NewRoute(http.MethodGet, "/gateway")}, &out)
	if err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.WrapInvalid(errors.ErrInvalidPayload, "rest", "GetGatewayURL",
			"gateway response missing url")
	}
	return out.URL, nil
}

// SendMessage creates a message in a channel. Attachments, when present,
// switch the request to multipart encoding.
func (c *Client) SendMessage(
	ctx context.Context,
	channelID ChannelID,
	payload any,
	files ...File,
) (json.RawMessage, error) {
	var out struct {
		Message json.RawMessage `json:"message"`
	}
	err := c.DoJSON(ctx, Request{
		Route:   NewRoute(http.MethodPost, "/channels/%s/messages", channelID),
		Payload: payload,
		Files:   files,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Message, nil
}

// EditMessage replaces the content of an existing message.
func (c *Client) EditMessage(
	ctx context.Context,
	channelID ChannelID,
	messageID MessageID,
	payload any,
) (json.RawMessage, error) {
	var out struct {
		Message json.RawMessage `json:"message"`
	}
	err := c.DoJSON(ctx, Request{
		Route:   NewRoute(http.MethodPut, "/channels/%s/messages/%s", channelID, messageID),
		Payload: payload,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Message, nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID ChannelID, messageID MessageID) error {
	_, err := c.Do(ctx, Request{
		Route: NewRoute(http.MethodDelete, "/channels/%s/messages/%s", channelID, messageID),
	})
	return err
}

// GetChannelMessage fetches a single message.
func (c *Client) GetChannelMessage(
	ctx context.Context,
	channelID ChannelID,
	messageID MessageID,
) (json.RawMessage, error) {
	var out struct {
		Message json.RawMessage `json:"message"`
	}
	err := c.DoJSON(ctx, Request{
		Route: NewRoute(http.MethodGet, "/channels/%s/messages/%s", channelID, messageID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Message, nil
}

// GetChannelMessages fetches recent channel history, newest first. A
// non-positive limit uses the server default.
func (c *Client) GetChannelMessages(ctx context.Context, channelID ChannelID, limit int) ([]json.RawMessage, error) {
	req := Request{Route: NewRoute(http.MethodGet, "/channels/%s/messages", channelID)}
	if limit > 0 {
		req.Query = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}
	var out struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := c.DoJSON(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, userID UserID) (json.RawMessage, error) {
	var out struct {
		User json.RawMessage `json:"user"`
	}
	err := c.DoJSON(ctx, Request{
		Route: NewRoute(http.MethodGet, "/users/%s", userID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.User, nil
}

// GetMember fetches one server member.
func (c *Client) GetMember(ctx context.Context, serverID ServerID, userID UserID) (json.RawMessage, error) {
	var out struct {
		Member json.RawMessage `json:"member"`
	}
	err := c.DoJSON(ctx, Request{
		Route: NewRoute(http.MethodGet, "/servers/%s/members/%s", serverID, userID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Member, nil
}

// GetMembers fetches the full member list of a server in one call. The
// mention resolver uses this to amortize resolution of many references.
func (c *Client) GetMembers(ctx context.Context, serverID ServerID) ([]json.RawMessage, error) {
	var out struct {
		Members []json.RawMessage `json:"members"`
	}
	err := c.DoJSON(ctx, Request{
		Route: NewRoute(http.MethodGet, "/servers/%s/members", serverID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Members, nil
}

// GetServer fetches a server by id.
func (c *Client) GetServer(ctx context.Context, serverID ServerID) (json.RawMessage, error) {
	var out struct {
		Server json.RawMessage `json:"server"`
	}
	err := c.DoJSON(ctx, Request{
		Route: NewRoute(http.MethodGet, "/servers/%s", serverID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Server, nil
}

// GetChannel fetches a channel or thread by id.
func (c *Client) GetChannel(ctx context.Context, channelID ChannelID) (json.RawMessage, error) {
	var out struct {
		Channel json.RawMessage `json:"channel"`
	}
	err := c.DoJSON(ctx, Request{
		Route: NewRoute(http.MethodGet, "/channels/%s", channelID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Channel, nil
}

// GetRoles fetches the full role list of a server in one call.
func (c *Client) GetRoles(ctx context.Context, serverID ServerID) ([]json.RawMessage, error) {
	var out struct {
		Roles []json.RawMessage `json:"roles"`
	}
	err := c.DoJSON(ctx, Request{
		Route: NewRoute(http.MethodGet, "/servers/%s/roles", serverID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Roles, nil
}

// GetRole fetches one role.
func (c *Client) GetRole(ctx context.Context, serverID ServerID, roleID RoleID) (json.RawMessage, error) {
	var out struct {
		Role json.RawMessage `json:"role"`
	}
	err := c.DoJSON(ctx, Request{
		Route: NewRoute(http.MethodGet, "/servers/%s/roles/%s", serverID, roleID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Role, nil
}

// GetEmoji fetches one custom emoji.
func (c *Client) GetEmoji(ctx context.Context, serverID ServerID, emojiID EmojiID) (json.RawMessage, error) {
	var out struct {
		Emoji json.RawMessage `json:"emote"`
	}
	err := c.DoJSON(ctx, Request{
		Route: NewRoute(http.MethodGet, "/servers/%s/emotes/%s", serverID, emojiID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Emoji, nil
}

// CreateDMChannel opens (or reuses) a direct-message channel with a user.
func (c *Client) CreateDMChannel(ctx context.Context, userID UserID) (json.RawMessage, error) {
	var out struct {
		Channel json.RawMessage `json:"channel"`
	}
	err := c.DoJSON(ctx, Request{
		Route: NewRoute(http.MethodPost, "/users/%s/channels", userID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Channel, nil
}

// TriggerTyping signals a typing indicator in a channel.
func (c *Client) TriggerTyping(ctx context.Context, channelID ChannelID) error {
	_, err := c.Do(ctx, Request{
		Route: NewRoute(http.MethodPost, "/channels/%s/typing", channelID),
	})
	return err
}

// UploadMedia uploads one attachment to the media host and returns its
// public URL.
func (c *Client) UploadMedia(ctx context.Context, f File) (string, error) {
	if c.mediaURL == "" {
		return "", errors.WrapInvalid(errors.ErrMissingConfig, "rest", "UploadMedia",
			"media URL not configured")
	}
	var out struct {
		URL string `json:"url"`
	}
	err := c.DoJSON(ctx, Request{
		Route: &Route{Method: http.MethodPost, Base: c.mediaURL, Path: "/media/upload"},
		Files: []File{f},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

// ReadAsset downloads a platform asset by absolute URL, bypassing the API
// base. The body passes through as raw bytes (media passthrough).
func (c *Client) ReadAsset(ctx context.Context, assetURL string) ([]byte, error) {
	return c.Do(ctx, Request{Route: NewExternalRoute(http.MethodGet, assetURL)})
}
