package state

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/c360/botkit/errors"
	"github.com/c360/botkit/rest"
)

// bulkThreshold is the reference count at which the resolver switches
// from per-entity fetches to one bulk list fetch. Below it, individual
// requests are cheaper; at or above it, one list call wins.
const bulkThreshold = 5

// Mentions are the raw references carried on a message payload. The
// wire shape is arrays of {"id": ...} objects.
type Mentions struct {
	Users    []rest.UserID
	Channels []rest.ChannelID
	Roles    []rest.RoleID
	Everyone bool
	Here     bool
}

// UnmarshalJSON flattens the wire's id-object arrays into plain slices.
func (m *Mentions) UnmarshalJSON(data []byte) error {
	var raw struct {
		Users []struct {
			ID rest.UserID `json:"id"`
		} `json:"users"`
		Channels []struct {
			ID rest.ChannelID `json:"id"`
		} `json:"channels"`
		Roles []struct {
			ID rest.RoleID `json:"id"`
		} `json:"roles"`
		Everyone bool `json:"everyone"`
		Here     bool `json:"here"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Mentions{Everyone: raw.Everyone, Here: raw.Here}
	for _, u := range raw.Users {
		m.Users = append(m.Users, u.ID)
	}
	for _, c := range raw.Channels {
		m.Channels = append(m.Channels, c.ID)
	}
	for _, r := range raw.Roles {
		m.Roles = append(m.Roles, r.ID)
	}
	return nil
}

// Empty reports whether the mentions reference nothing.
func (m *Mentions) Empty() bool {
	return m == nil ||
		(len(m.Users) == 0 && len(m.Channels) == 0 && len(m.Roles) == 0 &&
			!m.Everyone && !m.Here)
}

// Resolved is the outcome of resolving mention references. Users that
// are no longer server members come back in Users instead of Members.
type Resolved struct {
	Members  []*Member
	Users    []*User
	Channels []*Channel
	Roles    []*Role
	Everyone bool
	Here     bool
}

// FillOptions tune one resolution pass.
type FillOptions struct {
	// IgnoreCache refetches every reference even when cached.
	IgnoreCache bool
	// IgnoreErrors logs per-reference failures and keeps going instead
	// of aborting on the first one.
	IgnoreErrors bool
}

// fetcher is the slice of the REST client the resolver needs.
type fetcher interface {
	GetMember(ctx context.Context, serverID rest.ServerID, userID rest.UserID) (json.RawMessage, error)
	GetMembers(ctx context.Context, serverID rest.ServerID) ([]json.RawMessage, error)
	GetUser(ctx context.Context, userID rest.UserID) (json.RawMessage, error)
	GetChannel(ctx context.Context, channelID rest.ChannelID) (json.RawMessage, error)
	GetRole(ctx context.Context, serverID rest.ServerID, roleID rest.RoleID) (json.RawMessage, error)
	GetRoles(ctx context.Context, serverID rest.ServerID) ([]json.RawMessage, error)
}

// Resolver turns mention references into cached entities, hitting the
// API only for what the cache cannot answer.
type Resolver struct {
	state  *State
	api    fetcher
	logger *slog.Logger
}

// NewResolver builds a resolver over the given cache layer and API.
func NewResolver(state *State, api fetcher, opts ...Option) *Resolver {
	o := &options{logger: slog.Default().With("component", "mentions")}
	for _, opt := range opts {
		opt(o)
	}
	return &Resolver{state: state, api: api, logger: o.logger}
}

// Fill resolves every reference in m. Users and roles belonging to a
// server amortize into one bulk fetch once enough of them are uncached;
// channels are always fetched individually because no bulk channel
// listing exists. The three reference kinds resolve concurrently; each
// writes its own slice of out, so no locking is needed.
func (r *Resolver) Fill(
	ctx context.Context,
	serverID rest.ServerID,
	m Mentions,
	opts FillOptions,
) (*Resolved, error) {
	out := &Resolved{Everyone: m.Everyone, Here: m.Here}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.fillUsers(gctx, serverID, m.Users, opts, out) })
	g.Go(func() error { return r.fillRoles(gctx, serverID, m.Roles, opts, out) })
	g.Go(func() error { return r.fillChannels(gctx, m.Channels, opts, out) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resolver) fillUsers(
	ctx context.Context,
	serverID rest.ServerID,
	ids []rest.UserID,
	opts FillOptions,
	out *Resolved,
) error {
	if len(ids) == 0 {
		return nil
	}

	// Outside a server there is no member list; each reference is a
	// plain user fetch.
	if serverID == "" {
		for _, id := range ids {
			if err := r.resolveUser(ctx, id, opts, out); err != nil {
				return err
			}
		}
		return nil
	}

	var missing []rest.UserID
	for _, id := range ids {
		if !opts.IgnoreCache {
			if member, ok := r.state.GetMember(serverID, id); ok {
				out.Members = append(out.Members, member)
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) >= bulkThreshold {
		return r.fillMembersBulk(ctx, serverID, missing, opts, out)
	}
	for _, id := range missing {
		if err := r.resolveMember(ctx, serverID, id, opts, out); err != nil {
			return err
		}
	}
	return nil
}

// fillMembersBulk fetches the whole member list once and caches only
// the referenced entries.
func (r *Resolver) fillMembersBulk(
	ctx context.Context,
	serverID rest.ServerID,
	ids []rest.UserID,
	opts FillOptions,
	out *Resolved,
) error {
	payloads, err := r.api.GetMembers(ctx, serverID)
	if err != nil {
		if !opts.IgnoreErrors {
			return err
		}
		r.logger.Warn("bulk member fetch failed, mentions left unresolved",
			"server_id", serverID, "error", err)
		return nil
	}

	wanted := make(map[rest.UserID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	found := make(map[rest.UserID]bool, len(ids))
	for _, payload := range payloads {
		member, err := DecodeMember(payload, serverID)
		if err != nil {
			r.logger.Warn("skipping malformed member payload", "server_id", serverID, "error", err)
			continue
		}
		if !wanted[member.User.ID] {
			continue
		}
		if _, err := r.state.CreateMember(payload, serverID); err != nil {
			r.logger.Warn("caching resolved member failed", "user_id", member.User.ID, "error", err)
		}
		out.Members = append(out.Members, member)
		found[member.User.ID] = true
	}

	// References missing from the member list are users who left the
	// server; fall back to plain user fetches.
	for _, id := range ids {
		if found[id] {
			continue
		}
		if err := r.resolveUser(ctx, id, opts, out); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveMember(
	ctx context.Context,
	serverID rest.ServerID,
	id rest.UserID,
	opts FillOptions,
	out *Resolved,
) error {
	payload, err := r.api.GetMember(ctx, serverID, id)
	if err != nil {
		var notFound *errors.NotFound
		if stderrors.As(err, &notFound) {
			// No longer a member; the account itself may still exist.
			return r.resolveUser(ctx, id, opts, out)
		}
		if opts.IgnoreErrors {
			r.logger.Warn("member mention unresolved", "user_id", id, "error", err)
			return nil
		}
		return err
	}

	member, err := r.state.CreateMember(payload, serverID)
	if err != nil {
		if opts.IgnoreErrors {
			r.logger.Warn("member mention payload rejected", "user_id", id, "error", err)
			return nil
		}
		return err
	}
	out.Members = append(out.Members, member)
	return nil
}

func (r *Resolver) resolveUser(
	ctx context.Context,
	id rest.UserID,
	opts FillOptions,
	out *Resolved,
) error {
	if !opts.IgnoreCache {
		if user, ok := r.state.GetUser(id); ok {
			out.Users = append(out.Users, user)
			return nil
		}
	}

	payload, err := r.api.GetUser(ctx, id)
	if err != nil {
		if opts.IgnoreErrors {
			r.logger.Warn("user mention unresolved", "user_id", id, "error", err)
			return nil
		}
		return err
	}
	user, err := r.state.CreateUser(payload)
	if err != nil {
		if opts.IgnoreErrors {
			r.logger.Warn("user mention payload rejected", "user_id", id, "error", err)
			return nil
		}
		return err
	}
	out.Users = append(out.Users, user)
	return nil
}

func (r *Resolver) fillRoles(
	ctx context.Context,
	serverID rest.ServerID,
	ids []rest.RoleID,
	opts FillOptions,
	out *Resolved,
) error {
	if len(ids) == 0 {
		return nil
	}
	if serverID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload, "state", "Fill",
			"role mentions require a server")
	}

	var missing []rest.RoleID
	for _, id := range ids {
		if !opts.IgnoreCache {
			if role, ok := r.state.GetRole(serverID, id); ok {
				out.Roles = append(out.Roles, role)
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) >= bulkThreshold {
		return r.fillRolesBulk(ctx, serverID, missing, opts, out)
	}
	for _, id := range missing {
		payload, err := r.api.GetRole(ctx, serverID, id)
		if err != nil {
			if opts.IgnoreErrors {
				r.logger.Warn("role mention unresolved", "role_id", id, "error", err)
				continue
			}
			return err
		}
		role, err := r.state.CreateRole(payload, serverID)
		if err != nil {
			if opts.IgnoreErrors {
				r.logger.Warn("role mention payload rejected", "role_id", id, "error", err)
				continue
			}
			return err
		}
		out.Roles = append(out.Roles, role)
	}
	return nil
}

func (r *Resolver) fillRolesBulk(
	ctx context.Context,
	serverID rest.ServerID,
	ids []rest.RoleID,
	opts FillOptions,
	out *Resolved,
) error {
	payloads, err := r.api.GetRoles(ctx, serverID)
	if err != nil {
		if !opts.IgnoreErrors {
			return err
		}
		r.logger.Warn("bulk role fetch failed, mentions left unresolved",
			"server_id", serverID, "error", err)
		return nil
	}

	wanted := make(map[rest.RoleID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	for _, payload := range payloads {
		role, err := DecodeRole(payload, serverID)
		if err != nil {
			r.logger.Warn("skipping malformed role payload", "server_id", serverID, "error", err)
			continue
		}
		if !wanted[role.ID] {
			continue
		}
		if _, err := r.state.CreateRole(payload, serverID); err != nil {
			r.logger.Warn("caching resolved role failed", "role_id", role.ID, "error", err)
		}
		out.Roles = append(out.Roles, role)
	}
	return nil
}

// fillChannels resolves channel references one by one.
func (r *Resolver) fillChannels(
	ctx context.Context,
	ids []rest.ChannelID,
	opts FillOptions,
	out *Resolved,
) error {
	for _, id := range ids {
		if !opts.IgnoreCache {
			if ch, ok := r.state.GetChannel(id); ok {
				out.Channels = append(out.Channels, ch)
				continue
			}
		}
		payload, err := r.api.GetChannel(ctx, id)
		if err != nil {
			if opts.IgnoreErrors {
				r.logger.Warn("channel mention unresolved", "channel_id", id, "error", err)
				continue
			}
			return err
		}
		ch, err := r.state.CreateChannel(payload)
		if err != nil {
			if opts.IgnoreErrors {
				r.logger.Warn("channel mention payload rejected", "channel_id", id, "error", err)
				continue
			}
			return err
		}
		out.Channels = append(out.Channels, ch)
	}
	return nil
}
