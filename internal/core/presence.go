package core

import (
	"context"
	"encoding/json"
)

// Register announces the identity behind c. The moderation gate is consulted
// before any state changes; a blocked identity only gets a user-blocked
// notification. Re-registering an identity replaces its connection and
// cancels a pending offline transition without broadcasting offline.
func (h *Hub) Register(ctx context.Context, c *Client, p Profile) error {
	if p.Identity == "" {
		h.log.Warn().Str("client_id", c.ID).Msg("register without identity")
		return ErrInvalidIdentity
	}

	blocked := h.gate.Blocked(ctx, p.Identity)

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registerLocked(c, p, blocked)
}

// registerLocked applies a registration once the gate has answered.
func (h *Hub) registerLocked(c *Client, p Profile, blocked bool) error {
	if h.closed {
		return ErrHubClosed
	}
	// The connection may have dropped while the gate was consulted.
	if !h.connectedLocked(c) {
		return ErrClientGone
	}
	if blocked || h.isBlockedLocked(p.Identity) {
		h.log.Info().Str("identity", p.Identity).Str("client_id", c.ID).Msg("registration refused, identity blocked")
		c.Send(&Event{Kind: EventUserBlocked, Identity: p.Identity, Blocked: true})
		return nil
	}

	if prev, ok := h.registry.identityOf(c); ok && prev != p.Identity {
		// The connection stops receiving notifications aimed at its old identity.
		h.rooms.leave(RoomKey(prev), c)
		if old, ok := h.registry.get(prev); ok && old.Client == c {
			h.log.Info().Str("identity", prev).Str("next", p.Identity).Msg("connection switched identity")
			h.finalizeLocked(old, false)
		}
	}

	rec, existed := h.registry.get(p.Identity)
	if existed {
		if rec.cancelPending() {
			h.metrics.GraceResumed.Add(1)
			h.log.Debug().Str("identity", p.Identity).Msg("reconnected within grace period")
		}
		if rec.Client != nil && rec.Client != c {
			h.registry.unbind(rec.Client)
		}
	} else {
		rec = &Presence{Identity: p.Identity}
	}
	rec.DisplayName = p.DisplayName
	rec.ContactEmail = p.ContactEmail
	rec.StatusMessage = p.StatusMessage
	rec.Client = c
	h.registry.put(rec)
	h.rooms.join(RoomKey(p.Identity), c)
	h.metrics.Registrations.Add(1)

	status := rec.status(StatusOnline)
	status.Timestamp = p.Timestamp
	h.broadcastAllLocked(&Event{Kind: EventUserStatus, Identity: p.Identity, Status: status})
	h.broadcastAllLocked(&Event{Kind: EventOnlineUsers, Online: h.registry.snapshot()})

	h.log.Info().Str("identity", p.Identity).Str("client_id", c.ID).Bool("existing", existed).Msg("identity registered")
	return nil
}

// LookupStatus reports the presence of identity. Unknown identities are
// offline with empty metadata. Identities inside their grace period are
// still online.
func (h *Hub) LookupStatus(identity string) StatusInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rec, ok := h.registry.get(identity); ok {
		return *rec.status(StatusOnline)
	}
	return StatusInfo{Identity: identity, Status: StatusOffline}
}

// OnlineUsers returns every identity with a presence record, sorted.
func (h *Hub) OnlineUsers() []StatusInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.snapshot()
}

// RequestStatus answers a status query to the requesting client only.
func (h *Hub) RequestStatus(c *Client, identity string) error {
	if identity == "" {
		return ErrInvalidIdentity
	}
	status := h.LookupStatus(identity)
	status.Timestamp, _ = json.Marshal(h.clock.Now().UnixMilli())
	c.Send(&Event{Kind: EventUserStatus, Identity: identity, Status: &status})
	return nil
}

// Logout finalizes identity immediately regardless of the disconnect policy
// and broadcasts a logged-out event. Unknown identities are ignored.
func (h *Hub) Logout(identity string) error {
	if identity == "" {
		return ErrInvalidIdentity
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.registry.get(identity)
	if !ok {
		h.log.Warn().Str("identity", identity).Msg("logout for unknown identity")
		return nil
	}
	h.finalizeLocked(rec, true)
	h.broadcastAllLocked(&Event{Kind: EventLoggedOut, Identity: identity})

	h.log.Info().Str("identity", identity).Msg("identity logged out")
	return nil
}

// AdminSetBlocked records an admin block decision. Blocking forces the
// identity offline at once, skipping any grace period. The caller is assumed
// to be authorized.
func (h *Hub) AdminSetBlocked(identity string, blocked bool) error {
	if identity == "" {
		return ErrInvalidIdentity
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	if blocked {
		h.blocked[identity] = struct{}{}
	} else {
		delete(h.blocked, identity)
	}

	key := RoomKey(identity)
	h.deliverLocked(h.rooms.members(key), &Event{Kind: EventUserBlocked, Room: key, Identity: identity, Blocked: blocked})
	h.broadcastAllLocked(&Event{Kind: EventBlockStateChanged, Identity: identity, Blocked: blocked})

	if rec, ok := h.registry.get(identity); ok && blocked {
		h.finalizeLocked(rec, false)
	}
	blocklist := h.blocklist
	h.mu.Unlock()

	h.log.Info().Str("identity", identity).Bool("blocked", blocked).Msg("block state changed")

	if blocklist != nil {
		ctx, cancel := context.WithTimeout(h.ctx, h.notifyTimeout)
		defer cancel()
		if err := blocklist.SetBlocked(ctx, identity, blocked); err != nil {
			h.log.Warn().Err(err).Str("identity", identity).Msg("failed to persist block state")
		}
	}
	return nil
}
