package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DisconnectPolicy decides what happens to an identity whose connection drops.
type DisconnectPolicy string

const (
	// PolicyImmediate marks the identity offline as soon as the connection drops.
	PolicyImmediate DisconnectPolicy = "immediate"
	// PolicyGrace keeps the identity online for a grace period awaiting a re-register.
	PolicyGrace DisconnectPolicy = "grace"
)

// DefaultGracePeriod is how long a dropped identity stays online.
const DefaultGracePeriod = 7 * time.Second

// ParseDisconnectPolicy converts a config value into a DisconnectPolicy.
func ParseDisconnectPolicy(s string) (DisconnectPolicy, error) {
	switch p := DisconnectPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyImmediate, PolicyGrace:
		return p, nil
	case "":
		return PolicyGrace, nil
	default:
		return "", fmt.Errorf("unknown disconnect policy %q", s)
	}
}

// connectionLostLocked applies the disconnect policy to a record whose
// connection just went away.
func (h *Hub) connectionLostLocked(rec *Presence) {
	if h.policy == PolicyImmediate {
		h.finalizeLocked(rec, h.notifyOnDisconnect)
		return
	}

	rec.Client = nil
	rec.cancelPending()

	identity := rec.Identity
	p := &pendingOffline{}
	p.timer = h.clock.AfterFunc(h.grace, func() { h.expire(identity, p) })
	rec.pending = p

	h.metrics.GraceScheduled.Add(1)
	h.log.Debug().Str("identity", identity).Dur("grace", h.grace).Msg("connection lost, holding presence")
}

// expire runs when a grace timer fires. It only finalizes when the record
// still carries this exact task; a re-register or logout in between wins.
func (h *Hub) expire(identity string, p *pendingOffline) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	rec, ok := h.registry.get(identity)
	if !ok || rec.pending != p {
		h.metrics.GraceStale.Add(1)
		h.log.Debug().Str("identity", identity).Msg("stale grace timer ignored")
		return
	}
	rec.pending = nil
	h.metrics.GraceExpired.Add(1)
	h.log.Info().Str("identity", identity).Msg("grace period expired")
	h.finalizeLocked(rec, h.notifyOnDisconnect)
}

// finalizeLocked removes the record and broadcasts offline. The account
// service is notified in the background when notify is set.
func (h *Hub) finalizeLocked(rec *Presence, notify bool) {
	rec.cancelPending()
	h.registry.remove(rec)
	h.broadcastAllLocked(&Event{Kind: EventUserStatus, Identity: rec.Identity, Status: rec.status(StatusOffline)})
	if notify {
		h.notifyLogoutLocked(rec.Identity)
	}
}

func (h *Hub) notifyLogoutLocked(identity string) {
	if h.accounts == nil {
		return
	}
	accounts := h.accounts
	timeout := h.notifyTimeout
	h.goLocked(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := accounts.NotifyLogout(ctx, identity); err != nil {
			h.metrics.NotifyFailures.Add(1)
			h.log.Warn().Err(err).Str("identity", identity).Msg("logout notification failed")
		}
	})
}
