package core

import (
	"sort"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
)

// Presence is the record kept for every identity the hub considers online.
// Client is nil while the identity waits out its grace period.
type Presence struct {
	Identity      string
	DisplayName   string
	ContactEmail  string
	StatusMessage string
	Client        *Client

	pending *pendingOffline
}

// pendingOffline is the reconciliation task armed when a connection drops
// under the grace policy. The pointer identity is what the timer callback
// compares against, so a stale callback can never finalize a newer session.
type pendingOffline struct {
	timer *clock.Timer
}

func (p *pendingOffline) stop() {
	if p != nil && p.timer != nil {
		p.timer.Stop()
	}
}

func (p *Presence) cancelPending() bool {
	if p.pending == nil {
		return false
	}
	p.pending.stop()
	p.pending = nil
	return true
}

func (p *Presence) status(state string) *StatusInfo {
	return &StatusInfo{
		Identity:      p.Identity,
		Status:        state,
		DisplayName:   p.DisplayName,
		ContactEmail:  p.ContactEmail,
		StatusMessage: p.StatusMessage,
	}
}

// registry maps identities to presence records and connections back to the
// identity they announced. Not safe for concurrent use.
type registry struct {
	records  map[string]*Presence
	byClient map[*Client]string
}

func newRegistry() *registry {
	return &registry{
		records:  make(map[string]*Presence),
		byClient: make(map[*Client]string),
	}
}

func (r *registry) get(identity string) (*Presence, bool) {
	p, ok := r.records[identity]
	return p, ok
}

func (r *registry) put(p *Presence) {
	r.records[p.Identity] = p
	if p.Client != nil {
		r.byClient[p.Client] = p.Identity
	}
}

func (r *registry) remove(p *Presence) {
	if cur, ok := r.records[p.Identity]; ok && cur == p {
		delete(r.records, p.Identity)
	}
	if p.Client != nil {
		if id, ok := r.byClient[p.Client]; ok && id == p.Identity {
			delete(r.byClient, p.Client)
		}
	}
}

func (r *registry) identityOf(c *Client) (string, bool) {
	id, ok := r.byClient[c]
	return id, ok
}

func (r *registry) unbind(c *Client) (string, bool) {
	id, ok := r.byClient[c]
	if ok {
		delete(r.byClient, c)
	}
	return id, ok
}

func (r *registry) snapshot() []StatusInfo {
	out := lo.MapToSlice(r.records, func(_ string, p *Presence) StatusInfo {
		return *p.status(StatusOnline)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

func (r *registry) pending() []*Presence {
	return lo.Filter(lo.Values(r.records), func(p *Presence, _ int) bool {
		return p.pending != nil
	})
}
