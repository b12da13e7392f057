package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

// AccountNotifier tells the external account service that an identity logged out.
type AccountNotifier interface {
	NotifyLogout(ctx context.Context, identity string) error
}

// Blocklist persists admin block decisions.
type Blocklist interface {
	SetBlocked(ctx context.Context, subject string, blocked bool) error
}

// Hub owns the presence registry and the room index. All state is guarded by
// a single mutex; calls to external collaborators happen outside of it.
type Hub struct {
	mu       sync.Mutex
	clients  map[*Client]struct{}
	registry *registry
	rooms    *roomIndex
	blocked  map[string]struct{}
	closed   bool

	gate      *Gate
	accounts  AccountNotifier
	blocklist Blocklist
	policy    DisconnectPolicy
	grace     time.Duration

	notifyOnDisconnect bool
	notifyTimeout      time.Duration

	clock   clock.Clock
	log     *zerolog.Logger
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	bg     conc.WaitGroup
}

// Option configures a Hub.
type Option func(*hubOptions)

type hubOptions struct {
	moderator          Moderator
	moderationTimeout  time.Duration
	accounts           AccountNotifier
	blocklist          Blocklist
	policy             DisconnectPolicy
	grace              time.Duration
	notifyOnDisconnect bool
	notifyTimeout      time.Duration
	clock              clock.Clock
	logger             *zerolog.Logger
}

// WithModerator sets the moderation backend consulted on register and join.
func WithModerator(m Moderator, timeout time.Duration) Option {
	return func(o *hubOptions) {
		o.moderator = m
		o.moderationTimeout = timeout
	}
}

// WithAccounts sets the account service notified on logout.
func WithAccounts(a AccountNotifier, timeout time.Duration) Option {
	return func(o *hubOptions) {
		o.accounts = a
		o.notifyTimeout = timeout
	}
}

// WithBlocklist sets where admin block decisions are persisted.
func WithBlocklist(b Blocklist) Option {
	return func(o *hubOptions) { o.blocklist = b }
}

// WithDisconnectPolicy selects how connection loss is reconciled.
func WithDisconnectPolicy(p DisconnectPolicy, grace time.Duration) Option {
	return func(o *hubOptions) {
		o.policy = p
		o.grace = grace
	}
}

// WithNotifyOnDisconnect controls whether finalizing a lost connection also
// notifies the account service. Explicit logouts always notify.
func WithNotifyOnDisconnect(notify bool) Option {
	return func(o *hubOptions) { o.notifyOnDisconnect = notify }
}

// WithClock replaces the wall clock used for grace timers.
func WithClock(c clock.Clock) Option {
	return func(o *hubOptions) { o.clock = c }
}

// WithLogger sets the hub logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *hubOptions) { o.logger = l }
}

// NewHub creates a hub. Without options it uses the grace policy with the
// default period, no moderation and no account service.
func NewHub(opts ...Option) *Hub {
	o := hubOptions{
		policy:             PolicyGrace,
		grace:              DefaultGracePeriod,
		notifyOnDisconnect: true,
		notifyTimeout:      DefaultModerationTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.logger == nil {
		nop := zerolog.Nop()
		o.logger = &nop
	}
	if o.notifyTimeout <= 0 {
		o.notifyTimeout = DefaultModerationTimeout
	}
	if o.policy == PolicyGrace && o.grace <= 0 {
		o.grace = DefaultGracePeriod
	}

	metrics := &Metrics{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:            make(map[*Client]struct{}),
		registry:           newRegistry(),
		rooms:              newRoomIndex(),
		blocked:            make(map[string]struct{}),
		gate:               NewGate(o.moderator, o.moderationTimeout, o.logger, metrics),
		accounts:           o.accounts,
		blocklist:          o.blocklist,
		policy:             o.policy,
		grace:              o.grace,
		notifyOnDisconnect: o.notifyOnDisconnect,
		notifyTimeout:      o.notifyTimeout,
		clock:              o.clock,
		log:                o.logger,
		metrics:            metrics,
		ctx:                ctx,
		cancel:             cancel,
	}
}

// Run blocks until ctx is cancelled, then closes the hub.
func (h *Hub) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-h.ctx.Done():
	}
	h.Close()
}

// Close stops pending reconciliation timers, forgets every client and waits
// for in-flight background notifications. Safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.cancel()
	for _, p := range h.registry.pending() {
		p.cancelPending()
	}
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	h.bg.Wait()
	h.log.Info().Msg("hub closed")
}

// RegisterClient attaches a live connection and starts processing the
// commands it sends.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.log.Debug().Str("client_id", c.ID).Msg("client connected")
	go h.serve(c)
}

// UnregisterClient handles connection loss: the client leaves every room and,
// if it carried an identity, the disconnect policy decides what happens next.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	h.rooms.leaveAll(c)
	h.log.Debug().Str("client_id", c.ID).Msg("client disconnected")

	identity, ok := h.registry.unbind(c)
	if !ok {
		return
	}
	rec, ok := h.registry.get(identity)
	if !ok || rec.Client != c {
		return
	}
	h.connectionLostLocked(rec)
}

// Metrics returns a snapshot of the hub counters.
func (h *Hub) Metrics() MetricsSnapshot {
	snap := h.metrics.snapshot()
	h.mu.Lock()
	snap.OnlineUsers = len(h.registry.records)
	snap.Connections = len(h.clients)
	snap.Rooms = h.rooms.size()
	h.mu.Unlock()
	return snap
}

func (h *Hub) serve(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd != nil {
				h.Handle(h.ctx, c, cmd)
			}
		case <-c.done:
			return
		case <-h.ctx.Done():
			return
		}
	}
}

// Handle executes one client command. Failures are reported to the client as
// error events; nothing here affects other connections.
func (h *Hub) Handle(ctx context.Context, c *Client, cmd *Command) {
	var err error
	switch cmd.Kind {
	case CommandRegister:
		err = h.Register(ctx, c, cmd.Profile)
	case CommandJoinRoom:
		err = h.JoinRoom(ctx, c, cmd.Room)
	case CommandSendRoomMessage:
		_, err = h.SendMessage(cmd.Message)
	case CommandAdminBlock:
		err = h.AdminSetBlocked(cmd.Identity, cmd.Blocked)
	case CommandLogout:
		err = h.Logout(cmd.Identity)
	case CommandRequestStatus:
		err = h.RequestStatus(c, cmd.Identity)
	default:
		c.Send(ErrorEvent(ErrCodeBadRequest, "unknown command"))
		return
	}
	if err != nil {
		h.replyError(c, err)
	}
}

func (h *Hub) replyError(c *Client, err error) {
	switch {
	case errors.Is(err, ErrInvalidIdentity):
		c.Send(ErrorEvent(ErrCodeInvalidIdentity, err.Error()))
	case errors.Is(err, ErrInvalidRoom):
		c.Send(ErrorEvent(ErrCodeInvalidRoom, err.Error()))
	case errors.Is(err, ErrClientGone), errors.Is(err, ErrHubClosed):
	default:
		h.log.Warn().Err(err).Str("client_id", c.ID).Msg("command failed")
		c.Send(ErrorEvent(ErrCodeBadRequest, err.Error()))
	}
}

func (h *Hub) connectedLocked(c *Client) bool {
	_, ok := h.clients[c]
	return ok
}

func (h *Hub) isBlockedLocked(subject string) bool {
	_, ok := h.blocked[subject]
	return ok
}

// deliverLocked sends ev to every client in to. Slow consumers are skipped.
func (h *Hub) deliverLocked(to []*Client, ev *Event) int {
	sent := 0
	for _, c := range to {
		if c.Send(ev) {
			sent++
			continue
		}
		h.metrics.SlowConsumerDrops.Add(1)
		h.log.Debug().Str("client_id", c.ID).Msg("dropping event for slow consumer")
	}
	return sent
}

func (h *Hub) broadcastAllLocked(ev *Event) {
	to := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		to = append(to, c)
	}
	h.deliverLocked(to, ev)
}

// goLocked runs fn in the background unless the hub is closing.
func (h *Hub) goLocked(fn func()) {
	if h.closed {
		return
	}
	h.bg.Go(fn)
}
