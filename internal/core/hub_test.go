package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirerelay/internal/core"
)

func TestHubRegisterBroadcastsStatusAndSnapshot(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")
	bob := connect(hub, "b")

	register(t, hub, alice, "u1")

	ev := mustEventWhere(t, bob.Events, isStatus("u1", core.StatusOnline))
	assert.Equal(t, "u1-name", ev.Status.DisplayName)
	assert.Equal(t, "u1@example.com", ev.Status.ContactEmail)

	snap := mustEvent(t, bob.Events, core.EventOnlineUsers)
	require.Len(t, snap.Online, 1)
	assert.Equal(t, "u1", snap.Online[0].Identity)
	assert.Equal(t, core.StatusOnline, snap.Online[0].Status)

	assert.True(t, hub.LookupStatus("u1").Online())
}

func TestHubRegisterWithoutIdentity(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")
	bob := connect(hub, "b")

	err := hub.Register(context.Background(), alice, core.Profile{DisplayName: "nobody"})
	require.ErrorIs(t, err, core.ErrInvalidIdentity)
	assert.Empty(t, drain(bob))
	assert.Empty(t, hub.OnlineUsers())
}

func TestHubCommandsFromClientChannel(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")

	alice.Commands <- &core.Command{Kind: core.CommandRegister, Profile: core.Profile{}}
	ev := mustEvent(t, alice.Events, core.EventError)
	require.NotNil(t, ev.Error)
	assert.Equal(t, core.ErrCodeInvalidIdentity, ev.Error.Code)

	alice.Commands <- &core.Command{Kind: core.CommandRegister, Profile: core.Profile{Identity: "u1"}}
	mustEventWhere(t, alice.Events, isStatus("u1", core.StatusOnline))

	alice.Commands <- &core.Command{Kind: core.CommandJoinRoom, Room: "general"}
	joined := mustEvent(t, alice.Events, core.EventRoomJoined)
	assert.Equal(t, core.RoomKey("general"), joined.Room)

	alice.Commands <- &core.Command{
		Kind:    core.CommandSendRoomMessage,
		Message: core.Message{Room: "general", Text: rawString("hi"), SenderIdentity: rawString("u1")},
	}
	msg := mustEvent(t, alice.Events, core.EventRoomMessage)
	assert.JSONEq(t, `"hi"`, string(msg.Message.Text))
}

func TestHubReRegisterKeepsSingleRecord(t *testing.T) {
	hub := newTestHub(t)

	first := connect(hub, "a1")
	second := connect(hub, "a2")

	register(t, hub, first, "u1")
	register(t, hub, second, "u1")

	online := hub.OnlineUsers()
	require.Len(t, online, 1)

	// The older connection no longer owns the identity.
	drain(second)
	hub.UnregisterClient(first)
	assert.True(t, hub.LookupStatus("u1").Online())
	assert.Zero(t, countWhere(drain(second), isStatus("u1", core.StatusOffline)))
}

func TestHubSwitchingIdentityFinalizesPrevious(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")
	bob := connect(hub, "b")

	register(t, hub, alice, "u1")
	register(t, hub, alice, "u2")

	mustEventWhere(t, bob.Events, isStatus("u1", core.StatusOffline))
	assert.False(t, hub.LookupStatus("u1").Online())
	assert.True(t, hub.LookupStatus("u2").Online())
}

func TestHubSwitchingIdentityLeavesPreviousIdentityRoom(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")
	register(t, hub, alice, "u1")
	register(t, hub, alice, "u2")
	drain(alice)

	require.NoError(t, hub.AdminSetBlocked("u1", true))

	events := drain(alice)
	assert.Zero(t, countWhere(events, func(ev *core.Event) bool { return ev.Kind == core.EventUserBlocked }))
	assert.Equal(t, 1, countWhere(events, func(ev *core.Event) bool {
		return ev.Kind == core.EventBlockStateChanged && ev.Identity == "u1"
	}))

	// Messages addressed to the old identity no longer reach the connection.
	sent, err := hub.SendMessage(core.Message{Room: "u1", Text: rawString("late")})
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.True(t, hub.LookupStatus("u2").Online())
}

func TestHubJoinCanonicalizesNumericKeys(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")
	bob := connect(hub, "b")

	numeric, err := core.CanonicalKey(42)
	require.NoError(t, err)
	text, err := core.CanonicalKey("42")
	require.NoError(t, err)

	require.NoError(t, hub.JoinRoom(context.Background(), alice, numeric))
	require.NoError(t, hub.JoinRoom(context.Background(), bob, text))
	require.NoError(t, hub.JoinRoom(context.Background(), bob, text))

	sent, err := hub.SendMessage(core.Message{Room: numeric, Text: rawString("hello")})
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, hub.Metrics().Rooms)

	mustEvent(t, alice.Events, core.EventRoomMessage)
	mustEvent(t, bob.Events, core.EventRoomMessage)
}

func TestHubSendToEmptyRoomIsDropped(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")
	register(t, hub, alice, "u1")
	drain(alice)

	sent, err := hub.SendMessage(core.Message{Room: "room7", Text: rawString("anyone?")})
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.EqualValues(t, 1, hub.Metrics().EmptyRoomDrops)
	assert.Zero(t, countWhere(drain(alice), func(ev *core.Event) bool { return ev.Kind == core.EventRoomMessage }))
}

func TestHubSendRequiresRoom(t *testing.T) {
	hub := newTestHub(t)

	_, err := hub.SendMessage(core.Message{Text: rawString("lost")})
	require.ErrorIs(t, err, core.ErrInvalidRoom)
}

func TestHubLeavesRoomsOnDisconnect(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")
	require.NoError(t, hub.JoinRoom(context.Background(), alice, "general"))

	hub.UnregisterClient(alice)

	sent, err := hub.SendMessage(core.Message{Room: "general", Text: rawString("bye")})
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, hub.Metrics().Rooms)
}

func TestHubRequestStatusRepliesToRequesterOnly(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")
	bob := connect(hub, "b")

	require.NoError(t, hub.RequestStatus(alice, "ghost"))

	ev := mustEvent(t, alice.Events, core.EventUserStatus)
	assert.Equal(t, "ghost", ev.Status.Identity)
	assert.Equal(t, core.StatusOffline, ev.Status.Status)
	assert.Empty(t, ev.Status.DisplayName)
	assert.NotEmpty(t, ev.Status.Timestamp)
	assert.Empty(t, drain(bob))

	require.ErrorIs(t, hub.RequestStatus(alice, ""), core.ErrInvalidIdentity)
}

func TestHubLogout(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")
	bob := connect(hub, "b")
	register(t, hub, alice, "u1")

	require.NoError(t, hub.Logout("u1"))

	mustEventWhere(t, bob.Events, isStatus("u1", core.StatusOffline))
	out := mustEvent(t, bob.Events, core.EventLoggedOut)
	assert.Equal(t, "u1", out.Identity)
	assert.False(t, hub.LookupStatus("u1").Online())
}

func TestHubLogoutUnknownIdentityIsNoop(t *testing.T) {
	hub := newTestHub(t)

	bob := connect(hub, "b")

	require.NoError(t, hub.Logout("ghost"))
	assert.Empty(t, drain(bob))
}

func TestHubAdminBlockScenario(t *testing.T) {
	hub := newTestHub(t)

	alice := connect(hub, "a")
	bob := connect(hub, "b")

	register(t, hub, alice, "u1")
	require.NoError(t, hub.JoinRoom(context.Background(), bob, "u1"))
	drain(bob)

	require.NoError(t, hub.AdminSetBlocked("u1", true))

	blocked := mustEvent(t, bob.Events, core.EventUserBlocked)
	assert.Equal(t, "u1", blocked.Identity)
	assert.True(t, blocked.Blocked)

	changed := mustEvent(t, bob.Events, core.EventBlockStateChanged)
	assert.Equal(t, "u1", changed.Identity)
	assert.True(t, changed.Blocked)

	mustEventWhere(t, bob.Events, isStatus("u1", core.StatusOffline))
	assert.Equal(t, core.StatusOffline, hub.LookupStatus("u1").Status)

	// A blocked identity cannot register again until unblocked.
	drain(alice)
	register(t, hub, alice, "u1")
	mustEvent(t, alice.Events, core.EventUserBlocked)
	assert.False(t, hub.LookupStatus("u1").Online())

	require.NoError(t, hub.AdminSetBlocked("u1", false))
	register(t, hub, alice, "u1")
	assert.True(t, hub.LookupStatus("u1").Online())
}

func TestHubClosedRejectsCommands(t *testing.T) {
	hub := core.NewHub()
	alice := connect(hub, "a")

	hub.Close()

	err := hub.Register(context.Background(), alice, core.Profile{Identity: "u1"})
	require.ErrorIs(t, err, core.ErrHubClosed)

	select {
	case <-alice.Done():
	case <-time.After(time.Second):
		t.Fatal("client not closed with hub")
	}
}
