package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUserStatus reports an identity going online or offline, or answers a status request.
	EventUserStatus EventKind = iota
	// EventOnlineUsers carries a full snapshot of online identities.
	EventOnlineUsers
	// EventRoomJoined confirms a join to the joining client.
	EventRoomJoined
	// EventUserBlocked tells an identity's room that it was blocked or unblocked.
	EventUserBlocked
	// EventBlockStateChanged is the global broadcast of an admin block decision.
	EventBlockStateChanged
	// EventRoomMessage delivers a chat message to room members.
	EventRoomMessage
	// EventLoggedOut distinguishes a voluntary logout from a lost connection.
	EventLoggedOut
	// EventError notifies a client about a rejected command.
	EventError
)

// Presence status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     RoomKey
	Identity string
	Blocked  bool
	Status   *StatusInfo
	Online   []StatusInfo
	Message  Message
	Error    *CoreError
}

// StatusInfo describes the presence of one identity.
type StatusInfo struct {
	Identity      string
	Status        string
	DisplayName   string
	ContactEmail  string
	StatusMessage string
	Timestamp     json.RawMessage
}

// Online reports whether the identity currently holds a presence record.
func (s StatusInfo) Online() bool {
	return s.Status == StatusOnline
}
