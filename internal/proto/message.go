package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeRegister      = "register"
	InboundTypeJoinRoom      = "join-room"
	InboundTypeSendMessage   = "send-message"
	InboundTypeAdminBlock    = "admin-block-user"
	InboundTypeLogout        = "logout"
	InboundTypeRequestStatus = "request-user-status"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names.
const (
	NameUserStatusUpdate  = "user-status-update"
	NameOnlineUsers       = "online-users"
	NameRoomJoined        = "room-joined"
	NameUserBlocked       = "user-blocked"
	NameUserStatusUpdated = "user-status-updated"
	NameNewMessage        = "new-message"
	NameLoggedOut         = "logged-out"
)

// Key is a room key or identity sent either as a JSON string or a JSON number.
// Value holds a string or a json.Number.
type Key struct {
	Value any
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Key) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		k.Value = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		k.Value = s
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("key must be a string or a number: %w", err)
	}
	k.Value = n
	return nil
}

// MarshalJSON implements json.Marshaler.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Value)
}

// Empty reports whether no key was supplied.
func (k Key) Empty() bool {
	if k.Value == nil {
		return true
	}
	s, ok := k.Value.(string)
	return ok && s == ""
}

// StringKey builds a Key from a string.
func StringKey(s string) Key {
	return Key{Value: s}
}

// RegisterData announces the identity behind the connection.
type RegisterData struct {
	Identity      Key             `json:"identity"`
	DisplayName   string          `json:"displayName,omitempty"`
	ContactEmail  string          `json:"contactEmail,omitempty"`
	StatusMessage string          `json:"statusMessage,omitempty"`
	Timestamp     json.RawMessage `json:"timestamp,omitempty"`
}

// JoinRoomData requests to join a specific room.
type JoinRoomData struct {
	RoomKey Key `json:"roomKey"`
}

// SendMessageData is a chat message from the client. Everything but RoomKey
// is relayed as received.
type SendMessageData struct {
	RoomKey        Key             `json:"roomKey"`
	Message        json.RawMessage `json:"message"`
	SenderIdentity json.RawMessage `json:"senderIdentity"`
	SenderDisplay  json.RawMessage `json:"senderDisplay,omitempty"`
	Timestamp      json.RawMessage `json:"timestamp,omitempty"`
	From           json.RawMessage `json:"from"`
	Attachment     json.RawMessage `json:"attachment,omitempty"`
	MessageID      json.RawMessage `json:"messageId,omitempty"`
}

// AdminBlockData changes the blocked state of an identity.
type AdminBlockData struct {
	Identity Key  `json:"identity"`
	Blocked  bool `json:"blocked"`
}

// IdentityData carries just an identity (logout, request-user-status).
type IdentityData struct {
	Identity Key `json:"identity"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventUserStatus reports the presence of an identity.
type EventUserStatus struct {
	Identity      string          `json:"identity"`
	Status        string          `json:"status"`
	DisplayName   string          `json:"displayName"`
	ContactEmail  string          `json:"contactEmail"`
	StatusMessage string          `json:"statusMessage,omitempty"`
	Timestamp     json.RawMessage `json:"timestamp,omitempty"`
}

// OnlineUser is one entry of the online-users snapshot.
type OnlineUser struct {
	Identity     string `json:"identity"`
	DisplayName  string `json:"displayName"`
	ContactEmail string `json:"contactEmail"`
	Status       string `json:"status"`
}

// EventRoomJoined confirms a join.
type EventRoomJoined struct {
	RoomKey string `json:"roomKey"`
}

// EventBlocked is sent both as user-blocked and user-status-updated.
type EventBlocked struct {
	Identity string `json:"identity"`
	Blocked  bool   `json:"blocked"`
}

// EventNewMessage is a relayed chat message.
type EventNewMessage struct {
	RoomKey        string          `json:"roomKey"`
	Message        json.RawMessage `json:"message"`
	SenderIdentity json.RawMessage `json:"senderIdentity"`
	SenderDisplay  json.RawMessage `json:"senderDisplay,omitempty"`
	Timestamp      json.RawMessage `json:"timestamp,omitempty"`
	From           json.RawMessage `json:"from"`
	Attachment     json.RawMessage `json:"attachment,omitempty"`
	MessageID      json.RawMessage `json:"messageId,omitempty"`
}

// EventLoggedOut announces a voluntary logout.
type EventLoggedOut struct {
	Identity string `json:"identity"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
