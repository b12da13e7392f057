package core

import "encoding/json"

// Message is a chat message relayed through a room. Only Room is interpreted;
// every other field is passed through to recipients as received, whatever
// its JSON type.
type Message struct {
	Room           RoomKey
	Text           json.RawMessage
	SenderIdentity json.RawMessage
	SenderDisplay  json.RawMessage
	From           json.RawMessage
	Timestamp      json.RawMessage
	Attachment     json.RawMessage
	ID             json.RawMessage
}

// Profile is what a client announces about itself on register.
type Profile struct {
	Identity      string
	DisplayName   string
	ContactEmail  string
	StatusMessage string
	Timestamp     json.RawMessage
}
