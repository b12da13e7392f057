package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandRegister announces the identity behind a connection.
	CommandRegister CommandKind = iota
	// CommandJoinRoom subscribes the client to a room.
	CommandJoinRoom
	// CommandSendRoomMessage delivers a chat message to room participants.
	CommandSendRoomMessage
	// CommandAdminBlock changes the blocked state of an identity.
	CommandAdminBlock
	// CommandLogout finalizes an identity immediately.
	CommandLogout
	// CommandRequestStatus asks for the presence of one identity.
	CommandRequestStatus
)

func (k CommandKind) String() string {
	switch k {
	case CommandRegister:
		return "register"
	case CommandJoinRoom:
		return "join-room"
	case CommandSendRoomMessage:
		return "send-message"
	case CommandAdminBlock:
		return "admin-block-user"
	case CommandLogout:
		return "logout"
	case CommandRequestStatus:
		return "request-user-status"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Room     RoomKey
	Identity string
	Profile  Profile
	Message  Message
	Blocked  bool
}
