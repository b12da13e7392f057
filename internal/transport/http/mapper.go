package http

import (
	"encoding/json"

	"github.com/samber/lo"

	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/proto"
)

func protoError(code, msg string) *core.CoreError {
	return &core.CoreError{Code: code, Message: msg}
}

var (
	errUnknownType     = protoError(core.ErrCodeInvalidMessage, "unknown message type")
	errMalformedData   = protoError(core.ErrCodeInvalidMessage, "malformed message data")
	errIdentityMissing = protoError(core.ErrCodeInvalidIdentity, "identity is required")
	errRoomMissing     = protoError(core.ErrCodeInvalidRoom, "room key is required")
	errAdminDisabled   = protoError(core.ErrCodeForbidden, "admin commands are disabled on this endpoint")
)

// inboundToCommand decodes a client frame into a core command. The returned
// error is meant for the sending client only.
func inboundToCommand(inbound proto.Inbound, adminEnabled bool) (*core.Command, *core.CoreError) {
	data := inbound.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	switch inbound.Type {
	case proto.InboundTypeRegister:
		var reg proto.RegisterData
		if err := json.Unmarshal(data, &reg); err != nil {
			return nil, errMalformedData
		}
		identity, ok := canonical(reg.Identity)
		if !ok {
			return nil, errIdentityMissing
		}
		return &core.Command{
			Kind: core.CommandRegister,
			Profile: core.Profile{
				Identity:      identity,
				DisplayName:   reg.DisplayName,
				ContactEmail:  reg.ContactEmail,
				StatusMessage: reg.StatusMessage,
				Timestamp:     reg.Timestamp,
			},
		}, nil
	case proto.InboundTypeJoinRoom:
		var join proto.JoinRoomData
		if err := json.Unmarshal(data, &join); err != nil {
			return nil, errMalformedData
		}
		room, ok := canonical(join.RoomKey)
		if !ok {
			return nil, errRoomMissing
		}
		return &core.Command{Kind: core.CommandJoinRoom, Room: core.RoomKey(room)}, nil
	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, errMalformedData
		}
		room, ok := canonical(msg.RoomKey)
		if !ok {
			return nil, errRoomMissing
		}
		return &core.Command{
			Kind: core.CommandSendRoomMessage,
			Room: core.RoomKey(room),
			Message: core.Message{
				Room:           core.RoomKey(room),
				Text:           msg.Message,
				SenderIdentity: msg.SenderIdentity,
				SenderDisplay:  msg.SenderDisplay,
				From:           msg.From,
				Timestamp:      msg.Timestamp,
				Attachment:     msg.Attachment,
				ID:             msg.MessageID,
			},
		}, nil
	case proto.InboundTypeAdminBlock:
		if !adminEnabled {
			return nil, errAdminDisabled
		}
		var block proto.AdminBlockData
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, errMalformedData
		}
		identity, ok := canonical(block.Identity)
		if !ok {
			return nil, errIdentityMissing
		}
		return &core.Command{Kind: core.CommandAdminBlock, Identity: identity, Blocked: block.Blocked}, nil
	case proto.InboundTypeLogout, proto.InboundTypeRequestStatus:
		var target proto.IdentityData
		if err := json.Unmarshal(data, &target); err != nil {
			return nil, errMalformedData
		}
		identity, ok := canonical(target.Identity)
		if !ok {
			return nil, errIdentityMissing
		}
		kind := core.CommandLogout
		if inbound.Type == proto.InboundTypeRequestStatus {
			kind = core.CommandRequestStatus
		}
		return &core.Command{Kind: kind, Identity: identity}, nil
	default:
		return nil, errUnknownType
	}
}

// canonical turns a wire key into its canonical string. It reports false for
// absent or unusable keys.
func canonical(k proto.Key) (string, bool) {
	if k.Empty() {
		return "", false
	}
	key, err := core.CanonicalKey(k.Value)
	if err != nil {
		return "", false
	}
	return string(key), true
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventUserStatus:
		return eventFrame(proto.NameUserStatusUpdate, userStatus(event))
	case core.EventOnlineUsers:
		return eventFrame(proto.NameOnlineUsers, lo.Map(event.Online, func(s core.StatusInfo, _ int) proto.OnlineUser {
			return proto.OnlineUser{
				Identity:     s.Identity,
				DisplayName:  s.DisplayName,
				ContactEmail: s.ContactEmail,
				Status:       s.Status,
			}
		}))
	case core.EventRoomJoined:
		return eventFrame(proto.NameRoomJoined, proto.EventRoomJoined{RoomKey: string(event.Room)})
	case core.EventUserBlocked:
		return eventFrame(proto.NameUserBlocked, proto.EventBlocked{Identity: event.Identity, Blocked: event.Blocked})
	case core.EventBlockStateChanged:
		return eventFrame(proto.NameUserStatusUpdated, proto.EventBlocked{Identity: event.Identity, Blocked: event.Blocked})
	case core.EventRoomMessage:
		return eventFrame(proto.NameNewMessage, newMessage(event.Message))
	case core.EventLoggedOut:
		return eventFrame(proto.NameLoggedOut, proto.EventLoggedOut{Identity: event.Identity})
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventFrame(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func userStatus(event *core.Event) proto.EventUserStatus {
	if event.Status == nil {
		return proto.EventUserStatus{Identity: event.Identity, Status: core.StatusOffline}
	}
	return statusPayload(*event.Status)
}

func statusPayload(s core.StatusInfo) proto.EventUserStatus {
	return proto.EventUserStatus{
		Identity:      s.Identity,
		Status:        s.Status,
		DisplayName:   s.DisplayName,
		ContactEmail:  s.ContactEmail,
		StatusMessage: s.StatusMessage,
		Timestamp:     s.Timestamp,
	}
}

func newMessage(m core.Message) proto.EventNewMessage {
	return proto.EventNewMessage{
		RoomKey:        string(m.Room),
		Message:        m.Text,
		SenderIdentity: m.SenderIdentity,
		SenderDisplay:  m.SenderDisplay,
		Timestamp:      m.Timestamp,
		From:           m.From,
		Attachment:     m.Attachment,
		MessageID:      m.ID,
	}
}
