package core

import "context"

// JoinRoom adds c to the room after the moderation gate lets the room key
// through. Joining twice keeps a single membership; the confirmation is sent
// to the joiner each time.
func (h *Hub) JoinRoom(ctx context.Context, c *Client, key RoomKey) error {
	if key == "" {
		return ErrInvalidRoom
	}

	blocked := h.gate.Blocked(ctx, string(key))

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if !h.connectedLocked(c) {
		return ErrClientGone
	}
	if blocked || h.isBlockedLocked(string(key)) {
		h.log.Info().Str("room", string(key)).Str("client_id", c.ID).Msg("join refused, room blocked")
		c.Send(&Event{Kind: EventUserBlocked, Room: key, Identity: string(key), Blocked: true})
		return nil
	}

	if h.rooms.join(key, c) {
		h.log.Debug().Str("room", string(key)).Str("client_id", c.ID).Msg("joined room")
	}
	c.Send(&Event{Kind: EventRoomJoined, Room: key})
	return nil
}

// SendMessage relays msg to every current member of its room and returns how
// many members received it. A room without members drops the message; that
// is counted and logged, never queued or retried.
func (h *Hub) SendMessage(msg Message) (int, error) {
	if msg.Room == "" {
		return 0, ErrInvalidRoom
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms.members(msg.Room)
	if len(members) == 0 {
		h.metrics.EmptyRoomDrops.Add(1)
		h.log.Warn().Str("room", string(msg.Room)).Msg("no members in room, message not broadcast")
		return 0, nil
	}

	sent := h.deliverLocked(members, &Event{Kind: EventRoomMessage, Room: msg.Room, Message: msg})
	h.metrics.MessagesDelivered.Add(int64(sent))
	return sent, nil
}
