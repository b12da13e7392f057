package core

import "github.com/samber/lo"

// Room groups clients subscribed to the same key.
type Room struct {
	Key     RoomKey
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(key RoomKey) *Room {
	return &Room{
		Key:     key,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Members returns a snapshot of the clients currently in the room.
func (r *Room) Members() []*Client {
	return lo.Keys(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

// roomIndex maps room keys to rooms and clients to the rooms they joined.
// Rooms exist only while they have members. Not safe for concurrent use.
type roomIndex struct {
	rooms  map[RoomKey]*Room
	joined map[*Client]map[RoomKey]struct{}
}

func newRoomIndex() *roomIndex {
	return &roomIndex{
		rooms:  make(map[RoomKey]*Room),
		joined: make(map[*Client]map[RoomKey]struct{}),
	}
}

func (x *roomIndex) join(key RoomKey, c *Client) bool {
	room, ok := x.rooms[key]
	if !ok {
		room = NewRoom(key)
		x.rooms[key] = room
	}
	if !room.AddClient(c) {
		return false
	}
	keys, ok := x.joined[c]
	if !ok {
		keys = make(map[RoomKey]struct{})
		x.joined[c] = keys
	}
	keys[key] = struct{}{}
	return true
}

func (x *roomIndex) leave(key RoomKey, c *Client) bool {
	room, ok := x.rooms[key]
	if !ok || !room.RemoveClient(c) {
		return false
	}
	if room.Empty() {
		delete(x.rooms, key)
	}
	if keys, ok := x.joined[c]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(x.joined, c)
		}
	}
	return true
}

func (x *roomIndex) leaveAll(c *Client) {
	for key := range x.joined[c] {
		room, ok := x.rooms[key]
		if !ok {
			continue
		}
		room.RemoveClient(c)
		if room.Empty() {
			delete(x.rooms, key)
		}
	}
	delete(x.joined, c)
}

func (x *roomIndex) members(key RoomKey) []*Client {
	room, ok := x.rooms[key]
	if !ok {
		return nil
	}
	return room.Members()
}

func (x *roomIndex) size() int {
	return len(x.rooms)
}
