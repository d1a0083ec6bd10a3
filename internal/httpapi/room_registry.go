package httpapi

import (
	"log"
	"sync"
)

// RoomRegistry tracks chat room membership keyed by session id. A room exists
// exactly as long as it has members: it is created on first join and removed
// atomically with the last leaver.
type RoomRegistry struct {
	mu     sync.Mutex
	rooms  map[string]map[string]Transport
	logger *log.Logger
}

// NewRoomRegistry creates a new RoomRegistry.
func NewRoomRegistry(logger *log.Logger) *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]map[string]Transport),
		logger: logger,
	}
}

// Join adds a member to a room, creating the room if needed. A second join
// with the same identity replaces the previous transport.
func (rr *RoomRegistry) Join(room, identity string, t Transport) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	members, ok := rr.rooms[room]
	if !ok {
		members = make(map[string]Transport)
		rr.rooms[room] = members
	}
	members[identity] = t
	rr.logger.Printf("chat: %s joined room %s (%d members)", identity, room, len(members))
}

// Leave removes a member; the room is deleted with its last member.
func (rr *RoomRegistry) Leave(room, identity string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	members, ok := rr.rooms[room]
	if !ok {
		return
	}
	if _, ok := members[identity]; !ok {
		return
	}
	delete(members, identity)
	if len(members) == 0 {
		delete(rr.rooms, room)
	}
	rr.logger.Printf("chat: %s left room %s", identity, room)
}

// MemberCount returns the current size of a room (0 if it does not exist).
func (rr *RoomRegistry) MemberCount(room string) int {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return len(rr.rooms[room])
}

// Broadcast delivers msg to every current member of the room. Delivery is
// failure-isolated: a member whose transport errors is removed (and its
// transport closed) without aborting delivery to the rest. Returns the number
// of members removed.
func (rr *RoomRegistry) Broadcast(room string, msg any) int {
	rr.mu.Lock()
	members := make(map[string]Transport, len(rr.rooms[room]))
	for id, t := range rr.rooms[room] {
		members[id] = t
	}
	rr.mu.Unlock()

	dropped := 0
	for identity, t := range members {
		if err := t.WriteJSON(msg); err != nil {
			rr.logger.Printf("chat: dropping %s from room %s after send failure: %v", identity, room, err)
			rr.Leave(room, identity)
			_ = t.Close()
			dropped++
		}
	}
	return dropped
}
