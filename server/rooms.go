package server

import "sync"

const (
	// RoomCapacity bounds the member count of every room.
	RoomCapacity = 50
	// DefaultRoom exists for the lifetime of the server and is never deleted.
	DefaultRoom = "default"
)

// RoomTable is the exclusive owner of room membership and per-player
// authoritative position. Every operation is a pure in-memory mutation and is
// defined for all inputs, including ids that no longer exist: late events
// arriving after a disconnect are expected and must be silently ignored.
//
// One coarse lock serializes the whole table. Rooms are capped at
// RoomCapacity members, so contention stays low and per-room locking would
// buy nothing.
type RoomTable struct {
	mu    sync.Mutex
	rooms map[string]map[string]*Player
}

// NewRoomTable creates a table with the default room already present.
func NewRoomTable() *RoomTable {
	t := &RoomTable{rooms: make(map[string]map[string]*Player)}
	t.rooms[DefaultRoom] = make(map[string]*Player)
	return t
}

// EnsureRoom idempotently creates a room.
func (t *RoomTable) EnsureRoom(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureLocked(roomID)
}

func (t *RoomTable) ensureLocked(roomID string) map[string]*Player {
	room, ok := t.rooms[roomID]
	if !ok {
		room = make(map[string]*Player)
		t.rooms[roomID] = room
	}
	return room
}

// AddPlayer inserts the player into the room, creating the room if needed.
// It returns false, with no mutation, when the room is at capacity.
func (t *RoomTable) AddPlayer(roomID string, p *Player) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	room := t.ensureLocked(roomID)
	if len(room) >= RoomCapacity {
		return false
	}
	room[p.ID] = p
	return true
}

// RemovePlayer removes the player if present. A non-default room left empty
// is deleted. Absent room or player is a no-op, not an error.
func (t *RoomTable) RemovePlayer(roomID, playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[roomID]
	if !ok {
		return
	}
	delete(room, playerID)
	if len(room) == 0 && roomID != DefaultRoom {
		delete(t.rooms, roomID)
	}
}

// UpdatePosition overwrites the player's stored coordinate. A stale id is a
// no-op: a late move after disconnect must not resurrect state.
func (t *RoomTable) UpdatePosition(roomID, playerID string, x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.rooms[roomID][playerID]; ok {
		p.X = x
		p.Y = y
	}
}

// Snapshot returns a point-in-time copy of the room's players, keyed by id.
// The result shares no memory with the table; it seeds newly joined clients.
func (t *RoomTable) Snapshot(roomID string) map[string]PlayerView {
	t.mu.Lock()
	defer t.mu.Unlock()
	room := t.rooms[roomID]
	views := make(map[string]PlayerView, len(room))
	for id, p := range room {
		views[id] = p.View()
	}
	return views
}

// Len reports the member count of a room; zero for absent rooms.
func (t *RoomTable) Len(roomID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rooms[roomID])
}

// Rooms returns the occupancy of every live room.
func (t *RoomTable) Rooms() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.rooms))
	for id, room := range t.rooms {
		out[id] = len(room)
	}
	return out
}
