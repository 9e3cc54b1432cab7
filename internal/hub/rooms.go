package hub

import (
	"sync"

	"talklink/backend/internal/models"
	"talklink/backend/internal/presence"
)

// RoomTable tracks which connections are subscribed to which chat's
// broadcast channel. This is the room-scoped addressing scheme (typing, read
// receipts, online/offline) — distinct from per-user targeted delivery,
// which goes through the presence registry instead.
type RoomTable struct {
	mu    sync.RWMutex
	rooms map[string]map[string]presence.Conn
}

func NewRoomTable() *RoomTable {
	return &RoomTable{rooms: make(map[string]map[string]presence.Conn)}
}

func (t *RoomTable) Join(chatID string, c presence.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[chatID]
	if !ok {
		room = make(map[string]presence.Conn)
		t.rooms[chatID] = room
	}
	room[c.UserID()] = c
}

func (t *RoomTable) Leave(chatID string, c presence.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropLocked(chatID, c)
}

// LeaveAll unsubscribes a connection from every room it joined. Run on
// disconnect.
func (t *RoomTable) LeaveAll(c presence.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for chatID := range t.rooms {
		t.dropLocked(chatID, c)
	}
}

// Broadcast delivers a room event to every local subscriber of the chat,
// skipping ExcludeUserID when set. Sends are non-blocking; a subscriber that
// cannot take the event just misses it.
func (t *RoomTable) Broadcast(ev models.RoomEvent) {
	t.mu.RLock()
	room := t.rooms[ev.ChatID]
	conns := make([]presence.Conn, 0, len(room))
	for userID, c := range room {
		if ev.ExcludeUserID != "" && userID == ev.ExcludeUserID {
			continue
		}
		conns = append(conns, c)
	}
	t.mu.RUnlock()

	for _, c := range conns {
		c.Send(ev.Event)
	}
}

// Members reports how many connections are subscribed to a chat.
func (t *RoomTable) Members(chatID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms[chatID])
}

// dropLocked removes the connection from a room only if it is still the
// registered subscriber for its user; a reconnected session's subscription
// survives the old socket's cleanup. Caller holds the mutex.
func (t *RoomTable) dropLocked(chatID string, c presence.Conn) {
	room, ok := t.rooms[chatID]
	if !ok {
		return
	}
	if cur, ok := room[c.UserID()]; ok && cur == c {
		delete(room, c.UserID())
		if len(room) == 0 {
			delete(t.rooms, chatID)
		}
	}
}
