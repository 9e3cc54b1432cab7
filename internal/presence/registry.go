// Package presence tracks which users currently hold a live connection.
// State is in-memory only and lost on restart: presence is best-effort, the
// durable store stays authoritative for anything that must survive.
package presence

import (
	"sync"

	"talklink/backend/internal/models"
)

// Conn is the handle a live connection exposes to the coordination core.
// Send must never block: implementations drop the event and return false
// when the connection cannot take it.
type Conn interface {
	UserID() string
	Send(ev models.Event) bool
}

// Registry maps userID to the connection handle of their current session.
// At most one entry exists per user; a reconnect replaces the old handle
// (last setup wins).
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Conn)}
}

// MarkOnline registers conn as the user's current session and returns the
// handle it replaced, if any, so the caller can tell the stale connection it
// has been superseded. Returns nil when there was no previous session or the
// previous session is the same handle.
func (r *Registry) MarkOnline(userID string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.entries[userID]
	r.entries[userID] = conn
	if prev == conn {
		return nil
	}
	return prev
}

// MarkOffline removes the user's presence entry. Callers are expected to
// check HandleFor first so a stale connection's disconnect cannot knock a
// fresh session offline.
func (r *Registry) MarkOffline(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[userID]
	return ok
}

// HandleFor returns the user's current connection handle, or nil when the
// user is offline.
func (r *Registry) HandleFor(userID string) Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[userID]
}
