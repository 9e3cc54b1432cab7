// Package randomtalk implements ephemeral anonymous 1:1 matching: a FIFO
// waiting queue plus a mirrored active-pairing table. Nothing here is
// persisted; random-talk traffic exists only while both sides are connected.
package randomtalk

import (
	"log"
	"sync"
	"time"

	"talklink/backend/internal/models"
	"talklink/backend/internal/presence"
)

// UserFinder is the profile lookup the matchmaker needs at match time.
type UserFinder interface {
	GetUserByID(id string) (*models.User, error)
}

// queueEntry is one user waiting for a match. Interests are carried along
// but not used as a filter; matching is strict FIFO.
type queueEntry struct {
	userID    string
	conn      presence.Conn
	interests []string
}

// pairing is one direction of an active match. Entries are mirrored: if the
// entry for A points at B, the entry for B must point at A.
type pairing struct {
	partnerID     string
	chatStartTime time.Time
}

// Matchmaker owns the waiting queue and the active-pairing table. One mutex
// guards both so queue membership and pairings can never be observed in a
// half-updated state.
type Matchmaker struct {
	mu       sync.Mutex
	queue    []queueEntry
	pairings map[string]pairing

	presence *presence.Registry
	users    UserFinder
}

func NewMatchmaker(reg *presence.Registry, users UserFinder) *Matchmaker {
	return &Matchmaker{
		pairings: make(map[string]pairing),
		presence: reg,
		users:    users,
	}
}

// FindMatch pairs the caller with the oldest waiting user, or enqueues the
// caller when nobody is waiting. Re-searching while already queued is
// idempotent: the stale entry is dropped first, so a user holds at most one
// queue slot.
func (m *Matchmaker) FindMatch(userID string, conn presence.Conn, interests []string) {
	m.mu.Lock()
	m.removeLocked(userID)

	if len(m.queue) == 0 {
		m.queue = append(m.queue, queueEntry{userID: userID, conn: conn, interests: interests})
		m.mu.Unlock()
		conn.Send(models.Event{Name: models.EventRandomTalkSearching})
		log.Printf("Random talk: %s added to queue", userID)
		return
	}

	partner := m.queue[0]
	m.queue = m.queue[1:]
	m.mu.Unlock()

	// Profile lookups run outside the lock so a slow store call cannot
	// stall every other random-talk operation.
	user, err1 := m.users.GetUserByID(userID)
	partnerUser, err2 := m.users.GetUserByID(partner.userID)
	if err1 != nil || err2 != nil || user == nil || partnerUser == nil {
		// Abort the match but keep the partner's place in line: they are
		// pushed back to the head, the caller stays unqueued and can retry.
		log.Printf("ERROR: Random talk match aborted, profile lookup failed for %s/%s", userID, partner.userID)
		m.mu.Lock()
		m.queue = append([]queueEntry{partner}, m.queue...)
		m.mu.Unlock()
		return
	}

	now := time.Now()
	m.mu.Lock()
	m.pairings[userID] = pairing{partnerID: partner.userID, chatStartTime: now}
	m.pairings[partner.userID] = pairing{partnerID: userID, chatStartTime: now}
	m.mu.Unlock()

	conn.Send(models.NewEvent(models.EventRandomTalkMatched, models.RandomTalkMatchedPayload{
		User:      partnerUser,
		PartnerID: partner.userID,
	}))
	partner.conn.Send(models.NewEvent(models.EventRandomTalkMatched, models.RandomTalkMatchedPayload{
		User:      user,
		PartnerID: userID,
	}))

	log.Printf("Random talk match: %s <-> %s", userID, partner.userID)
}

// Cancel drops the user's queue entry if present; no-op otherwise.
func (m *Matchmaker) Cancel(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeLocked(userID) {
		log.Printf("Random talk: %s cancelled search", userID)
	}
}

// SendMessage relays a random-talk message to the sender's current partner.
// The message is dropped (and logged) unless the sender has an active
// pairing whose partner is exactly recipientID. Delivery happens only if the
// recipient is online right now; there is no queueing for offline partners.
func (m *Matchmaker) SendMessage(senderID string, sender *models.User, recipientID, body string) {
	m.mu.Lock()
	p, ok := m.pairings[senderID]
	m.mu.Unlock()

	if !ok {
		log.Printf("ERROR: Random talk message from %s dropped: no active chat", senderID)
		return
	}
	if p.partnerID != recipientID {
		log.Printf("ERROR: Random talk message from %s dropped: %s is not their partner", senderID, recipientID)
		return
	}

	if handle := m.presence.HandleFor(recipientID); handle != nil {
		handle.Send(models.NewEvent(models.EventRandomTalkMessage, models.RandomTalkDelivery{
			Message:   body,
			Sender:    sender,
			CreatedAt: time.Now(),
		}))
	}
}

// Typing relays a typing indicator to the partner. Silently ignored when the
// sender has no active pairing.
func (m *Matchmaker) Typing(senderID, recipientID string, isTyping bool) {
	m.mu.Lock()
	_, ok := m.pairings[senderID]
	m.mu.Unlock()
	if !ok {
		return
	}

	if handle := m.presence.HandleFor(recipientID); handle != nil {
		handle.Send(models.NewEvent(models.EventRandomTalkTyping, models.RandomTalkTypingDelivery{
			UserID:   senderID,
			IsTyping: isTyping,
		}))
	}
}

// EndChat tears down both mirrored pairing entries, tells the partner the
// chat was ended for them, and acknowledges the initiator. Idempotent: a
// repeat call finds nothing to remove and sends no duplicate notification.
func (m *Matchmaker) EndChat(userID, partnerID string, initiator presence.Conn) {
	m.mu.Lock()
	_, existed := m.pairings[userID]
	delete(m.pairings, userID)
	delete(m.pairings, partnerID)
	m.mu.Unlock()

	if existed {
		if handle := m.presence.HandleFor(partnerID); handle != nil {
			handle.Send(models.NewEvent(models.EventRandomTalkEnded, models.RandomTalkEndedPayload{
				EndedBy: userID,
				Reason:  "User ended the chat",
			}))
		}
	}

	if initiator != nil {
		initiator.Send(models.NewEvent(models.EventRandomTalkEnded, models.RandomTalkEndedPayload{
			EndedBy: userID,
			Reason:  "You ended the chat",
		}))
	}

	log.Printf("Random talk ended: %s & %s", userID, partnerID)
}

// CleanupDisconnect unwinds everything random-talk holds for a vanishing
// user. Searching and matched are mutually exclusive states, but nothing
// tracks which one the user is in, so both are checked unconditionally. The
// partner of an active pairing is notified at most once.
func (m *Matchmaker) CleanupDisconnect(userID string) {
	m.mu.Lock()
	removed := m.removeLocked(userID)

	var partnerID string
	if p, ok := m.pairings[userID]; ok {
		partnerID = p.partnerID
		delete(m.pairings, userID)
		delete(m.pairings, partnerID)
	}
	m.mu.Unlock()

	if removed {
		log.Printf("Random talk: removed %s from queue on disconnect", userID)
	}
	if partnerID == "" {
		return
	}

	if handle := m.presence.HandleFor(partnerID); handle != nil {
		handle.Send(models.NewEvent(models.EventRandomTalkEnded, models.RandomTalkEndedPayload{
			EndedBy: userID,
			Reason:  "Partner disconnected",
		}))
	}
	log.Printf("Random talk auto-ended on disconnect: %s", userID)
}

// Partner reports the active partner for a user, if any.
func (m *Matchmaker) Partner(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pairings[userID]
	return p.partnerID, ok
}

// QueueLen reports how many users are waiting.
func (m *Matchmaker) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// removeLocked drops the user's queue entry. Caller holds the mutex.
func (m *Matchmaker) removeLocked(userID string) bool {
	for i, e := range m.queue {
		if e.userID == userID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return true
		}
	}
	return false
}
