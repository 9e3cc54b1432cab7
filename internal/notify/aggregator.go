// Package notify coalesces unread notifications per (recipient, chat) pair
// and pushes them to the recipient's live connection when there is one.
package notify

import (
	"log"

	"talklink/backend/internal/models"
	"talklink/backend/internal/presence"
)

// Store is the slice of the durable store the aggregator needs.
type Store interface {
	FindUnreadNotification(recipientID, chatID string) (*models.Notification, error)
	CreateNotification(n *models.Notification) error
	BumpNotification(id, messageID string) error
	GetNotificationWithDetails(id string) (*models.Notification, error)
	MarkNotificationsRead(recipientID, chatID string) (int64, error)
}

type Aggregator struct {
	store    Store
	presence *presence.Registry
}

func NewAggregator(store Store, reg *presence.Registry) *Aggregator {
	return &Aggregator{store: store, presence: reg}
}

// Add records one incoming notification. A pair that already has an unread
// record gets its count bumped and its message replaced instead of a second
// row; otherwise a new record is created and re-fetched with chat details
// expanded. Either way, an online recipient gets the record pushed
// immediately. Failures are logged and swallowed.
func (a *Aggregator) Add(recipientID, chatID, messageID string) {
	existing, err := a.store.FindUnreadNotification(recipientID, chatID)
	if err != nil {
		return
	}

	var delivery *models.Notification
	if existing != nil {
		if err := a.store.BumpNotification(existing.ID, messageID); err != nil {
			log.Printf("ERROR: Failed to bump notification %s: %v", existing.ID, err)
			return
		}
		existing.Count++
		existing.MessageID = messageID
		delivery = existing
	} else {
		n := &models.Notification{
			RecipientID: recipientID,
			ChatID:      chatID,
			MessageID:   messageID,
			Count:       1,
		}
		if err := a.store.CreateNotification(n); err != nil {
			return
		}
		delivery, err = a.store.GetNotificationWithDetails(n.ID)
		if err != nil || delivery == nil {
			log.Printf("ERROR: Failed to expand notification %s for delivery: %v", n.ID, err)
			return
		}
	}

	if handle := a.presence.HandleFor(recipientID); handle != nil {
		handle.Send(models.NewEvent(models.EventNewNotification, delivery))
	}
}

// Clear marks every unread record for the pair as read and returns the
// number of rows affected. Clearing an already-clean pair returns 0.
func (a *Aggregator) Clear(userID, chatID string) (int64, error) {
	return a.store.MarkNotificationsRead(userID, chatID)
}
