package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is an unread-message marker aggregated per (recipient, chat)
// pair: at most one unread row exists for a pair, repeat notifies bump Count
// and overwrite MessageID. Rows are only ever marked read, never deleted.
type Notification struct {
	ID          string `gorm:"primaryKey" json:"id"`
	RecipientID string `gorm:"type:text;not null;index:idx_recipient_read" json:"recipient"`
	ChatID      string `gorm:"type:text;index" json:"chatId"`
	MessageID   string `gorm:"type:text;not null" json:"messageId"`
	IsRead      bool   `gorm:"default:false;index:idx_recipient_read" json:"isRead"`
	Count       int    `gorm:"default:1" json:"count"`

	// Chat is populated only on the delivery path, expanded with its members.
	Chat *Chat `gorm:"foreignKey:ChatID" json:"chat,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
