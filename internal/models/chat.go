package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a persisted conversation. Membership lives in the chat_users join
// table; LatestMessageID is maintained by the event router on every new
// message.
type Chat struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:text" json:"name,omitempty"`
	IsGroupChat     bool      `json:"isGroupChat"`
	Users           []User    `gorm:"many2many:chat_users" json:"users,omitempty"`
	LatestMessageID *string   `json:"latestMessageId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// OtherUserID resolves the partner in a 1:1 chat: the first participant that
// is not userID. Empty for group chats.
func (c *Chat) OtherUserID(userID string) string {
	if c.IsGroupChat {
		return ""
	}
	for _, u := range c.Users {
		if u.ID != userID {
			return u.ID
		}
	}
	return ""
}
