package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is a registered account. The live layer reads it mostly as a cached
// profile; it only writes LastSeen and LastMessageID as side effects of
// connection events.
type User struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:text" json:"name"`
	Email     string         `gorm:"uniqueIndex" json:"email,omitempty"`
	Pic       string         `gorm:"type:text" json:"pic,omitempty"`
	Interests pq.StringArray `gorm:"type:text[]" json:"interests,omitempty"`

	// LastSeen is updated on disconnect and drives undelivered-message replay.
	LastSeen time.Time `json:"lastSeen"`
	// LastMessageID is the newest message this user has acknowledged.
	LastMessageID *string `json:"lastMessageId,omitempty"`
}

// BeforeCreate generates a UUID when the ID is not set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
