package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"talklink/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Store is the durable-store contract the live layer consumes. Lookups
// return (nil, nil) when the record does not exist; a non-nil error always
// means the store itself failed.
type Store interface {
	GetUserByID(id string) (*models.User, error)
	UpdateLastSeen(userID string, t time.Time) error
	UpdateLastMessageID(userID, messageID string) error

	ChatIDsForUser(userID string) ([]string, error)
	GetChatByID(chatID string) (*models.Chat, error)
	SetLatestMessage(chatID, messageID string) error

	CreateMessage(msg *models.Message) error
	GetMessageByID(id string) (*models.Message, error)
	MessagesAfter(chatIDs []string, after time.Time, excludeSender string) ([]models.Message, error)

	FindUnreadNotification(recipientID, chatID string) (*models.Notification, error)
	CreateNotification(n *models.Notification) error
	BumpNotification(id, messageID string) error
	GetNotificationWithDetails(id string) (*models.Notification, error)
	MarkNotificationsRead(recipientID, chatID string) (int64, error)
	UnreadNotifications(recipientID string) ([]models.Notification, error)

	PublishRoomEvent(ev models.RoomEvent) error
	SubscribeRoomEvents() *redis.PubSub
}

// RoomEventsChannel is the Redis pub/sub channel carrying room-scoped
// broadcasts between instances.
const RoomEventsChannel = "chat:rooms"

// Service implements Store on PostgreSQL (via GORM) plus Redis for the
// room-event fanout. Redis may be nil for offline tooling that only touches
// the database.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// GetUserByID loads a user profile. Not-found is not an error.
func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to load user %s: %v", id, err)
		return nil, err
	}
	return &user, nil
}

func (s *Service) UpdateLastSeen(userID string, t time.Time) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen", t).Error
}

func (s *Service) UpdateLastMessageID(userID, messageID string) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_message_id", messageID).Error
}

// ChatIDsForUser returns the IDs of every chat the user belongs to, straight
// from the many2many join table.
func (s *Service) ChatIDsForUser(userID string) ([]string, error) {
	var chatIDs []string
	err := s.DB.Table("chat_users").
		Where("user_id = ?", userID).
		Pluck("chat_id", &chatIDs).Error
	if err != nil {
		log.Printf("ERROR: Failed to list chats for user %s: %v", userID, err)
		return nil, err
	}
	return chatIDs, nil
}

// GetChatByID loads a chat with its members preloaded.
func (s *Service) GetChatByID(chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := s.DB.Preload("Users").First(&chat, "id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to load chat %s: %v", chatID, err)
		return nil, err
	}
	return &chat, nil
}

func (s *Service) SetLatestMessage(chatID, messageID string) error {
	return s.DB.Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("latest_message_id", messageID).Error
}

func (s *Service) CreateMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for chat %s: %v", msg.ChatID, err)
		return err
	}
	return nil
}

func (s *Service) GetMessageByID(id string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MessagesAfter returns messages in the given chats created after the cutoff
// and authored by someone else, oldest first. This backs the undelivered
// replay on reconnect.
func (s *Service) MessagesAfter(chatIDs []string, after time.Time, excludeSender string) ([]models.Message, error) {
	if len(chatIDs) == 0 {
		return nil, nil
	}
	var messages []models.Message
	err := s.DB.
		Where("chat_id IN ?", chatIDs).
		Where("created_at > ?", after).
		Where("sender_id <> ?", excludeSender).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		log.Printf("ERROR: Failed to load undelivered messages: %v", err)
		return nil, err
	}
	return messages, nil
}

// PublishRoomEvent pushes a room-scoped broadcast into Redis; every instance
// (including this one) applies it to its local room subscribers.
func (s *Service) PublishRoomEvent(ev models.RoomEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, RoomEventsChannel, payload).Err()
}

func (s *Service) SubscribeRoomEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, RoomEventsChannel)
}
