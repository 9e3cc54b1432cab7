package storage

import (
	"errors"
	"log"

	"talklink/backend/internal/models"

	"gorm.io/gorm"
)

// FindUnreadNotification returns the single unread notification for a
// (recipient, chat) pair with chat details expanded, or (nil, nil) when the
// pair has no unread record.
func (s *Service) FindUnreadNotification(recipientID, chatID string) (*models.Notification, error) {
	var n models.Notification
	err := s.DB.
		Preload("Chat").
		Preload("Chat.Users").
		Where("recipient_id = ? AND chat_id = ? AND is_read = ?", recipientID, chatID, false).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to find unread notification for %s/%s: %v", recipientID, chatID, err)
		return nil, err
	}
	return &n, nil
}

func (s *Service) CreateNotification(n *models.Notification) error {
	if err := s.DB.Create(n).Error; err != nil {
		log.Printf("ERROR: Failed to create notification for %s: %v", n.RecipientID, err)
		return err
	}
	return nil
}

// BumpNotification increments the aggregate count in place and swaps the
// referenced message for the newest one. The increment runs as a single SQL
// expression so concurrent notifies cannot lose a bump.
func (s *Service) BumpNotification(id, messageID string) error {
	return s.DB.Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"count":      gorm.Expr("count + 1"),
			"message_id": messageID,
		}).Error
}

// GetNotificationWithDetails re-fetches a notification with its chat and the
// chat's members expanded for live delivery.
func (s *Service) GetNotificationWithDetails(id string) (*models.Notification, error) {
	var n models.Notification
	err := s.DB.
		Preload("Chat").
		Preload("Chat.Users").
		First(&n, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkNotificationsRead flips every unread record for the pair to read and
// reports how many rows changed. Calling it again is a no-op returning 0.
func (s *Service) MarkNotificationsRead(recipientID, chatID string) (int64, error) {
	result := s.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND chat_id = ? AND is_read = ?", recipientID, chatID, false).
		Update("is_read", true)
	if result.Error != nil {
		log.Printf("ERROR: Failed to clear notifications for %s/%s: %v", recipientID, chatID, result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UnreadNotifications lists a user's unread backlog, newest first. Backs the
// pull-based listing used by offline tooling.
func (s *Service) UnreadNotifications(recipientID string) ([]models.Notification, error) {
	var ns []models.Notification
	err := s.DB.
		Preload("Chat").
		Preload("Chat.Users").
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Order("created_at desc").
		Find(&ns).Error
	if err != nil {
		return nil, err
	}
	return ns, nil
}
