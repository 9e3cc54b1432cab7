package hub_test

import (
	"sync"
	"time"

	"talklink/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of the storage.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) UpdateLastSeen(userID string, t time.Time) error {
	args := m.Called(userID, t)
	return args.Error(0)
}

func (m *MockStore) UpdateLastMessageID(userID, messageID string) error {
	args := m.Called(userID, messageID)
	return args.Error(0)
}

func (m *MockStore) ChatIDsForUser(userID string) ([]string, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) GetChatByID(chatID string) (*models.Chat, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockStore) SetLatestMessage(chatID, messageID string) error {
	args := m.Called(chatID, messageID)
	return args.Error(0)
}

func (m *MockStore) CreateMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStore) GetMessageByID(id string) (*models.Message, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStore) MessagesAfter(chatIDs []string, after time.Time, excludeSender string) ([]models.Message, error) {
	args := m.Called(chatIDs, after, excludeSender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStore) FindUnreadNotification(recipientID, chatID string) (*models.Notification, error) {
	args := m.Called(recipientID, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockStore) CreateNotification(n *models.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func (m *MockStore) BumpNotification(id, messageID string) error {
	args := m.Called(id, messageID)
	return args.Error(0)
}

func (m *MockStore) GetNotificationWithDetails(id string) (*models.Notification, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockStore) MarkNotificationsRead(recipientID, chatID string) (int64, error) {
	args := m.Called(recipientID, chatID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) UnreadNotifications(recipientID string) ([]models.Notification, error) {
	args := m.Called(recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockStore) PublishRoomEvent(ev models.RoomEvent) error {
	args := m.Called(ev)
	return args.Error(0)
}

func (m *MockStore) SubscribeRoomEvents() *redis.PubSub {
	args := m.Called()
	return args.Get(0).(*redis.PubSub)
}

// stubSession is a test double for a live connection: it records everything
// sent to it.
type stubSession struct {
	mu       sync.Mutex
	userID   string
	identity *models.User
	events   []models.Event
}

func newStubSession(userID string) *stubSession {
	return &stubSession{userID: userID}
}

func (s *stubSession) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *stubSession) Send(ev models.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return true
}

func (s *stubSession) Identity() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *stubSession) BindIdentity(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = u
	s.userID = u.ID
}

func (s *stubSession) eventsNamed(name string) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, ev := range s.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (s *stubSession) lastEvent(name string) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Name == name {
			return s.events[i], true
		}
	}
	return models.Event{}, false
}
