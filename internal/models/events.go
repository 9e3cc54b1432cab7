package models

import (
	"encoding/json"
	"log"
	"time"
)

// Event is the wire envelope for the live channel, both directions. AckID is
// a correlation token: requests that expect a callback-style acknowledgement
// set it, and the matching response echoes it back under the "ack" name.
type Event struct {
	Name  string          `json:"event"`
	AckID string          `json:"ackId,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventSetup              = "setup"
	EventGetUserStatus      = "getUserStatus"
	EventJoinChat           = "joinChat"
	EventLeaveChat          = "leaveChat"
	EventTyping             = "typing"
	EventStopTyping         = "stopTyping"
	EventNewMessage         = "new message"
	EventMessageRead        = "message read"
	EventCheckOnline        = "check online"
	EventAddNotification    = "addNotification"
	EventClearNotifications = "clearNotifications"
	EventMessageAck         = "messageReceivedAck"
	EventFindRandomTalk     = "findRandomTalk"
	EventCancelRandomTalk   = "cancelRandomTalk"
	EventRandomTalkMessage  = "randomTalkMessage"
	EventRandomTalkTyping   = "randomTalkTyping"
	EventEndRandomTalk      = "endRandomTalk"
)

// Outbound event names.
const (
	EventConnected           = "connected"
	EventAck                 = "ack"
	EventUserStatus          = "userStatus"
	EventNewMessageOut       = "newMessage"
	EventReadUpdate          = "message read update"
	EventOnlineStatus        = "online status"
	EventNewNotification     = "newNotification"
	EventSuperseded          = "superseded"
	EventRandomTalkMatched   = "randomTalkMatched"
	EventRandomTalkSearching = "randomTalkSearching"
	EventRandomTalkEnded     = "randomTalkEnded"
)

// NewEvent wraps a payload into an envelope. Marshal failures are logged and
// yield an empty-data event rather than breaking the send path.
func NewEvent(name string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: Failed to encode %q payload: %v", name, err)
		return Event{Name: name}
	}
	return Event{Name: name, Data: data}
}

// NewAck builds the response to a request that carried a correlation token.
func NewAck(ackID string, payload any) Event {
	ev := NewEvent(EventAck, payload)
	ev.AckID = ackID
	return ev
}

// RoomEvent is the unit of room-scoped broadcast. It travels through the
// Redis "chat:rooms" channel and is applied to local room subscribers by the
// hub's fanout loop. ExcludeUserID skips the originator where the protocol
// broadcasts to "everyone else in the room".
type RoomEvent struct {
	ChatID        string `json:"chatId"`
	ExcludeUserID string `json:"excludeUserId,omitempty"`
	Event         Event  `json:"event"`
}

// SetupPayload is the identity object bound to a connection on setup.
type SetupPayload struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Pic      string     `json:"pic,omitempty"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type StatusRequest struct {
	ChatID string `json:"chatId"`
}

// UserStatusPayload reports online/offline for a chat participant. It is
// both the getUserStatus ack body and the userStatus broadcast body.
type UserStatusPayload struct {
	ChatID   string     `json:"chatId,omitempty"`
	UserID   string     `json:"userId"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"lastSeen"`
}

type TypingPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId,omitempty"`
}

type NewMessagePayload struct {
	Message string `json:"message"`
	Chat    string `json:"chat"`
	Sender  string `json:"sender"`
}

type MessageReadPayload struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
	ReaderID  string `json:"readerId"`
}

type ReadUpdatePayload struct {
	MessageID string `json:"messageId"`
	ReaderID  string `json:"readerId"`
}

type OnlineStatusPayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type AddNotificationPayload struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Chat      string `json:"chat"`
}

type ClearNotificationsPayload struct {
	ChatID string `json:"chatId"`
}

type ClearNotificationsAck struct {
	Success bool  `json:"success"`
	Cleared int64 `json:"cleared"`
}

type MessageAckPayload struct {
	MessageID string `json:"messageId"`
}

type FindRandomTalkPayload struct {
	UserID    string   `json:"userId"`
	Interests []string `json:"interests"`
}

type CancelRandomTalkPayload struct {
	UserID string `json:"userId"`
}

type RandomTalkMessagePayload struct {
	Message     string `json:"message"`
	RecipientID string `json:"recipientId"`
}

// RandomTalkDelivery is what the recipient of a random-talk message sees:
// the body plus the sender's cached profile. Never persisted.
type RandomTalkDelivery struct {
	Message   string    `json:"message"`
	Sender    *User     `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

type RandomTalkTypingPayload struct {
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	IsTyping    bool   `json:"isTyping"`
}

type RandomTalkTypingDelivery struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type EndRandomTalkPayload struct {
	UserID    string `json:"userId"`
	PartnerID string `json:"partnerId"`
}

// RandomTalkMatchedPayload carries the partner's profile to each side of a
// fresh pairing.
type RandomTalkMatchedPayload struct {
	User      *User  `json:"user"`
	PartnerID string `json:"partnerId"`
}

type RandomTalkEndedPayload struct {
	EndedBy string `json:"endedBy"`
	Reason  string `json:"reason"`
}
