package hub

import (
	"encoding/json"
	"log"
	"time"

	"talklink/backend/internal/models"
	"talklink/backend/internal/notify"
	"talklink/backend/internal/presence"
	"talklink/backend/internal/randomtalk"
	"talklink/backend/internal/storage"
)

// Router dispatches every inbound live-channel event to its handler and owns
// the connection lifecycle: identity binding on setup, full cleanup on
// disconnect. Handler failures are logged and swallowed; nothing here may
// take a connection or the process down.
type Router struct {
	Store    storage.Store
	Presence *presence.Registry
	Match    *randomtalk.Matchmaker
	Notify   *notify.Aggregator
	Hub      *Hub
}

func NewRouter(store storage.Store, reg *presence.Registry, match *randomtalk.Matchmaker, agg *notify.Aggregator, h *Hub) *Router {
	return &Router{
		Store:    store,
		Presence: reg,
		Match:    match,
		Notify:   agg,
		Hub:      h,
	}
}

// Dispatch routes one inbound event. Called from the connection's read pump,
// so events on the same connection are handled strictly in order.
func (r *Router) Dispatch(s Session, ev models.Event) {
	switch ev.Name {
	case models.EventSetup:
		r.handleSetup(s, ev.Data)
	case models.EventGetUserStatus:
		r.handleGetUserStatus(s, ev.Data, ev.AckID)
	case models.EventJoinChat:
		r.handleJoinChat(s, ev.Data)
	case models.EventLeaveChat:
		r.handleLeaveChat(s, ev.Data)
	case models.EventTyping:
		r.handleTyping(s, ev.Data, models.EventTyping)
	case models.EventStopTyping:
		r.handleTyping(s, ev.Data, models.EventStopTyping)
	case models.EventNewMessage:
		r.handleNewMessage(s, ev.Data, ev.AckID)
	case models.EventMessageRead:
		r.handleMessageRead(s, ev.Data)
	case models.EventCheckOnline:
		r.handleCheckOnline(s, ev.Data)
	case models.EventAddNotification:
		r.handleAddNotification(s, ev.Data)
	case models.EventClearNotifications:
		r.handleClearNotifications(s, ev.Data, ev.AckID)
	case models.EventMessageAck:
		r.handleMessageAck(s, ev.Data)
	case models.EventFindRandomTalk:
		r.handleFindRandomTalk(s, ev.Data)
	case models.EventCancelRandomTalk:
		r.handleCancelRandomTalk(s, ev.Data)
	case models.EventRandomTalkMessage:
		r.handleRandomTalkMessage(s, ev.Data)
	case models.EventRandomTalkTyping:
		r.handleRandomTalkTyping(s, ev.Data)
	case models.EventEndRandomTalk:
		r.handleEndRandomTalk(s, ev.Data)
	default:
		log.Printf("Unknown event %q from client %s", ev.Name, s.UserID())
	}
}

// handleSetup binds the identity, registers presence, replays messages the
// user missed while offline, and announces the user online to every chat
// they belong to. A session that replaces an older one for the same user
// triggers a superseded notice to the stale connection.
func (r *Router) handleSetup(s Session, data json.RawMessage) {
	var payload models.SetupPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ID == "" {
		return
	}

	identity := &models.User{
		ID:   payload.ID,
		Name: payload.Name,
		Pic:  payload.Pic,
	}
	if payload.LastSeen != nil {
		identity.LastSeen = *payload.LastSeen
	}
	s.BindIdentity(identity)

	if prev := r.Presence.MarkOnline(payload.ID, s); prev != nil {
		prev.Send(models.NewEvent(models.EventSuperseded, models.OnlineStatusPayload{
			UserID:   payload.ID,
			IsOnline: true,
		}))
	}

	chatIDs, err := r.Store.ChatIDsForUser(payload.ID)
	if err != nil {
		chatIDs = nil
	}

	// Replay is at-least-once with no dedup token; clients tolerate
	// duplicates. Default cutoff is the epoch (zero time).
	var lastSeen time.Time
	if payload.LastSeen != nil {
		lastSeen = *payload.LastSeen
	}
	missed, err := r.Store.MessagesAfter(chatIDs, lastSeen, payload.ID)
	if err == nil {
		for i := range missed {
			s.Send(models.NewEvent(models.EventNewMessageOut, missed[i]))
		}
	}

	for _, chatID := range chatIDs {
		r.publishRoom(models.RoomEvent{
			ChatID:        chatID,
			ExcludeUserID: payload.ID,
			Event: models.NewEvent(models.EventUserStatus, models.UserStatusPayload{
				ChatID:   chatID,
				UserID:   payload.ID,
				Status:   "online",
				LastSeen: payload.LastSeen,
			}),
		})
	}

	s.Send(models.Event{Name: models.EventConnected})
	log.Printf("Online: %s", payload.ID)
}

// handleGetUserStatus resolves the other participant of a 1:1 chat and
// answers with their online state and last-seen over the ack token.
func (r *Router) handleGetUserStatus(s Session, data json.RawMessage, ackID string) {
	var req models.StatusRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ChatID == "" {
		return
	}

	chat, err := r.Store.GetChatByID(req.ChatID)
	if err != nil || chat == nil || chat.IsGroupChat {
		return
	}
	otherID := chat.OtherUserID(s.UserID())
	if otherID == "" {
		return
	}

	status := "offline"
	if r.Presence.IsOnline(otherID) {
		status = "online"
	}

	var lastSeen *time.Time
	if other, err := r.Store.GetUserByID(otherID); err == nil && other != nil {
		ls := other.LastSeen
		lastSeen = &ls
	}

	if ackID != "" {
		s.Send(models.NewAck(ackID, models.UserStatusPayload{
			UserID:   otherID,
			Status:   status,
			LastSeen: lastSeen,
		}))
	}
}

func (r *Router) handleJoinChat(s Session, data json.RawMessage) {
	var chatID string
	if err := json.Unmarshal(data, &chatID); err != nil || chatID == "" {
		return
	}
	r.Hub.Rooms.Join(chatID, s)
}

func (r *Router) handleLeaveChat(s Session, data json.RawMessage) {
	var chatID string
	if err := json.Unmarshal(data, &chatID); err != nil || chatID == "" {
		return
	}
	r.Hub.Rooms.Leave(chatID, s)
}

// handleTyping relays typing/stopTyping to everyone else in the chat room.
// Fire and forget, no state.
func (r *Router) handleTyping(s Session, data json.RawMessage, name string) {
	var payload models.TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		return
	}

	r.publishRoom(models.RoomEvent{
		ChatID:        payload.ChatID,
		ExcludeUserID: s.UserID(),
		Event: models.NewEvent(name, models.TypingPayload{
			ChatID: payload.ChatID,
			UserID: s.UserID(),
		}),
	})
}

// handleNewMessage persists the message with a server-assigned timestamp,
// advances the chat's latest-message pointer, and delivers to every member
// except the sender individually — per-user addressing, not the chat room,
// so the undelivered-replay bookkeeping stays consistent.
func (r *Router) handleNewMessage(s Session, data json.RawMessage, ackID string) {
	var payload models.NewMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	if payload.Message == "" || payload.Chat == "" || payload.Sender == "" {
		return
	}

	chat, err := r.Store.GetChatByID(payload.Chat)
	if err != nil || chat == nil {
		log.Printf("ERROR: New message dropped, chat %s not found", payload.Chat)
		return
	}

	msg := &models.Message{
		ChatID:    chat.ID,
		SenderID:  payload.Sender,
		Content:   payload.Message,
		CreatedAt: time.Now(),
	}
	if err := r.Store.CreateMessage(msg); err != nil {
		return
	}
	if err := r.Store.SetLatestMessage(chat.ID, msg.ID); err != nil {
		log.Printf("ERROR: Failed to update latest message for chat %s: %v", chat.ID, err)
	}

	for _, member := range chat.Users {
		if member.ID == payload.Sender {
			continue
		}
		if handle := r.Presence.HandleFor(member.ID); handle != nil {
			handle.Send(models.NewEvent(models.EventNewMessageOut, msg))
		}
	}

	if ackID != "" {
		s.Send(models.NewAck(ackID, msg))
	}
	log.Printf("New message in chat %s from %s", chat.ID, payload.Sender)
}

// handleMessageRead broadcasts a read receipt to the whole chat room,
// reader included (harmless). No per-message read state is persisted here.
func (r *Router) handleMessageRead(s Session, data json.RawMessage) {
	var payload models.MessageReadPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		return
	}

	r.publishRoom(models.RoomEvent{
		ChatID: payload.ChatID,
		Event: models.NewEvent(models.EventReadUpdate, models.ReadUpdatePayload{
			MessageID: payload.MessageID,
			ReaderID:  payload.ReaderID,
		}),
	})
}

func (r *Router) handleCheckOnline(s Session, data json.RawMessage) {
	var userID string
	if err := json.Unmarshal(data, &userID); err != nil || userID == "" {
		return
	}
	s.Send(models.NewEvent(models.EventOnlineStatus, models.OnlineStatusPayload{
		UserID:   userID,
		IsOnline: r.Presence.IsOnline(userID),
	}))
}

func (r *Router) handleAddNotification(s Session, data json.RawMessage) {
	var payload models.AddNotificationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	if payload.Recipient == "" || payload.Message == "" {
		return
	}
	r.Notify.Add(payload.Recipient, payload.Chat, payload.Message)
}

func (r *Router) handleClearNotifications(s Session, data json.RawMessage, ackID string) {
	var payload models.ClearNotificationsPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		return
	}
	if s.Identity() == nil {
		return
	}

	cleared, err := r.Notify.Clear(s.UserID(), payload.ChatID)
	if ackID != "" {
		s.Send(models.NewAck(ackID, models.ClearNotificationsAck{
			Success: err == nil,
			Cleared: cleared,
		}))
	}
}

// handleMessageAck advances the caller's last-acknowledged-message pointer.
// Best effort: failures are logged, the caller is never told.
func (r *Router) handleMessageAck(s Session, data json.RawMessage) {
	var payload models.MessageAckPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.MessageID == "" {
		return
	}
	if s.Identity() == nil {
		return
	}

	msg, err := r.Store.GetMessageByID(payload.MessageID)
	if err != nil || msg == nil {
		return
	}
	if err := r.Store.UpdateLastMessageID(s.UserID(), msg.ID); err != nil {
		log.Printf("ERROR: Failed to update last message for user %s: %v", s.UserID(), err)
	}
}

func (r *Router) handleFindRandomTalk(s Session, data json.RawMessage) {
	var payload models.FindRandomTalkPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return
	}
	r.Match.FindMatch(payload.UserID, s, payload.Interests)
}

func (r *Router) handleCancelRandomTalk(s Session, data json.RawMessage) {
	var payload models.CancelRandomTalkPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return
	}
	r.Match.Cancel(payload.UserID)
}

func (r *Router) handleRandomTalkMessage(s Session, data json.RawMessage) {
	var payload models.RandomTalkMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	identity := s.Identity()
	if identity == nil {
		log.Printf("ERROR: Random talk message dropped: connection has no identity")
		return
	}
	r.Match.SendMessage(identity.ID, identity, payload.RecipientID, payload.Message)
}

func (r *Router) handleRandomTalkTyping(s Session, data json.RawMessage) {
	var payload models.RandomTalkTypingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SenderID == "" {
		return
	}
	r.Match.Typing(payload.SenderID, payload.RecipientID, payload.IsTyping)
}

func (r *Router) handleEndRandomTalk(s Session, data json.RawMessage) {
	var payload models.EndRandomTalkPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return
	}
	r.Match.EndChat(payload.UserID, payload.PartnerID, s)
}

// HandleDisconnect unwinds everything a connection holds: presence, queue
// membership, active pairing, room subscriptions; then persists lastSeen and
// announces the user offline to their chats. Every step runs even when an
// earlier one fails.
func (r *Router) HandleDisconnect(s Session) {
	if s.Identity() == nil {
		return
	}
	userID := s.UserID()

	// Only this session's own presence entry is removed; a newer session
	// that superseded it stays online.
	if r.Presence.HandleFor(userID) == presence.Conn(s) {
		r.Presence.MarkOffline(userID)
	}

	r.Match.CleanupDisconnect(userID)

	now := time.Now()
	if err := r.Store.UpdateLastSeen(userID, now); err != nil {
		log.Printf("ERROR: Failed to update lastSeen for %s: %v", userID, err)
	}

	chatIDs, err := r.Store.ChatIDsForUser(userID)
	if err == nil {
		for _, chatID := range chatIDs {
			r.publishRoom(models.RoomEvent{
				ChatID:        chatID,
				ExcludeUserID: userID,
				Event: models.NewEvent(models.EventUserStatus, models.UserStatusPayload{
					ChatID:   chatID,
					UserID:   userID,
					Status:   "offline",
					LastSeen: &now,
				}),
			})
		}
	}

	r.Hub.Rooms.LeaveAll(s)
	log.Printf("Offline: %s", userID)
}

func (r *Router) publishRoom(ev models.RoomEvent) {
	if err := r.Store.PublishRoomEvent(ev); err != nil {
		log.Printf("ERROR: Failed to publish room event for chat %s: %v", ev.ChatID, err)
	}
}
