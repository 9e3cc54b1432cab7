// Package hub is the live-coordination core: the chat event router, the
// per-chat room table, the WebSocket client, and the Redis fanout loop that
// applies room-scoped broadcasts to local subscribers.
package hub

import (
	"encoding/json"
	"log"

	"talklink/backend/internal/models"
	"talklink/backend/internal/storage"
)

// Hub owns the room table and the fanout loop. Room broadcasts always travel
// through the Redis room-events channel, so every instance — including the
// one that published — applies them the same way.
type Hub struct {
	Rooms    *RoomTable
	EventsCh chan models.RoomEvent

	store storage.Store
}

func NewHub(store storage.Store) *Hub {
	return &Hub{
		Rooms:    NewRoomTable(),
		EventsCh: make(chan models.RoomEvent, 64),
		store:    store,
	}
}

// StartPubSubListener subscribes to the Redis room-events channel and feeds
// decoded events into EventsCh for Run to apply.
func (h *Hub) StartPubSubListener() {
	go func() {
		pubsub := h.store.SubscribeRoomEvents()
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var ev models.RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("ERROR: Failed to decode room event: %v", err)
				continue
			}
			h.EventsCh <- ev
		}
	}()
}

// Run applies room events to local subscribers. Runs as a single goroutine
// so fanout ordering per room matches publish ordering.
func (h *Hub) Run() {
	log.Println("Hub fanout loop started.")
	for ev := range h.EventsCh {
		h.Rooms.Broadcast(ev)
	}
}
