package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"talklink/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Session is what the router sees of a live connection: the presence handle
// plus the identity bound at setup.
type Session interface {
	UserID() string
	Send(ev models.Event) bool
	Identity() *models.User
	BindIdentity(u *models.User)
}

// WSClient is one live WebSocket connection. The read pump dispatches each
// inbound event to completion before reading the next, so events on a single
// connection are handled serially; connections interleave freely.
type WSClient struct {
	conn   *websocket.Conn
	router *Router

	mu       sync.Mutex
	userID   string
	identity *models.User
	closed   bool

	send chan models.Event
}

// NewWSClient wraps an upgraded connection. userID comes from the validated
// token at upgrade time; the full identity is bound later by setup.
func NewWSClient(conn *websocket.Conn, userID string, router *Router) *WSClient {
	return &WSClient{
		conn:   conn,
		router: router,
		userID: userID,
		send:   make(chan models.Event, sendBufferSize),
	}
}

func (c *WSClient) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *WSClient) Identity() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *WSClient) BindIdentity(u *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = u
	c.userID = u.ID
}

// Send queues an event for the write pump without blocking. A full buffer or
// a closed connection drops the event and reports false.
func (c *WSClient) Send(ev models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- ev:
		return true
	default:
		log.Printf("Dropping %q event for slow client %s", ev.Name, c.userID)
		return false
	}
}

// Close shuts the send channel exactly once, which stops the write pump.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Run starts the pumps.
func (c *WSClient) Run() {
	go c.writePump()
	go c.readPump()
}

func (c *WSClient) readPump() {
	defer func() {
		c.router.HandleDisconnect(c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}

		var ev models.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("Error decoding event from client %s: %v", c.UserID(), err)
			continue
		}

		c.router.Dispatch(c, ev)
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Error encoding event for client %s: %v", c.UserID(), err)
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

			// Flush whatever else is already queued.
			n := len(c.send)
			for i := 0; i < n; i++ {
				next, ok := <-c.send
				if !ok {
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				extra, err := json.Marshal(next)
				if err != nil {
					continue
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, extra); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
