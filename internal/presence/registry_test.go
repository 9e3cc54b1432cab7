package presence_test

import (
	"sync"
	"testing"

	"talklink/backend/internal/models"
	"talklink/backend/internal/presence"

	"github.com/stretchr/testify/assert"
)

type stubConn struct {
	id string

	mu     sync.Mutex
	events []models.Event
}

func newStubConn(id string) *stubConn {
	return &stubConn{id: id}
}

func (c *stubConn) UserID() string { return c.id }

func (c *stubConn) Send(ev models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return true
}

// TestRegistryReflectsMostRecentCall verifies that IsOnline always tracks the
// latest MarkOnline/MarkOffline for each user.
func TestRegistryReflectsMostRecentCall(t *testing.T) {
	reg := presence.NewRegistry()
	conn := newStubConn("user_A")

	assert.False(t, reg.IsOnline("user_A"))

	reg.MarkOnline("user_A", conn)
	assert.True(t, reg.IsOnline("user_A"))
	assert.Equal(t, presence.Conn(conn), reg.HandleFor("user_A"))

	reg.MarkOffline("user_A")
	assert.False(t, reg.IsOnline("user_A"))
	assert.Nil(t, reg.HandleFor("user_A"))

	reg.MarkOnline("user_A", conn)
	assert.True(t, reg.IsOnline("user_A"))
}

// TestMarkOnlineReturnsSupersededHandle checks that a reconnect replaces the
// old handle and surfaces it to the caller.
func TestMarkOnlineReturnsSupersededHandle(t *testing.T) {
	reg := presence.NewRegistry()
	oldConn := newStubConn("user_A")
	newConn := newStubConn("user_A")

	prev := reg.MarkOnline("user_A", oldConn)
	assert.Nil(t, prev, "first session has nothing to supersede")

	prev = reg.MarkOnline("user_A", newConn)
	assert.Equal(t, presence.Conn(oldConn), prev)
	assert.Equal(t, presence.Conn(newConn), reg.HandleFor("user_A"))
}

// TestMarkOnlineSameHandleIsNotSuperseded covers a repeated setup on the
// same connection.
func TestMarkOnlineSameHandleIsNotSuperseded(t *testing.T) {
	reg := presence.NewRegistry()
	conn := newStubConn("user_A")

	reg.MarkOnline("user_A", conn)
	prev := reg.MarkOnline("user_A", conn)
	assert.Nil(t, prev)
	assert.True(t, reg.IsOnline("user_A"))
}

// TestRegistryIsolatesUsers makes sure operations on one user never touch
// another's entry.
func TestRegistryIsolatesUsers(t *testing.T) {
	reg := presence.NewRegistry()
	reg.MarkOnline("user_A", newStubConn("user_A"))
	reg.MarkOnline("user_B", newStubConn("user_B"))

	reg.MarkOffline("user_A")
	assert.False(t, reg.IsOnline("user_A"))
	assert.True(t, reg.IsOnline("user_B"))
}
