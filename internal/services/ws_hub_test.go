package services

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	writeErr error
	closed   bool
	writing  bool
	overlap  bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	if c.writing {
		c.overlap = true
	}
	c.writing = true
	c.mu.Unlock()

	time.Sleep(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.writing = false
	if c.writeErr != nil {
		return c.writeErr
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func TestWSHub_Presence(t *testing.T) {
	hub := NewWSHub()
	assert.False(t, hub.IsOnline("alice"))

	first := hub.Register("alice", &fakeConn{})
	second := hub.Register("alice", &fakeConn{})
	assert.True(t, hub.IsOnline("alice"))

	hub.Unregister(first)
	assert.True(t, hub.IsOnline("alice"), "one connection left")

	hub.Unregister(second)
	assert.False(t, hub.IsOnline("alice"))

	assert.NotPanics(t, func() { hub.Unregister(second) })
}

func TestWSHub_SendToUserReachesEveryConnection(t *testing.T) {
	hub := NewWSHub()
	a, b := &fakeConn{}, &fakeConn{}
	hub.Register("alice", a)
	hub.Register("alice", b)

	require.NoError(t, hub.SendToUser("alice", WSMessage{Type: "pong"}))
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())

	var msg WSMessage
	require.NoError(t, json.Unmarshal(a.messages[0], &msg))
	assert.Equal(t, "pong", msg.Type)

	assert.Error(t, hub.SendToUser("bob", WSMessage{Type: "pong"}))
}

func TestWSHub_FailedWriteUnregisters(t *testing.T) {
	hub := NewWSHub()
	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	hub.Register("alice", broken)

	assert.Error(t, hub.SendToUser("alice", WSMessage{Type: "pong"}))
	assert.False(t, hub.IsOnline("alice"))
	assert.True(t, broken.closed)
}

func TestClient_SerializesWrites(t *testing.T) {
	hub := NewWSHub()
	conn := &fakeConn{}
	client := hub.Register("alice", conn)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.Send(WSMessage{Type: "pong"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, conn.count())
	assert.False(t, conn.overlap)
}

func TestWSHub_Close(t *testing.T) {
	hub := NewWSHub()
	conn := &fakeConn{}
	hub.Register("alice", conn)

	hub.Close()
	assert.False(t, hub.IsOnline("alice"))
	assert.True(t, conn.closed)
}
