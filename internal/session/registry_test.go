package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bullhorn/internal/logger"
)

type fakeConn struct {
	mu     sync.Mutex
	events []string
	fail   bool
}

func (c *fakeConn) Send(event string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return assert.AnError
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func TestAnnounceThenIsConnected(t *testing.T) {
	r := NewRegistry(logger.NopLogger())

	assert.False(t, r.IsConnected("user-42"))
	r.Announce("user-42", &fakeConn{})
	assert.True(t, r.IsConnected("user-42"))
}

func TestAnnounceFillsFirstEmptySlot(t *testing.T) {
	r := NewRegistry(logger.NopLogger())

	first := &fakeConn{}
	second := &fakeConn{}
	third := &fakeConn{}

	slot0 := r.Announce("user-42", first)
	slot1 := r.Announce("user-42", second)
	assert.Equal(t, 0, slot0)
	assert.Equal(t, 1, slot1)

	// Freeing slot 0 means the next session reuses it instead of appending.
	r.Disconnect("user-42", slot0)
	assert.Equal(t, 0, r.Announce("user-42", third))
	assert.Len(t, r.Connections("user-42"), 2)
}

func TestDisconnectLastSessionReclaimsEntry(t *testing.T) {
	r := NewRegistry(logger.NopLogger())

	slot := r.Announce("user-42", &fakeConn{})
	r.Disconnect("user-42", slot)

	assert.False(t, r.IsConnected("user-42"))
	assert.Empty(t, r.clients)
}

func TestDisconnectKeepsEntryWhileSessionsRemain(t *testing.T) {
	r := NewRegistry(logger.NopLogger())

	slot0 := r.Announce("user-42", &fakeConn{})
	r.Announce("user-42", &fakeConn{})

	r.Disconnect("user-42", slot0)
	assert.True(t, r.IsConnected("user-42"))
	assert.Len(t, r.Connections("user-42"), 1)
}

func TestDisconnectOutOfRangeIsNoOp(t *testing.T) {
	r := NewRegistry(logger.NopLogger())

	r.Announce("user-42", &fakeConn{})
	r.Disconnect("user-42", 7)
	r.Disconnect("user-42", -1)
	r.Disconnect("stranger", 0)

	assert.True(t, r.IsConnected("user-42"))
}

func TestConnectionsSnapshotSkipsEmptySlots(t *testing.T) {
	r := NewRegistry(logger.NopLogger())

	slot0 := r.Announce("user-42", &fakeConn{})
	kept := &fakeConn{}
	r.Announce("user-42", kept)
	r.Disconnect("user-42", slot0)

	conns := r.Connections("user-42")
	require.Len(t, conns, 1)
	assert.Same(t, kept, conns[0])
}
