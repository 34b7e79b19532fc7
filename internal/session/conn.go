package session

import (
	"fmt"
	"sync"
)

type streamEvent struct {
	name    string
	payload interface{}
}

// streamConn is a server-sent-events backed Conn. Sends are non-blocking: a
// slow client that lets the buffer fill drops events rather than stalling
// the drain.
type streamConn struct {
	id     string
	events chan streamEvent
	done   chan struct{}
	once   sync.Once

	mu         sync.Mutex
	recipient  string
	slot       int
	registered bool
}

func newStreamConn(id string, buffer int) *streamConn {
	if buffer <= 0 {
		buffer = 16
	}
	return &streamConn{
		id:     id,
		events: make(chan streamEvent, buffer),
		done:   make(chan struct{}),
	}
}

func (c *streamConn) Send(event string, payload interface{}) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection %s closed", c.id)
	default:
	}

	select {
	case c.events <- streamEvent{name: event, payload: payload}:
		return nil
	default:
		return fmt.Errorf("connection %s send buffer full", c.id)
	}
}

func (c *streamConn) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *streamConn) bind(recipient string, slot int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipient = recipient
	c.slot = slot
	c.registered = true
}

func (c *streamConn) binding() (string, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recipient, c.slot, c.registered
}
