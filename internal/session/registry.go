// Package session tracks live interactive connections per recipient for the
// web channel. A recipient may hold several sessions at once (multi-device);
// each session occupies a slot in the recipient's session list.
package session

import (
	"sync"

	"bullhorn/internal/logger"
	"bullhorn/pkg/metrics"
)

// Conn is the outbound half of an interactive connection. Implementations
// must be safe to call from the drain goroutine.
type Conn interface {
	Send(event string, payload interface{}) error
	Close() error
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string][]Conn
	logger  logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		clients: make(map[string][]Conn),
		logger:  log,
	}
}

// Announce registers a session for recipientID and returns the slot it was
// assigned: the first empty slot, or a new one appended at the end. Slot
// indices stay stable for the lifetime of the session so a disconnect can
// name the session it is clearing.
func (r *Registry) Announce(recipientID string, conn Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.clients[recipientID]
	slot := -1
	for i, s := range sessions {
		if s == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		sessions = append(sessions, nil)
		slot = len(sessions) - 1
	}
	sessions[slot] = conn
	r.clients[recipientID] = sessions

	metrics.WebSessionsActive.Inc()
	r.logger.Debugw("Session registered",
		"recipient", recipientID,
		"slot", slot,
	)
	return slot
}

// Disconnect clears the slot. When the recipient has no remaining sessions
// the whole entry is removed so the map does not grow with every visitor
// that ever connected.
func (r *Registry) Disconnect(recipientID string, slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.clients[recipientID]
	if !ok || slot < 0 || slot >= len(sessions) || sessions[slot] == nil {
		return
	}
	sessions[slot] = nil
	metrics.WebSessionsActive.Dec()

	for _, s := range sessions {
		if s != nil {
			return
		}
	}
	delete(r.clients, recipientID)
}

// IsConnected reports whether the recipient has at least one live session.
func (r *Registry) IsConnected(recipientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.clients[recipientID]
	return ok
}

// Connections returns a snapshot of the recipient's live sessions.
func (r *Registry) Connections(recipientID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.clients[recipientID]
	out := make([]Conn, 0, len(sessions))
	for _, s := range sessions {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
