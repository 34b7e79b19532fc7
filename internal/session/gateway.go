package session

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bullhorn/internal/logger"
)

// Gateway is the HTTP transport for the interactive channel. A client opens
// the stream endpoint (anonymous), receives a connection id, and must
// announce itself within the grace period or the connection is forcibly
// closed. Announced connections live in the Registry until the stream ends.
type Gateway struct {
	registry *Registry
	grace    time.Duration
	buffer   int
	logger   logger.Logger

	mu      sync.Mutex
	pending map[string]*streamConn
}

func NewGateway(registry *Registry, grace time.Duration, buffer int, log logger.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		grace:    grace,
		buffer:   buffer,
		logger:   log,
		pending:  make(map[string]*streamConn),
	}
}

func (g *Gateway) Register(r *gin.Engine) {
	r.GET("/notifications/stream", g.handleStream)
	r.POST("/notifications/announce", g.handleAnnounce)
}

func (g *Gateway) handleStream(c *gin.Context) {
	conn := newStreamConn(uuid.NewString(), g.buffer)

	g.mu.Lock()
	g.pending[conn.id] = conn
	g.mu.Unlock()

	timer := time.AfterFunc(g.grace, func() {
		if g.takePending(conn.id) != nil {
			g.logger.Warnw("Kicking anonymous connection",
				"connection", conn.id,
			)
			conn.Close()
		}
	})

	defer func() {
		timer.Stop()
		g.releaseStream(conn)
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Hand the client its connection id so it can announce.
	c.SSEvent("hello", gin.H{"connection": conn.id})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case e := <-conn.events:
			c.SSEvent(e.name, e.payload)
			return true
		case <-conn.done:
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type announceRequest struct {
	Connection string `json:"connection" binding:"required"`
	User       string `json:"user" binding:"required"`
}

func (g *Gateway) handleAnnounce(c *gin.Context) {
	var req announceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, ok := g.bindPending(req.Connection, req.User)
	if !ok {
		// Unknown id, the grace period already expired, or the stream is
		// tearing down.
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown connection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": req.User, "slot": slot})
}

// takePending removes and returns the pending connection with the given id,
// or nil when it is absent. Whoever takes it owns the next state transition,
// which keeps announce and the grace timer from racing.
func (g *Gateway) takePending(id string) *streamConn {
	g.mu.Lock()
	defer g.mu.Unlock()

	conn, ok := g.pending[id]
	if !ok {
		return nil
	}
	delete(g.pending, id)
	return conn
}

// bindPending atomically claims the pending connection and registers it for
// user. Claim, register and bind happen under one lock so a concurrent
// stream teardown either observes the full binding or finds the connection
// already gone.
func (g *Gateway) bindPending(id, user string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	conn, ok := g.pending[id]
	if !ok {
		return 0, false
	}
	delete(g.pending, id)

	slot := g.registry.Announce(user, conn)
	conn.bind(user, slot)
	return slot, true
}

// releaseStream retires a stream's connection: drops any pending claim,
// unregisters the binding if announce won the race, and closes the
// connection. The binding read shares the announce lock, so a bound
// connection can never be left behind in the registry.
func (g *Gateway) releaseStream(conn *streamConn) {
	g.mu.Lock()
	delete(g.pending, conn.id)
	recipient, slot, registered := conn.binding()
	g.mu.Unlock()

	if registered {
		g.registry.Disconnect(recipient, slot)
		g.logger.Debugw("Session disconnected",
			"recipient", recipient,
			"slot", slot,
		)
	}
	conn.Close()
}
