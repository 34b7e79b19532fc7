package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bullhorn/internal/logger"
)

func newTestGateway(t *testing.T) (*Gateway, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := NewRegistry(logger.NopLogger())
	gw := NewGateway(registry, 3*time.Second, 16, logger.NopLogger())

	r := gin.New()
	gw.Register(r)
	return gw, r
}

func TestAnnounceUnknownConnection(t *testing.T) {
	_, r := newTestGateway(t)

	body := strings.NewReader(`{"connection":"nope","user":"user-42"}`)
	req := httptest.NewRequest(http.MethodPost, "/notifications/announce", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnnounceMissingFields(t *testing.T) {
	_, r := newTestGateway(t)

	body := strings.NewReader(`{"connection":"abc"}`)
	req := httptest.NewRequest(http.MethodPost, "/notifications/announce", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnnouncePendingConnection(t *testing.T) {
	gw, r := newTestGateway(t)

	conn := newStreamConn("conn-1", 4)
	gw.mu.Lock()
	gw.pending[conn.id] = conn
	gw.mu.Unlock()

	body := strings.NewReader(`{"connection":"conn-1","user":"user-42"}`)
	req := httptest.NewRequest(http.MethodPost, "/notifications/announce", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gw.registry.IsConnected("user-42"))

	recipient, slot, registered := conn.binding()
	assert.True(t, registered)
	assert.Equal(t, "user-42", recipient)
	assert.Equal(t, 0, slot)

	// The grace timer no longer owns the connection.
	assert.Nil(t, gw.takePending("conn-1"))
}

// A client that drops its stream at the instant it announces must not leave
// a closed connection registered: whichever of announce and teardown wins,
// the registry ends up without the session and the connection ends up closed.
func TestAnnounceDuringTeardownNeverLeaksSession(t *testing.T) {
	for i := 0; i < 500; i++ {
		registry := NewRegistry(logger.NopLogger())
		gw := NewGateway(registry, time.Second, 4, logger.NopLogger())

		conn := newStreamConn("conn-1", 4)
		gw.mu.Lock()
		gw.pending[conn.id] = conn
		gw.mu.Unlock()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			gw.bindPending(conn.id, "user-1")
		}()
		go func() {
			defer wg.Done()
			gw.releaseStream(conn)
		}()
		wg.Wait()

		assert.False(t, registry.IsConnected("user-1"))
		assert.Empty(t, registry.Connections("user-1"))
		assert.Error(t, conn.Send("notification", "late"))
	}
}

func readHelloConnection(t *testing.T, body io.Reader) string {
	t.Helper()

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var hello struct {
			Connection string `json:"connection"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &hello))
		return hello.Connection
	}
	t.Fatal("no hello event on stream")
	return ""
}

func TestAnonymousConnectionKickedAfterGrace(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry := NewRegistry(logger.NopLogger())
	gw := NewGateway(registry, 50*time.Millisecond, 4, logger.NopLogger())
	r := gin.New()
	gw.Register(r)

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/notifications/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	connID := readHelloConnection(t, resp.Body)
	require.NotEmpty(t, connID)

	// Never announce; the grace timer must close the stream.
	streamEnded := make(chan struct{})
	go func() {
		io.Copy(io.Discard, resp.Body)
		close(streamEnded)
	}()
	select {
	case <-streamEnded:
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after grace period")
	}

	// The kick took the pending entry with it.
	assert.Nil(t, gw.takePending(connID))

	// A late announce finds nothing to bind.
	body := strings.NewReader(fmt.Sprintf(`{"connection":%q,"user":"user-42"}`, connID))
	late, err := http.Post(srv.URL+"/notifications/announce", "application/json", body)
	require.NoError(t, err)
	defer late.Body.Close()
	assert.Equal(t, http.StatusNotFound, late.StatusCode)
	assert.False(t, registry.IsConnected("user-42"))
}

func TestStreamConnBufferFull(t *testing.T) {
	conn := newStreamConn("conn-1", 1)

	require.NoError(t, conn.Send("notification", "first"))
	assert.Error(t, conn.Send("notification", "second"))
}

func TestStreamConnClosed(t *testing.T) {
	conn := newStreamConn("conn-1", 4)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	assert.Error(t, conn.Send("notification", "late"))
}
