package drain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"bullhorn/internal/event"
	"bullhorn/internal/logger"
	"bullhorn/internal/session"
)

type fakeSessionConn struct {
	err    error
	events []string
}

func (f *fakeSessionConn) Send(event string, _ interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSessionConn) Close() error { return nil }

func TestWebPour(t *testing.T) {
	t.Run("pushes to every live session", func(t *testing.T) {
		registry := session.NewRegistry(logger.NopLogger())
		first := &fakeSessionConn{}
		second := &fakeSessionConn{}
		registry.Announce("user-1", first)
		registry.Announce("user-1", second)

		d := NewWeb(registry, newTestCollector(), logger.NopLogger())
		outcome := d.Pour(context.Background(), event.ChannelMessage{To: "user-1", Body: "hi"})

		assert.True(t, outcome.Success)
		assert.False(t, outcome.Permanent)
		assert.Equal(t, []string{"notification"}, first.events)
		assert.Equal(t, []string{"notification"}, second.events)
	})

	t.Run("no live sessions fails without permanence", func(t *testing.T) {
		registry := session.NewRegistry(logger.NopLogger())
		collector := newTestCollector()

		d := NewWeb(registry, collector, logger.NopLogger())
		outcome := d.Pour(context.Background(), event.ChannelMessage{To: "ghost", Body: "hi"})

		assert.False(t, outcome.Success)
		assert.False(t, outcome.Permanent)

		buckets := collector.CurrentBuckets()
		assert.Equal(t, 1.0, buckets["offline"])
		assert.Equal(t, 1.0, buckets["failure"])
	})

	t.Run("partial push still succeeds", func(t *testing.T) {
		registry := session.NewRegistry(logger.NopLogger())
		broken := &fakeSessionConn{err: errors.New("buffer full")}
		healthy := &fakeSessionConn{}
		registry.Announce("user-1", broken)
		registry.Announce("user-1", healthy)

		d := NewWeb(registry, newTestCollector(), logger.NopLogger())
		outcome := d.Pour(context.Background(), event.ChannelMessage{To: "user-1", Body: "hi"})

		assert.True(t, outcome.Success)
		assert.Equal(t, []string{"notification"}, healthy.events)
	})

	t.Run("all pushes failing is a failed outcome", func(t *testing.T) {
		registry := session.NewRegistry(logger.NopLogger())
		registry.Announce("user-1", &fakeSessionConn{err: errors.New("buffer full")})

		d := NewWeb(registry, newTestCollector(), logger.NopLogger())
		outcome := d.Pour(context.Background(), event.ChannelMessage{To: "user-1", Body: "hi"})

		assert.False(t, outcome.Success)
		assert.False(t, outcome.Permanent)
	})
}
