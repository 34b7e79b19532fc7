package drain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bullhorn/internal/broker"
	"bullhorn/internal/event"
	"bullhorn/internal/logger"
	"bullhorn/internal/session"
	"bullhorn/pkg/retry"
)

type staticDrain struct {
	outcome Outcome
	poured  []event.ChannelMessage
}

func (d *staticDrain) Name() string { return "static" }

func (d *staticDrain) Pour(_ context.Context, msg event.ChannelMessage) Outcome {
	d.poured = append(d.poured, msg)
	return d.outcome
}

func channelBody(t *testing.T, msg event.ChannelMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func TestHandlerSettlement(t *testing.T) {
	msg := event.ChannelMessage{To: "+15551234567", Body: "hello"}

	tests := []struct {
		name        string
		outcome     Outcome
		bestEffort  bool
		redelivered bool
		wantAck     bool
		wantFatal   bool
	}{
		{
			name:    "success acks",
			outcome: Outcome{Success: true},
			wantAck: true,
		},
		{
			name:    "transient failure requeues",
			outcome: Outcome{},
		},
		{
			name:      "permanent failure dead-letters",
			outcome:   Outcome{Permanent: true},
			wantFatal: true,
		},
		{
			name:        "redelivered transient failure dead-letters",
			outcome:     Outcome{},
			redelivered: true,
			wantFatal:   true,
		},
		{
			name:       "best effort acks failures",
			outcome:    Outcome{},
			bestEffort: true,
			wantAck:    true,
		},
		{
			name:       "best effort acks permanent failures",
			outcome:    Outcome{Permanent: true},
			bestEffort: true,
			wantAck:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &staticDrain{outcome: tt.outcome}
			handler := NewHandler(d, tt.bestEffort, logger.NopLogger())

			err := handler(context.Background(), broker.Delivery{
				Queue:       "notifications.sms",
				Body:        channelBody(t, msg),
				Redelivered: tt.redelivered,
			})

			require.Len(t, d.poured, 1)
			assert.Equal(t, msg.To, d.poured[0].To)
			if tt.wantAck {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantFatal, retry.IsFatal(err))
		})
	}
}

func TestHandlerMalformedMessage(t *testing.T) {
	handler := NewHandler(&staticDrain{}, false, logger.NopLogger())

	err := handler(context.Background(), broker.Delivery{
		Queue: "notifications.sms",
		Body:  []byte("{not json"),
	})
	require.Error(t, err)
	assert.True(t, retry.IsFatal(err))

	err = handler(context.Background(), broker.Delivery{
		Queue: "notifications.sms",
		Body:  []byte(`{"body":"missing recipient"}`),
	})
	require.Error(t, err)
	assert.True(t, retry.IsFatal(err))
}

// An offline recipient must not cause the web consumer to requeue; the push
// would arrive long after the client cared about it.
func TestWebHandlerNeverRequeues(t *testing.T) {
	registry := session.NewRegistry(logger.NopLogger())
	d := NewWeb(registry, newTestCollector(), logger.NopLogger())
	handler := NewHandler(d, true, logger.NopLogger())

	err := handler(context.Background(), broker.Delivery{
		Queue: "notifications.web",
		Body:  channelBody(t, event.ChannelMessage{To: "ghost", Body: "hi"}),
	})
	assert.NoError(t, err)
}
