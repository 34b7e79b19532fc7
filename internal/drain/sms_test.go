package drain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bullhorn/internal/event"
	"bullhorn/internal/logger"
	"bullhorn/internal/stats"
	"bullhorn/internal/transport"
)

type fakeSMSClient struct {
	err   error
	calls int
	to    string
	from  string
	body  string
}

func (f *fakeSMSClient) Send(_ context.Context, to, from, body string) error {
	f.calls++
	f.to, f.from, f.body = to, from, body
	return f.err
}

func newTestCollector() *stats.Collector {
	return stats.NewCollector(time.Minute, 15*time.Minute)
}

func TestSMSPour(t *testing.T) {
	tests := []struct {
		name        string
		to          string
		clientErr   error
		wantSuccess bool
		wantPerm    bool
		wantCalls   int
	}{
		{
			name:        "successful delivery",
			to:          "+15551234567",
			wantSuccess: true,
			wantCalls:   1,
		},
		{
			name:      "transient provider failure",
			to:        "+15551234567",
			clientErr: errors.New("provider returned 500"),
			wantCalls: 1,
		},
		{
			name:      "permanent provider failure",
			to:        "+15551234567",
			clientErr: transport.NewPermanentError(errors.New("provider returned 400")),
			wantPerm:  true,
			wantCalls: 1,
		},
		{
			name:     "invalid address skips provider",
			to:       "not-a-number",
			wantPerm: true,
		},
		{
			name:     "empty address skips provider",
			to:       "",
			wantPerm: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSMSClient{err: tt.clientErr}
			d := NewSMS(client, SMSOptions{From: "+15550000000"}, newTestCollector(), logger.NopLogger())

			outcome := d.Pour(context.Background(), event.ChannelMessage{
				To:   tt.to,
				Body: "hello",
			})

			assert.Equal(t, tt.wantSuccess, outcome.Success)
			assert.Equal(t, tt.wantPerm, outcome.Permanent)
			assert.Equal(t, tt.wantCalls, client.calls)
			if tt.wantCalls > 0 {
				assert.Equal(t, tt.to, client.to)
				assert.Equal(t, "+15550000000", client.from)
				assert.Equal(t, "hello", client.body)
			}
		})
	}
}

func TestSMSPourRecordsStats(t *testing.T) {
	collector := newTestCollector()
	d := NewSMS(&fakeSMSClient{}, SMSOptions{From: "+15550000000"}, collector, logger.NopLogger())

	d.Pour(context.Background(), event.ChannelMessage{To: "+15551234567", Body: "hi"})
	d.Pour(context.Background(), event.ChannelMessage{To: "bogus", Body: "hi"})

	buckets := collector.CurrentBuckets()
	assert.Equal(t, 2.0, buckets["processed"])
	assert.Equal(t, 1.0, buckets["success"])
	assert.Equal(t, 1.0, buckets["failure"])
	assert.Equal(t, 1.0, buckets["permanent_failure"])
}

func TestValidPhoneNumber(t *testing.T) {
	assert.True(t, validPhoneNumber("+15551234567"))
	assert.True(t, validPhoneNumber("+442071838750"))
	assert.False(t, validPhoneNumber("15551234567"))
	assert.False(t, validPhoneNumber("+1555x234567"))
	assert.False(t, validPhoneNumber("+1"))
	assert.False(t, validPhoneNumber(""))
}
