package drain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"bullhorn/internal/event"
	"bullhorn/internal/logger"
	"bullhorn/internal/transport"
)

type fakeEmailClient struct {
	err   error
	calls int
	last  transport.Email
}

func (f *fakeEmailClient) Send(_ context.Context, email transport.Email) error {
	f.calls++
	f.last = email
	return f.err
}

func TestEmailPour(t *testing.T) {
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
			to:          "user@example.com",
			wantSuccess: true,
			wantCalls:   1,
		},
		{
			name:      "transient provider failure",
			to:        "user@example.com",
			clientErr: errors.New("provider unavailable"),
			wantCalls: 1,
		},
		{
			name:      "permanent provider failure",
			to:        "user@example.com",
			clientErr: transport.NewPermanentError(errors.New("inactive recipient")),
			wantPerm:  true,
			wantCalls: 1,
		},
		{
			name:     "invalid address skips provider",
			to:       "not-an-address",
			wantPerm: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeEmailClient{err: tt.clientErr}
			d := NewEmail(client, EmailOptions{}, newTestCollector(), logger.NopLogger())

			outcome := d.Pour(context.Background(), event.ChannelMessage{
				To:      tt.to,
				Subject: "Build finished",
				Body:    "all green",
			})

			assert.Equal(t, tt.wantSuccess, outcome.Success)
			assert.Equal(t, tt.wantPerm, outcome.Permanent)
			assert.Equal(t, tt.wantCalls, client.calls)
			if tt.wantCalls > 0 {
				assert.Equal(t, tt.to, client.last.To)
				assert.Equal(t, "Build finished", client.last.Subject)
				assert.Equal(t, "all green", client.last.Body)
			}
		})
	}
}

func TestEmailPourSubjectDefault(t *testing.T) {
	client := &fakeEmailClient{}
	d := NewEmail(client, EmailOptions{DefaultSubject: "New notification"}, newTestCollector(), logger.NopLogger())

	d.Pour(context.Background(), event.ChannelMessage{To: "user@example.com", Body: "hi"})
	assert.Equal(t, "New notification", client.last.Subject)

	d.Pour(context.Background(), event.ChannelMessage{To: "user@example.com", Subject: "Explicit", Body: "hi"})
	assert.Equal(t, "Explicit", client.last.Subject)
}
