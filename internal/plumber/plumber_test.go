package plumber

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bullhorn/internal/event"
	"bullhorn/internal/logger"
	"bullhorn/internal/profile"
)

func pwresetEvent() event.Notification {
	return event.Notification{
		ID:        "evt-1",
		Recipient: "user-42",
		Msg:       "your password was reset",
		Domain:    "pwreset",
	}
}

func TestResolve(t *testing.T) {
	resolver := NewResolver(logger.NopLogger())

	tests := []struct {
		name  string
		rules []profile.Rule
		ev    event.Notification
		want  []Target
	}{
		{
			name: "two non-exclusive eligible rules both fire",
			rules: []profile.Rule{
				{Type: event.ChannelSMS, Addr: "+15551230001", For: []string{"pwreset"}},
				{Type: event.ChannelEmail, Addr: "a@example.com", For: []string{"pwreset", "newsletter"}},
			},
			ev: pwresetEvent(),
			want: []Target{
				{Type: event.ChannelSMS, Addr: "+15551230001"},
				{Type: event.ChannelEmail, Addr: "a@example.com"},
			},
		},
		{
			name: "exclusive first rule stops evaluation",
			rules: []profile.Rule{
				{Type: event.ChannelSMS, Addr: "+15551230001", For: []string{"pwreset"}, Exclusive: true},
				{Type: event.ChannelEmail, Addr: "a@example.com", For: []string{"pwreset", "newsletter"}},
			},
			ev: pwresetEvent(),
			want: []Target{
				{Type: event.ChannelSMS, Addr: "+15551230001"},
			},
		},
		{
			name: "exclusive successor terminates the chain without being included",
			rules: []profile.Rule{
				{Type: event.ChannelSMS, Addr: "+15551230001", For: []string{"pwreset"}},
				{Type: event.ChannelEmail, Addr: "a@example.com", For: []string{"pwreset"}, Exclusive: true},
				{Type: event.ChannelWeb, Addr: "user-42", For: []string{"pwreset"}},
			},
			ev: pwresetEvent(),
			want: []Target{
				{Type: event.ChannelSMS, Addr: "+15551230001"},
			},
		},
		{
			name: "exclusive rule reached directly is included and terminates",
			rules: []profile.Rule{
				{Type: event.ChannelSMS, Addr: "+15551230001", For: []string{"newsletter"}},
				{Type: event.ChannelEmail, Addr: "a@example.com", For: []string{"pwreset"}, Exclusive: true},
				{Type: event.ChannelWeb, Addr: "user-42", For: []string{"pwreset"}},
			},
			ev: pwresetEvent(),
			want: []Target{
				{Type: event.ChannelEmail, Addr: "a@example.com"},
			},
		},
		{
			name: "no eligible rule yields empty decision",
			rules: []profile.Rule{
				{Type: event.ChannelSMS, Addr: "+15551230001", For: []string{"newsletter"}},
				{Type: event.ChannelEmail, Addr: "a@example.com", For: []string{"billing"}},
			},
			ev:   pwresetEvent(),
			want: nil,
		},
		{
			name:  "no rules at all yields empty decision",
			rules: nil,
			ev:    pwresetEvent(),
			want:  nil,
		},
		{
			name: "malformed rule is skipped without blocking later rules",
			rules: []profile.Rule{
				{Addr: "+15551230001", For: []string{"pwreset"}}, // missing type
				{Type: event.ChannelSMS, Addr: "+15551230002"},   // missing for
				{Type: event.ChannelEmail, Addr: "a@example.com", For: []string{"pwreset"}},
			},
			ev: pwresetEvent(),
			want: []Target{
				{Type: event.ChannelEmail, Addr: "a@example.com"},
			},
		},
		{
			name: "unknown drain type is skipped",
			rules: []profile.Rule{
				{Type: "carrier-pigeon", Addr: "roof", For: []string{"pwreset"}},
				{Type: event.ChannelWeb, Addr: "user-42", For: []string{"pwreset"}},
			},
			ev: pwresetEvent(),
			want: []Target{
				{Type: event.ChannelWeb, Addr: "user-42"},
			},
		},
		{
			name: "duplicate channel and address keeps first occurrence",
			rules: []profile.Rule{
				{Type: event.ChannelSMS, Addr: "+15551230001", For: []string{"pwreset"}},
				{Type: event.ChannelSMS, Addr: "+15551230001", For: []string{"pwreset", "billing"}},
				{Type: event.ChannelEmail, Addr: "a@example.com", For: []string{"pwreset"}},
			},
			ev: pwresetEvent(),
			want: []Target{
				{Type: event.ChannelSMS, Addr: "+15551230001"},
				{Type: event.ChannelEmail, Addr: "a@example.com"},
			},
		},
		{
			name: "exclusive flag on the last rule does not read out of bounds",
			rules: []profile.Rule{
				{Type: event.ChannelSMS, Addr: "+15551230001", For: []string{"pwreset"}, Exclusive: false},
			},
			ev: pwresetEvent(),
			want: []Target{
				{Type: event.ChannelSMS, Addr: "+15551230001"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &profile.Profile{ID: "user-42", Domain: "app-1", Drains: tt.rules}
			got := resolver.Resolve(p, tt.ev)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveIsPure(t *testing.T) {
	resolver := NewResolver(logger.NopLogger())
	p := &profile.Profile{
		ID: "user-42",
		Drains: []profile.Rule{
			{Type: event.ChannelSMS, Addr: "+15551230001", For: []string{"pwreset"}},
			{Type: event.ChannelEmail, Addr: "a@example.com", For: []string{"pwreset"}},
		},
	}

	first := resolver.Resolve(p, pwresetEvent())
	second := resolver.Resolve(p, pwresetEvent())
	assert.Equal(t, first, second)
	assert.Len(t, p.Drains, 2)
}
