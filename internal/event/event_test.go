package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressSetUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want AddressSet
	}{
		{name: "single string", raw: `"a@example.com"`, want: AddressSet{"a@example.com"}},
		{name: "array", raw: `["a@example.com","b@example.com"]`, want: AddressSet{"a@example.com", "b@example.com"}},
		{name: "empty string", raw: `""`, want: nil},
		{name: "empty array", raw: `[]`, want: AddressSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got AddressSet
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &got))
			assert.Equal(t, tt.want, got)
		})
	}

	var got AddressSet
	assert.Error(t, json.Unmarshal([]byte(`42`), &got))
}

func TestNotificationValidate(t *testing.T) {
	ev := Notification{ID: "msg-1", Recipient: "user-1", Msg: "hi", Domain: "builds"}
	assert.NoError(t, ev.Validate())

	missing := ev
	missing.Recipient = ""
	assert.Error(t, missing.Validate())

	missing = ev
	missing.Domain = ""
	assert.Error(t, missing.Validate())
}

func TestChannelQueue(t *testing.T) {
	assert.Equal(t, "notifications.sms", ChannelSMS.Queue())
	assert.Equal(t, "notifications.email", ChannelEmail.Queue())
	assert.Equal(t, "notifications.web", ChannelWeb.Queue())
	assert.Empty(t, Channel("pager").Queue())
	assert.False(t, Channel("pager").Valid())
}
