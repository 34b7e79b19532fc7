// Package event holds the wire values exchanged over the broker: the inbound
// notification event consumed by the dispatcher and the per-channel message
// each drain consumes.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"bullhorn/internal/constants"
)

// Channel identifies a delivery channel. It doubles as the drain name and as
// the suffix of the channel's queue.
type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelSMS, ChannelEmail:
		return true
	}
	return false
}

// Queue returns the durable queue the channel's drain consumes from.
func (c Channel) Queue() string {
	switch c {
	case ChannelSMS:
		return constants.QueueSMS
	case ChannelEmail:
		return constants.QueueEmail
	case ChannelWeb:
		return constants.QueueWeb
	}
	return ""
}

// Notification is the immutable inbound event placed on the notifications
// queue by the ingestion API. It is consumed logically once by the
// dispatcher; physically delivery is at-least-once.
type Notification struct {
	ID        string     `json:"id"`
	Recipient string     `json:"recipient"`
	Template  string     `json:"template,omitempty"`
	To        AddressSet `json:"to,omitempty"`
	Msg       string     `json:"msg"`
	Domain    string     `json:"domain"`
	CreatedAt time.Time  `json:"created_at,omitzero"`
}

func (n Notification) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("notification event missing id")
	}
	if n.Recipient == "" {
		return fmt.Errorf("notification event %s missing recipient", n.ID)
	}
	if n.Domain == "" {
		return fmt.Errorf("notification event %s missing domain", n.ID)
	}
	if n.Msg == "" {
		return fmt.Errorf("notification event %s missing msg", n.ID)
	}
	return nil
}

// AddressSet tolerates both a single string and an array of strings on the
// wire; the ingestion API historically produced either shape.
type AddressSet []string

func (a *AddressSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*a = nil
		} else {
			*a = AddressSet{single}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("to must be a string or an array of strings")
	}
	*a = AddressSet(many)
	return nil
}

// ChannelMessage is the value placed on a per-channel queue. The broker owns
// it until the channel consumer acks. Channel consumers must tolerate
// duplicates: a failed fan-out is redelivered whole, so sub-messages that
// already succeeded may arrive again.
type ChannelMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

func (m ChannelMessage) Validate() error {
	if m.To == "" {
		return fmt.Errorf("channel message missing to")
	}
	if m.Body == "" {
		return fmt.Errorf("channel message missing body")
	}
	return nil
}
