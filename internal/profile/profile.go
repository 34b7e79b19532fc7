// Package profile is the persistence collaborator for recipient delivery
// preferences. The dispatcher only reads profiles; ownership of the CRUD
// surface lives with the management API, outside this repo.
package profile

import (
	"context"
	"errors"

	"bullhorn/internal/event"
)

// ErrNotFound distinguishes a missing profile from infrastructure failures.
// The dispatcher dead-letters on not-found and requeues on anything else.
var ErrNotFound = errors.New("profile not found")

// Rule is one ordered delivery preference. A rule is eligible for an event
// when the event's domain tag is in For. An exclusive rule terminates rule
// evaluation once included.
type Rule struct {
	Type      event.Channel `bson:"type" json:"type"`
	Addr      string        `bson:"addr" json:"addr"`
	Verified  bool          `bson:"verified" json:"verified"`
	For       []string      `bson:"for" json:"for"`
	Exclusive bool          `bson:"exclusive,omitempty" json:"exclusive,omitempty"`
}

type Profile struct {
	ID        string `bson:"_id" json:"id"`
	Domain    string `bson:"domain" json:"domain"`
	FirstName string `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName  string `bson:"lastName,omitempty" json:"lastName,omitempty"`
	TimeZone  string `bson:"timeZone,omitempty" json:"timeZone,omitempty"`
	Drains    []Rule `bson:"drains" json:"drains"`
}

type Store interface {
	// FindByID returns ErrNotFound when no profile exists for id; any other
	// error is a transient infrastructure failure.
	FindByID(ctx context.Context, id string) (*Profile, error)
	Update(ctx context.Context, p *Profile) (*Profile, error)
}
