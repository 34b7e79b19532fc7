// Package transport wraps the external delivery providers. Providers are
// opaque: any failure surfaces as an error, and errors marked permanent
// (invalid destination address, rejected payload) tell the drain the message
// will never succeed no matter how often it is retried.
package transport

import (
	"context"
	"errors"
	"fmt"
)

type SMSClient interface {
	Send(ctx context.Context, to, from, body string) error
}

type Email struct {
	To      string
	Subject string
	Body    string
}

type EmailClient interface {
	Send(ctx context.Context, email Email) error
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Permanent() bool {
	return true
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// NewPermanentError marks err as a permanent provider failure.
func NewPermanentError(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err is marked permanent anywhere in its chain.
func IsPermanent(err error) bool {
	var p interface{ Permanent() bool }
	if errors.As(err, &p) {
		return p.Permanent()
	}
	return false
}

func permanentf(format string, args ...interface{}) error {
	return NewPermanentError(fmt.Errorf(format, args...))
}
