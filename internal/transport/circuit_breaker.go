package transport

import (
	"context"

	"bullhorn/pkg/circuitbreaker"
)

// Circuit breaker decorators. An open breaker fails fast with a transient
// error, so the broker's redelivery cadence spaces out further attempts while
// the provider recovers. Permanent errors still pass through unchanged.

type breakerSMS struct {
	inner SMSClient
	cb    *circuitbreaker.Wrapper
}

func NewBreakerSMS(inner SMSClient, cb *circuitbreaker.Wrapper) SMSClient {
	return &breakerSMS{inner: inner, cb: cb}
}

func (c *breakerSMS) Send(ctx context.Context, to, from, body string) error {
	_, err := c.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, c.inner.Send(ctx, to, from, body)
	})
	if err != nil {
		circuitbreaker.RecordFailure(c.cb.Name())
	}
	return err
}

type breakerEmail struct {
	inner EmailClient
	cb    *circuitbreaker.Wrapper
}

func NewBreakerEmail(inner EmailClient, cb *circuitbreaker.Wrapper) EmailClient {
	return &breakerEmail{inner: inner, cb: cb}
}

func (c *breakerEmail) Send(ctx context.Context, email Email) error {
	_, err := c.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, c.inner.Send(ctx, email)
	})
	if err != nil {
		circuitbreaker.RecordFailure(c.cb.Name())
	}
	return err
}
