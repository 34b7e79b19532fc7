// Package retry classifies handler errors and drives backoff loops.
//
// Expected, terminal failures (malformed payload, recipient deleted) are
// wrapped as fatal so the broker layer dead-letters instead of requeueing.
// Everything else defaults to retryable.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) IsRetryable() bool {
	return true
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func NewRetryableError(err error) RetryableError {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

type FatalError interface {
	error
	IsFatal() bool
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) IsFatal() bool {
	return true
}

func (e *fatalError) Unwrap() error {
	return e.err
}

func NewFatalError(err error) FatalError {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err is marked as non-retryable anywhere in its
// chain. Unmarked errors are treated as retryable.
func IsFatal(err error) bool {
	var fatalErr FatalError
	if errors.As(err, &fatalErr) {
		return fatalErr.IsFatal()
	}
	return false
}

// RecoverPanic converts a recovered panic value into a fatal error so a
// panicking handler poisons at most the one message that triggered it.
func RecoverPanic(r interface{}) error {
	if err, ok := r.(error); ok {
		return NewFatalError(fmt.Errorf("panic during message processing: %w", err))
	}
	return NewFatalError(fmt.Errorf("panic during message processing: %v", r))
}

type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}
}

func (p Policy) backoff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		exp.Multiplier = p.Multiplier
	}
	exp.MaxElapsedTime = p.MaxElapsedTime
	return exp
}

// Forever retries fn with exponential backoff until it succeeds, it returns
// a fatal error, or ctx is canceled. Used for broker reconnect loops where
// giving up is not an option.
func Forever(ctx context.Context, policy Policy, fn func() error, onRetry func(err error, next time.Duration)) error {
	b := backoff.WithContext(policy.backoff(), ctx)

	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if IsFatal(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		if onRetry != nil {
			onRetry(err, next)
		}
	}

	return backoff.RetryNotify(operation, b, notify)
}
