package broker

import (
	"context"
)

// Delivery is one message handed to a consumer handler. The broker owns the
// message until the handler returns and the consumer settles it.
type Delivery struct {
	Queue       string
	Body        []byte
	MessageID   string
	Redelivered bool
}

// HandlerFunc processes one delivery. A nil return acks the message. An
// error marked fatal (retry.FatalError) rejects it without requeue so the
// dead-letter queue captures it; any other error requeues it for
// redelivery.
type HandlerFunc func(ctx context.Context, d Delivery) error

type Producer interface {
	// Publish places body on the named durable queue. The message is
	// confirmed durable by the broker before Publish returns nil.
	Publish(ctx context.Context, queue string, body []byte) error
	Close() error
}

type Consumer interface {
	// Consume blocks processing messages from the named queue until ctx is
	// canceled. Broker disconnects are handled internally with
	// reconnect-and-backoff; in-flight unacked messages stay with the broker
	// across reconnects.
	Consume(ctx context.Context, queue string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}
