package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"bullhorn/internal/config"
	"bullhorn/internal/constants"
	"bullhorn/internal/logger"
	"bullhorn/pkg/logging"
	"bullhorn/pkg/metrics"
	"bullhorn/pkg/retry"
)

// declareTopology asserts the durable queue layout. All queues dead-letter
// into a shared fanout exchange drained by a single inspection queue.
// Declarations are idempotent, so producer and consumers both run this.
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(constants.DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(constants.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(constants.DeadLetterQueue, "", constants.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}

	args := amqp.Table{"x-dead-letter-exchange": constants.DeadLetterExchange}
	queues := []string{
		constants.QueueNotifications,
		constants.QueueSMS,
		constants.QueueEmail,
		constants.QueueWeb,
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q, err)
		}
	}
	return nil
}

func reconnectPolicy(cfg config.AMQPConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.Reconnect.InitialInterval > 0 {
		policy.InitialInterval = cfg.Reconnect.InitialInterval
	}
	if cfg.Reconnect.MaxInterval > 0 {
		policy.MaxInterval = cfg.Reconnect.MaxInterval
	}
	if cfg.Reconnect.Multiplier > 0 {
		policy.Multiplier = cfg.Reconnect.Multiplier
	}
	return policy
}

type AMQPProducer struct {
	cfg    config.AMQPConfig
	logger logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPProducer(cfg config.AMQPConfig, log logger.Logger) *AMQPProducer {
	return &AMQPProducer{cfg: cfg, logger: log}
}

// ensureChannel dials the broker lazily and puts the channel in confirm mode
// so Publish can wait for the broker to report the message durable.
func (p *AMQPProducer) ensureChannel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to dial broker: %w", err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareTopology(ch); err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to put channel in confirm mode: %w", err)
	}

	p.ch = ch
	return ch, nil
}

func (p *AMQPProducer) Publish(ctx context.Context, queue string, body []byte) error {
	ch, err := p.ensureChannel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.PublishTimeout)
	defer cancel()

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		"",    // default exchange routes by queue name
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish confirm for %s: %w", queue, err)
	}
	if !acked {
		return fmt.Errorf("broker rejected publish to %s", queue)
	}
	return nil
}

func (p *AMQPProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.ch != nil {
		err = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if closeErr := p.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		p.conn = nil
	}
	return err
}

type AMQPConsumer struct {
	cfg         config.AMQPConfig
	logger      logger.Logger
	serviceName string

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewAMQPConsumer(cfg config.AMQPConfig, log logger.Logger) *AMQPConsumer {
	return &AMQPConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: "unknown",
	}
}

func (c *AMQPConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *AMQPConsumer) Consume(ctx context.Context, queue string, handler HandlerFunc) error {
	consumeCtx := logging.WithServiceName(ctx, c.serviceName)
	policy := reconnectPolicy(c.cfg)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, closed, err := c.connect(ctx, queue)
		if err != nil {
			// connect already retried with backoff; a hard error here means
			// the context was canceled mid-dial.
			return err
		}

		c.logger.InfowCtx(consumeCtx, "Started consuming",
			"queue", queue,
			"prefetch", c.prefetch(),
		)

		if err := c.consumeLoop(ctx, queue, deliveries, closed, handler); err != nil {
			return err
		}

		// Connection dropped; back off before redialing so a flapping broker
		// does not spin the loop.
		metrics.BrokerReconnectsTotal.Inc()
		c.logger.WarnwCtx(consumeCtx, "Broker connection lost, reconnecting",
			"queue", queue,
		)
		select {
		case <-time.After(policy.InitialInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *AMQPConsumer) prefetch() int {
	if c.cfg.Prefetch > 0 {
		return c.cfg.Prefetch
	}
	return constants.DefaultPrefetch
}

// connect dials the broker with exponential backoff and opens a consuming
// channel for queue. It returns the delivery stream plus a channel signaled
// when the connection dies.
func (c *AMQPConsumer) connect(ctx context.Context, queue string) (<-chan amqp.Delivery, chan *amqp.Error, error) {
	connectCtx := logging.WithServiceName(ctx, c.serviceName)

	var deliveries <-chan amqp.Delivery
	var closed chan *amqp.Error

	err := retry.Forever(ctx, reconnectPolicy(c.cfg), func() error {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			return fmt.Errorf("failed to dial broker: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to open channel: %w", err)
		}
		if err := declareTopology(ch); err != nil {
			conn.Close()
			return err
		}
		if err := ch.Qos(c.prefetch(), 0, false); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set prefetch: %w", err)
		}

		d, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to start consuming %s: %w", queue, err)
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		deliveries = d
		closed = conn.NotifyClose(make(chan *amqp.Error, 1))
		return nil
	}, func(err error, next time.Duration) {
		metrics.BrokerReconnectsTotal.Inc()
		c.logger.WarnwCtx(connectCtx, "Broker connect failed, retrying",
			"error", err,
			"next_delay", next,
			"queue", queue,
		)
	})
	if err != nil {
		return nil, nil, err
	}
	return deliveries, closed, nil
}

// consumeLoop processes deliveries sequentially until the stream ends (nil
// return, caller reconnects) or ctx is canceled (error return).
func (c *AMQPConsumer) consumeLoop(ctx context.Context, queue string, deliveries <-chan amqp.Delivery, closed chan *amqp.Error, handler HandlerFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-closed:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, queue, d, handler)
		}
	}
}

func (c *AMQPConsumer) handleDelivery(ctx context.Context, queue string, d amqp.Delivery, handler HandlerFunc) {
	msgCtx := logging.WithServiceName(ctx, c.serviceName)
	if d.MessageId != "" {
		msgCtx = logging.WithMessageID(msgCtx, d.MessageId)
	}

	if d.Redelivered {
		metrics.BrokerRedeliveriesTotal.WithLabelValues(queue).Inc()
	}

	err := c.invoke(msgCtx, Delivery{
		Queue:       queue,
		Body:        d.Body,
		MessageID:   d.MessageId,
		Redelivered: d.Redelivered,
	}, handler)

	c.settle(msgCtx, queue, d, err)
}

func (c *AMQPConsumer) invoke(ctx context.Context, d Delivery, handler HandlerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = retry.RecoverPanic(r)
			c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
				"error", err,
				"queue", d.Queue,
			)
		}
	}()
	return handler(ctx, d)
}

func (c *AMQPConsumer) settle(ctx context.Context, queue string, d amqp.Delivery, err error) {
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.ErrorwCtx(ctx, "Failed to ack message",
				"error", ackErr,
				"queue", queue,
			)
		}
	case retry.IsFatal(err):
		metrics.BrokerDeadLetteredTotal.WithLabelValues(queue).Inc()
		c.logger.WarnwCtx(ctx, "Dead-lettering message",
			"error", err,
			"queue", queue,
		)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.ErrorwCtx(ctx, "Failed to nack message",
				"error", nackErr,
				"queue", queue,
			)
		}
	default:
		c.logger.WarnwCtx(ctx, "Requeueing message",
			"error", err,
			"queue", queue,
		)
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.ErrorwCtx(ctx, "Failed to nack message",
				"error", nackErr,
				"queue", queue,
			)
		}
	}
}

func (c *AMQPConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// Connected reports whether the consumer currently holds a live broker
// connection. Used by the health endpoint.
func (c *AMQPConsumer) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}
