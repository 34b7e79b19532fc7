package drain

import (
	"context"
	"encoding/json"
	"fmt"

	"bullhorn/internal/broker"
	"bullhorn/internal/event"
	"bullhorn/internal/logger"
	"bullhorn/pkg/logging"
	"bullhorn/pkg/retry"
)

// NewHandler adapts a drain into a channel queue consumer handler, deciding
// broker settlement from the delivery outcome:
//
//   - unparseable channel message: dead-letter, redelivering the same bytes
//     cannot help;
//   - best-effort drains (web): always ack, whatever the outcome;
//   - permanent failure: dead-letter;
//   - transient failure on a message the broker already redelivered once:
//     dead-letter, so a permanently failing address cannot cycle forever;
//   - transient failure otherwise: requeue.
//
// The dispatcher's fan-out contract is at-least-once, so drains behind this
// handler may see the same channel message more than once.
func NewHandler(d Drain, bestEffort bool, log logger.Logger) broker.HandlerFunc {
	return func(ctx context.Context, delivery broker.Delivery) error {
		var msg event.ChannelMessage
		if err := json.Unmarshal(delivery.Body, &msg); err != nil {
			log.WarnwCtx(ctx, "Channel message could not be parsed",
				"error", err,
				"queue", delivery.Queue,
			)
			return retry.NewFatalError(fmt.Errorf("malformed channel message: %w", err))
		}
		if err := msg.Validate(); err != nil {
			log.WarnwCtx(ctx, "Channel message failed validation",
				"error", err,
				"queue", delivery.Queue,
			)
			return retry.NewFatalError(err)
		}

		ctx = logging.WithRecipient(ctx, msg.To)
		ctx = logging.WithChannel(ctx, d.Name())

		outcome := d.Pour(ctx, msg)

		if bestEffort || outcome.Success {
			return nil
		}
		if outcome.Permanent {
			return retry.NewFatalError(fmt.Errorf("%s delivery permanently failed", d.Name()))
		}
		if delivery.Redelivered {
			return retry.NewFatalError(fmt.Errorf("%s delivery failed after redelivery", d.Name()))
		}
		return fmt.Errorf("%s delivery failed", d.Name())
	}
}
