// Package pigeon is the dispatcher: it consumes inbound notification events,
// resolves each recipient's delivery preferences, and fans the event out to
// the per-channel queues.
package pigeon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bullhorn/internal/broker"
	"bullhorn/internal/event"
	"bullhorn/internal/logger"
	"bullhorn/internal/plumber"
	"bullhorn/internal/profile"
	"bullhorn/internal/stats"
	"bullhorn/pkg/logging"
	"bullhorn/pkg/metrics"
	"bullhorn/pkg/retry"
)

type Service struct {
	profiles profile.Store
	resolver *plumber.Resolver
	producer broker.Producer
	stats    *stats.Collector
	logger   logger.Logger
}

func NewService(profiles profile.Store, resolver *plumber.Resolver, producer broker.Producer, collector *stats.Collector, log logger.Logger) *Service {
	return &Service{
		profiles: profiles,
		resolver: resolver,
		producer: producer,
		stats:    collector,
		logger:   log,
	}
}

// Handle processes one inbound notification event. The delivery stays with
// the broker until Handle returns: nil acks it, a fatal error dead-letters
// it, any other error requeues it. Fan-out is at-least-once; when one of
// several channel publishes fails the whole event is requeued and channels
// that already published will see a duplicate.
func (s *Service) Handle(ctx context.Context, d broker.Delivery) error {
	start := time.Now()

	var ev event.Notification
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		metrics.DispatcherMessagesTotal.WithLabelValues("malformed").Inc()
		s.stats.Record(countDatum("malformed"))
		s.logger.WarnwCtx(ctx, "Dropping unparseable notification event",
			"error", err,
		)
		return retry.NewFatalError(fmt.Errorf("malformed notification event: %w", err))
	}
	if err := ev.Validate(); err != nil {
		metrics.DispatcherMessagesTotal.WithLabelValues("malformed").Inc()
		s.stats.Record(countDatum("malformed"))
		s.logger.WarnwCtx(ctx, "Dropping invalid notification event",
			"error", err,
			"message_id", ev.ID,
		)
		return retry.NewFatalError(err)
	}

	ctx = logging.WithMessageID(ctx, ev.ID)
	ctx = logging.WithRecipient(ctx, ev.Recipient)

	p, err := s.profiles.FindByID(ctx, ev.Recipient)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			metrics.DispatcherMessagesTotal.WithLabelValues("unknown_recipient").Inc()
			s.stats.Record(countDatum("unknown_recipient"))
			s.logger.WarnwCtx(ctx, "Recipient has no profile")
			return retry.NewFatalError(err)
		}
		s.logger.ErrorwCtx(ctx, "Profile lookup failed",
			"error", err,
		)
		return fmt.Errorf("profile lookup: %w", err)
	}

	targets := s.resolver.Resolve(p, ev)
	if len(targets) == 0 {
		metrics.DispatcherMessagesTotal.WithLabelValues("undeliverable").Inc()
		s.stats.Record(countDatum("undeliverable"))
		s.logger.InfowCtx(ctx, "No delivery rule matched, dropping event",
			"domain", ev.Domain,
		)
		return nil
	}

	for _, target := range targets {
		if err := s.publish(ctx, target, ev); err != nil {
			s.logger.ErrorwCtx(ctx, "Channel publish failed, requeueing event",
				"error", err,
				"channel", target.Type,
			)
			return fmt.Errorf("publish to %s: %w", target.Type.Queue(), err)
		}
		metrics.DispatcherFanoutTotal.WithLabelValues(string(target.Type)).Inc()
	}

	metrics.DispatcherMessagesTotal.WithLabelValues("dispatched").Inc()
	metrics.ObserveDispatchDuration(time.Since(start))
	s.stats.Record(
		countDatum("dispatched"),
		stats.Datum{Kind: stats.Midpoint, Buckets: map[string]float64{
			"dispatch_ms": float64(time.Since(start).Milliseconds()),
		}},
	)
	s.logger.InfowCtx(ctx, "Notification dispatched",
		"channels", len(targets),
	)
	return nil
}

func (s *Service) publish(ctx context.Context, target plumber.Target, ev event.Notification) error {
	msg := event.ChannelMessage{
		To:   target.Addr,
		Body: ev.Msg,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode channel message: %w", err)
	}
	return s.producer.Publish(ctx, target.Type.Queue(), body)
}

func countDatum(bucket string) stats.Datum {
	return stats.Datum{Kind: stats.Count, Buckets: map[string]float64{
		"processed": 1,
		bucket:      1,
	}}
}
