// Package drain implements the channel senders. A drain consumes one channel
// message, performs the delivery, and reports the outcome; it never decides
// broker settlement itself — that policy lives in the consumer handler so
// best-effort channels (web) and retried channels (sms, email) can share
// drain code.
package drain

import (
	"context"
	"time"

	"bullhorn/internal/event"
	"bullhorn/internal/stats"
	"bullhorn/pkg/metrics"
)

// Outcome reports one delivery attempt. Permanent marks failures that no
// amount of redelivery can fix (invalid address); the consumer dead-letters
// those instead of requeueing.
type Outcome struct {
	Success   bool
	Permanent bool
	Duration  time.Duration
}

type Drain interface {
	Name() string
	// Pour delivers msg. It must not panic on provider failure; failures are
	// reported through the returned Outcome.
	Pour(ctx context.Context, msg event.ChannelMessage) Outcome
}

// recordOutcome writes the drain's windowed stats and the operational
// counters for one attempt.
func recordOutcome(c *stats.Collector, name string, o Outcome) {
	success, failure := 0.0, 1.0
	status := "failure"
	if o.Success {
		success, failure = 1.0, 0.0
		status = "success"
	}

	counts := map[string]float64{
		"processed": 1,
		"success":   success,
		"failure":   failure,
	}
	if o.Permanent {
		counts["permanent_failure"] = 1
		status = "permanent_failure"
	}

	c.Record(
		stats.Datum{Kind: stats.Count, Buckets: counts},
		stats.Datum{Kind: stats.Midpoint, Buckets: map[string]float64{
			"duration_ms": float64(o.Duration.Milliseconds()),
		}},
	)

	metrics.DrainDeliveriesTotal.WithLabelValues(name, status).Inc()
	metrics.ObserveDeliveryDuration(name, o.Duration)
}
