package drain

import (
	"context"
	"time"

	"bullhorn/internal/event"
	"bullhorn/internal/logger"
	"bullhorn/internal/session"
	"bullhorn/internal/stats"
	"bullhorn/pkg/metrics"
)

// Web pushes notifications to a recipient's live interactive sessions. The
// address of a web channel message is a recipient id, not a transport
// address. Delivery is best-effort: a recipient with no live sessions yields
// a failed outcome, but the web channel consumer never requeues — a client
// that reconnects hours later should not receive a flood of stale pushes.
type Web struct {
	sessions *session.Registry
	stats    *stats.Collector
	logger   logger.Logger
}

func NewWeb(sessions *session.Registry, collector *stats.Collector, log logger.Logger) *Web {
	return &Web{
		sessions: sessions,
		stats:    collector,
		logger:   log,
	}
}

func (d *Web) Name() string {
	return string(event.ChannelWeb)
}

type webPayload struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

func (d *Web) Pour(ctx context.Context, msg event.ChannelMessage) Outcome {
	start := time.Now()

	conns := d.sessions.Connections(msg.To)
	if len(conns) == 0 {
		outcome := Outcome{Duration: time.Since(start)}
		d.recordOffline(outcome)
		d.logger.DebugwCtx(ctx, "Recipient has no live sessions",
			"recipient", msg.To,
		)
		return outcome
	}

	payload := webPayload{Subject: msg.Subject, Body: msg.Body}
	delivered := 0
	for _, conn := range conns {
		if err := conn.Send("notification", payload); err != nil {
			d.logger.WarnwCtx(ctx, "Failed to push to session",
				"error", err,
				"recipient", msg.To,
			)
			continue
		}
		delivered++
	}

	outcome := Outcome{
		Success:  delivered > 0,
		Duration: time.Since(start),
	}
	recordOutcome(d.stats, d.Name(), outcome)
	d.logger.InfowCtx(ctx, "Web notification pushed",
		"recipient", msg.To,
		"sessions", len(conns),
		"delivered", delivered,
	)
	return outcome
}

// recordOffline keeps offline recipients in the failure totals while also
// tracking them in their own bucket: an offline recipient is a routine
// outcome, not a provider problem.
func (d *Web) recordOffline(o Outcome) {
	d.stats.Record(
		stats.Datum{Kind: stats.Count, Buckets: map[string]float64{
			"processed": 1,
			"success":   0,
			"failure":   1,
			"offline":   1,
		}},
		stats.Datum{Kind: stats.Midpoint, Buckets: map[string]float64{
			"duration_ms": float64(o.Duration.Milliseconds()),
		}},
	)
	metrics.DrainDeliveriesTotal.WithLabelValues(d.Name(), "offline").Inc()
	metrics.ObserveDeliveryDuration(d.Name(), o.Duration)
}
