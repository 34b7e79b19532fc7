package drain

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bullhorn/internal/event"
	"bullhorn/internal/logger"
	"bullhorn/internal/stats"
	"bullhorn/internal/transport"
)

type SMS struct {
	client  transport.SMSClient
	from    string
	timeout time.Duration
	limiter *rate.Limiter
	stats   *stats.Collector
	logger  logger.Logger
}

type SMSOptions struct {
	From    string
	Timeout time.Duration
	// RatePerSecond caps outbound provider calls; zero means unlimited.
	RatePerSecond float64
	Burst         int
}

func NewSMS(client transport.SMSClient, opts SMSOptions, collector *stats.Collector, log logger.Logger) *SMS {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SMS{
		client:  client,
		from:    opts.From,
		timeout: timeout,
		limiter: limiter,
		stats:   collector,
		logger:  log,
	}
}

func (d *SMS) Name() string {
	return string(event.ChannelSMS)
}

func (d *SMS) Pour(ctx context.Context, msg event.ChannelMessage) Outcome {
	start := time.Now()

	if !validPhoneNumber(msg.To) {
		outcome := Outcome{Permanent: true, Duration: time.Since(start)}
		recordOutcome(d.stats, d.Name(), outcome)
		d.logger.WarnwCtx(ctx, "Refusing sms to invalid address",
			"to", msg.To,
		)
		return outcome
	}

	if err := d.limiter.Wait(ctx); err != nil {
		outcome := Outcome{Duration: time.Since(start)}
		recordOutcome(d.stats, d.Name(), outcome)
		return outcome
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.client.Send(sendCtx, msg.To, d.from, msg.Body)
	outcome := Outcome{
		Success:   err == nil,
		Permanent: transport.IsPermanent(err),
		Duration:  time.Since(start),
	}
	recordOutcome(d.stats, d.Name(), outcome)

	if err != nil {
		d.logger.WarnwCtx(ctx, "Failed to send sms",
			"error", err,
			"permanent", outcome.Permanent,
		)
	} else {
		d.logger.InfowCtx(ctx, "Sms delivered",
			"duration_ms", outcome.Duration.Milliseconds(),
		)
	}
	return outcome
}

// validPhoneNumber is a shallow E.164 shape check. The provider performs the
// real validation; this only catches addresses that could never be numbers
// so they dead-letter without burning a provider call.
func validPhoneNumber(to string) bool {
	if len(to) < 4 || !strings.HasPrefix(to, "+") {
		return false
	}
	for _, r := range to[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
