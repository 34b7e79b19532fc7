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

type EmailDrain struct {
	client         transport.EmailClient
	defaultSubject string
	timeout        time.Duration
	limiter        *rate.Limiter
	stats          *stats.Collector
	logger         logger.Logger
}

type EmailOptions struct {
	DefaultSubject string
	Timeout        time.Duration
	RatePerSecond  float64
	Burst          int
}

func NewEmail(client transport.EmailClient, opts EmailOptions, collector *stats.Collector, log logger.Logger) *EmailDrain {
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
	subject := opts.DefaultSubject
	if subject == "" {
		subject = "Notification"
	}
	return &EmailDrain{
		client:         client,
		defaultSubject: subject,
		timeout:        timeout,
		limiter:        limiter,
		stats:          collector,
		logger:         log,
	}
}

func (d *EmailDrain) Name() string {
	return string(event.ChannelEmail)
}

func (d *EmailDrain) Pour(ctx context.Context, msg event.ChannelMessage) Outcome {
	start := time.Now()

	if !strings.Contains(msg.To, "@") {
		outcome := Outcome{Permanent: true, Duration: time.Since(start)}
		recordOutcome(d.stats, d.Name(), outcome)
		d.logger.WarnwCtx(ctx, "Refusing email to invalid address",
			"to", msg.To,
		)
		return outcome
	}

	if err := d.limiter.Wait(ctx); err != nil {
		outcome := Outcome{Duration: time.Since(start)}
		recordOutcome(d.stats, d.Name(), outcome)
		return outcome
	}

	subject := msg.Subject
	if subject == "" {
		subject = d.defaultSubject
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.client.Send(sendCtx, transport.Email{
		To:      msg.To,
		Subject: subject,
		Body:    msg.Body,
	})
	outcome := Outcome{
		Success:   err == nil,
		Permanent: transport.IsPermanent(err),
		Duration:  time.Since(start),
	}
	recordOutcome(d.stats, d.Name(), outcome)

	if err != nil {
		d.logger.WarnwCtx(ctx, "Failed to send email",
			"error", err,
			"permanent", outcome.Permanent,
		)
	} else {
		d.logger.InfowCtx(ctx, "Email delivered",
			"duration_ms", outcome.Duration.Milliseconds(),
		)
	}
	return outcome
}
