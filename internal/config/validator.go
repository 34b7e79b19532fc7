package config

import (
	"fmt"
)

func Validate(cfg *Config) error {
	if cfg.Broker.Type != "amqp" {
		return fmt.Errorf("unsupported broker type: %q", cfg.Broker.Type)
	}
	if cfg.Broker.AMQP.URL == "" {
		return fmt.Errorf("broker.amqp.url is required")
	}
	if cfg.Broker.AMQP.Prefetch < 0 {
		return fmt.Errorf("broker.amqp.prefetch must not be negative")
	}

	if cfg.Stats.PeriodSeconds <= 0 {
		return fmt.Errorf("stats.period_seconds must be positive")
	}
	if cfg.Stats.RetentionSeconds < cfg.Stats.PeriodSeconds {
		return fmt.Errorf("stats.retention_seconds must be at least stats.period_seconds")
	}

	if cfg.Web.AnnounceGraceSeconds <= 0 {
		return fmt.Errorf("web.announce_grace_seconds must be positive")
	}

	if cfg.SMS.RatePerSecond < 0 || cfg.Email.RatePerSecond < 0 {
		return fmt.Errorf("rate_per_second must not be negative")
	}

	return nil
}
