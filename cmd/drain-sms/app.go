package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"bullhorn/internal/broker"
	"bullhorn/internal/config"
	"bullhorn/internal/constants"
	"bullhorn/internal/drain"
	"bullhorn/internal/logger"
	"bullhorn/internal/stats"
	"bullhorn/internal/transport"
	"bullhorn/pkg/bootstrap"
	"bullhorn/pkg/circuitbreaker"
	"bullhorn/pkg/health"
	"bullhorn/pkg/metrics"
)

type App struct {
	*bootstrap.Base
	collector *stats.Collector
	handler   broker.HandlerFunc
	server    *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("drain-sms")
	}
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if a.Config.SMS.AccountSID == "" || a.Config.SMS.AuthToken == "" {
		return fmt.Errorf("sms provider credentials are required")
	}

	if err := a.InitBroker("drain-sms"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	a.collector = stats.NewCollector(
		time.Duration(a.Config.Stats.PeriodSeconds)*time.Second,
		time.Duration(a.Config.Stats.RetentionSeconds)*time.Second,
	)

	var client transport.SMSClient = transport.NewTwilioSMS(
		a.Config.SMS.AccountSID,
		a.Config.SMS.AuthToken,
	)
	if a.Config.CircuitBreaker.Enabled {
		client = transport.NewBreakerSMS(client, newBreaker("sms-provider", a.Config.CircuitBreaker))
		metrics.RegisterCircuitBreakerMetrics()
	}

	d := drain.NewSMS(client, drain.SMSOptions{
		From:          a.Config.SMS.From,
		Timeout:       providerTimeout(a.Config.SMS.TimeoutSeconds),
		RatePerSecond: a.Config.SMS.RatePerSecond,
		Burst:         a.Config.SMS.Burst,
	}, a.collector, a.Logger)
	a.handler = drain.NewHandler(d, false, a.Logger)

	metrics.RegisterDrainMetrics()
	metrics.RegisterBrokerMetrics()

	a.initHTTPServer()
	return nil
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	registerBrokerChecker(healthRegistry, a.Consumer)

	mux.HandleFunc("/health", healthHandler(healthRegistry))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/stats", statsHandler(a.collector))

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return a.Consumer.Consume(gCtx, constants.QueueSMS, a.handler)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, nil)
}

func newBreaker(name string, cfg config.CircuitBreakerConfig) *circuitbreaker.Wrapper {
	breakerCfg := circuitbreaker.DefaultConfig(name)
	if cfg.MaxRequests > 0 {
		breakerCfg.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		breakerCfg.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		breakerCfg.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		breakerCfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
		}
	}
	return circuitbreaker.NewWrapper(breakerCfg)
}

func providerTimeout(seconds int) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return constants.DefaultProviderTimeout
}

func registerBrokerChecker(registry *health.CheckerRegistry, consumer broker.Consumer) {
	amqpConsumer, ok := consumer.(*broker.AMQPConsumer)
	if !ok {
		return
	}
	registry.Register(health.NewFuncChecker("broker", func(ctx context.Context) error {
		if !amqpConsumer.Connected() {
			return fmt.Errorf("no live broker connection")
		}
		return nil
	}))
}

func healthHandler(registry *health.CheckerRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := registry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	}
}

func statsHandler(collector *stats.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window := time.Minute
		if raw := r.URL.Query().Get("window_seconds"); raw != "" {
			var seconds int
			if _, err := fmt.Sscanf(raw, "%d", &seconds); err != nil || seconds <= 0 {
				http.Error(w, "window_seconds must be a positive integer", http.StatusBadRequest)
				return
			}
			window = time.Duration(seconds) * time.Second
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"window_seconds": int(window.Seconds()),
			"buckets":        collector.Summarize(window),
		})
	}
}
