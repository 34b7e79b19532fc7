package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bullhorn/internal/broker"
	"bullhorn/internal/config"
	"bullhorn/internal/constants"
	"bullhorn/internal/drain"
	"bullhorn/internal/logger"
	"bullhorn/internal/session"
	"bullhorn/internal/stats"
	"bullhorn/pkg/bootstrap"
	"bullhorn/pkg/health"
	"bullhorn/pkg/metrics"
	"bullhorn/pkg/middleware"
)

type App struct {
	*bootstrap.Base
	collector *stats.Collector
	registry  *session.Registry
	handler   broker.HandlerFunc
	server    *http.Server
	gateway   *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("drain-web")
	}
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitBroker("drain-web"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	a.collector = stats.NewCollector(
		time.Duration(a.Config.Stats.PeriodSeconds)*time.Second,
		time.Duration(a.Config.Stats.RetentionSeconds)*time.Second,
	)
	a.registry = session.NewRegistry(a.Logger)

	d := drain.NewWeb(a.registry, a.collector, a.Logger)
	a.handler = drain.NewHandler(d, true, a.Logger)

	metrics.RegisterDrainMetrics()
	metrics.RegisterWebSessionMetrics()
	metrics.RegisterBrokerMetrics()

	a.initHTTPServer()
	a.initGateway()
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

// initGateway wires the client-facing session endpoints on their own port so
// the operational surface (health, metrics) stays private.
func (a *App) initGateway() {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(a.Logger),
		middleware.RecoveryMiddleware(a.Logger),
	)

	grace := time.Duration(a.Config.Web.AnnounceGraceSeconds) * time.Second
	gateway := session.NewGateway(a.registry, grace, a.Config.Web.SendBuffer, a.Logger)
	gateway.Register(engine)

	a.gateway = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Web.Port),
		Handler: engine,
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
		a.Logger.InfowCtx(ctx, "Session gateway starting", "port", a.Config.Web.Port)
		if err := a.gateway.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("session gateway error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		gatewayErr := a.gateway.Shutdown(shutdownCtx)
		serverErr := a.server.Shutdown(shutdownCtx)
		if gatewayErr != nil {
			return gatewayErr
		}
		return serverErr
	})

	g.Go(func() error {
		return a.Consumer.Consume(gCtx, constants.QueueWeb, a.handler)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, nil)
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
