package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"bullhorn/internal/broker"
	"bullhorn/internal/config"
	"bullhorn/internal/constants"
	"bullhorn/internal/logger"
	"bullhorn/internal/pigeon"
	"bullhorn/internal/plumber"
	"bullhorn/internal/profile"
	"bullhorn/internal/stats"
	"bullhorn/pkg/bootstrap"
	"bullhorn/pkg/health"
	"bullhorn/pkg/metrics"
)

type App struct {
	*bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector
	redis       *redis.Client
	mongoClient *mongo.Client
	collector   *stats.Collector
	service     *pigeon.Service
	server      *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("pigeon")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	if mongoClient == nil {
		return fmt.Errorf("mongodb uri is required, the dispatcher cannot resolve profiles without it")
	}
	a.mongoClient = mongoClient

	if a.Config.Pigeon.ProfileCache {
		rdb, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		a.redis = rdb
	}

	if err := a.InitBroker("pigeon"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	a.collector = stats.NewCollector(
		time.Duration(a.Config.Stats.PeriodSeconds)*time.Second,
		time.Duration(a.Config.Stats.RetentionSeconds)*time.Second,
	)

	var store profile.Store = profile.NewMongoStore(
		a.mongoClient,
		a.Config.Database.MongoDB.Database,
		a.Config.Database.MongoDB.Collection,
	)
	if a.redis != nil {
		ttl := time.Duration(a.Config.Database.Redis.TTLSeconds) * time.Second
		store = profile.NewCachedStore(store, a.redis, ttl, a.Logger)
	}

	a.service = pigeon.NewService(
		store,
		plumber.NewResolver(a.Logger),
		a.Producer,
		a.collector,
		a.Logger,
	)

	metrics.RegisterDispatcherMetrics()
	metrics.RegisterBrokerMetrics()

	a.initHTTPServer()
	return nil
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	if a.redis != nil {
		// The profile cache is best-effort; losing it degrades, not fails.
		healthRegistry.RegisterOptional(health.NewRedisChecker(a.redis))
	}
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
		return a.Consumer.Consume(gCtx, constants.QueueNotifications, a.service.Handle)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	additionalShutdown := func(ctx context.Context) []error {
		return a.dbConnector.ShutdownDatabases(ctx, a.redis, a.mongoClient)
	}
	return a.Base.Shutdown(ctx, additionalShutdown)
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

// statsHandler exposes the rolling delivery statistics. The window defaults
// to the last minute; callers can widen it up to the collector's retention
// with ?window_seconds=.
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
