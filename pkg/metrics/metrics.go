package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DispatcherMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pigeon_messages_total",
			Help: "Total number of inbound notification events by terminal outcome (count)",
		},
		[]string{"outcome"},
	)

	DispatcherFanoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pigeon_fanout_total",
			Help: "Total number of channel messages published per channel (count)",
		},
		[]string{"channel"},
	)

	DispatcherDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pigeon_dispatch_duration_ms",
			Help:    "End-to-end dispatch duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
	)

	DrainDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drain_deliveries_total",
			Help: "Total number of channel deliveries attempted per drain (count)",
		},
		[]string{"drain", "status"},
	)

	DrainDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drain_delivery_duration_ms",
			Help:    "Provider delivery duration in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"drain"},
	)

	WebSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "web_sessions_active",
			Help: "Number of live interactive sessions currently registered (count)",
		},
	)

	BrokerReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_reconnects_total",
			Help: "Total number of broker reconnect attempts (count)",
		},
	)

	BrokerRedeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_redeliveries_total",
			Help: "Total number of redelivered messages seen per queue (count)",
		},
		[]string{"queue"},
	)

	BrokerDeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_dead_lettered_total",
			Help: "Total number of messages rejected without requeue per queue (count)",
		},
		[]string{"queue"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures recorded by circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterDispatcherMetrics() {
	prometheus.MustRegister(DispatcherMessagesTotal)
	prometheus.MustRegister(DispatcherFanoutTotal)
	prometheus.MustRegister(DispatcherDuration)
}

func RegisterDrainMetrics() {
	prometheus.MustRegister(DrainDeliveriesTotal)
	prometheus.MustRegister(DrainDeliveryDuration)
}

func RegisterWebSessionMetrics() {
	prometheus.MustRegister(WebSessionsActive)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(BrokerReconnectsTotal)
	prometheus.MustRegister(BrokerRedeliveriesTotal)
	prometheus.MustRegister(BrokerDeadLetteredTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func ObserveDispatchDuration(d time.Duration) {
	DispatcherDuration.Observe(float64(d.Milliseconds()))
}

func ObserveDeliveryDuration(drain string, d time.Duration) {
	DrainDeliveryDuration.WithLabelValues(drain).Observe(float64(d.Milliseconds()))
}
