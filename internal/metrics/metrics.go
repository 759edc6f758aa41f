package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatterledger_payments_ingested_total",
		Help: "Total number of payments appended to the ledger, labelled by source.",
	}, []string{"source"})

	PaymentsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatterledger_payments_rejected_total",
		Help: "Total number of payments rejected before any write, labelled by reason.",
	}, []string{"reason"})

	PaymentsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatterledger_payments_deleted_total",
		Help: "Total number of payments removed as admin corrections.",
	})

	ClientResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatterledger_client_resolutions_total",
		Help: "Client resolutions during ingestion, labelled by outcome (explicit, email, phone, created, cache).",
	}, []string{"outcome"})

	AnalyticsDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatterledger_analytics_duration_ms",
		Help:    "Analytics query latency in milliseconds, labelled by operation.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"operation"})

	PaymentsScanned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatterledger_analytics_payments_scanned",
		Help:    "Number of payment facts folded per analytics operation.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"operation"})

	StoreCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatterledger_store_circuit_state",
		Help: "Ledger store circuit breaker state (0 closed, 1 half-open, 2 open).",
	})

	TeamSettingsReloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatterledger_team_settings_reloads_total",
		Help: "Total number of successful team settings hot reloads.",
	})

	HTTPRequestsThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatterledger_http_requests_throttled_total",
		Help: "Total number of HTTP requests rejected by the rate limiter.",
	})
)
