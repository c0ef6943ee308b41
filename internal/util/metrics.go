package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconciliationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_runs_total",
		Help: "Total number of reconciliation runs",
	}, []string{"status"})

	ReconciliationRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconciliation_run_duration_seconds",
		Help:    "Duration of full reconciliation runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	ItemsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_items_processed_total",
		Help: "Total number of items processed, by outcome",
	}, []string{"outcome"})

	PriceChangesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_changes_applied_total",
		Help: "Total number of price changes applied to the marketplace",
	})

	GatewayCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_gateway_calls_total",
		Help: "Total number of marketplace calls, by operation and status",
	}, []string{"operation", "status"})

	GatewayCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketplace_gateway_call_latency_seconds",
		Help:    "Latency of marketplace calls including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	GatewayRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_gateway_retries_total",
		Help: "Total number of rate-limit retries performed by the gateway",
	})

	GatewayDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_gateway_dropped_calls_total",
		Help: "Total number of calls dropped from the full pending queue",
	})

	GatewaySyntheticTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_gateway_synthetic_fallbacks_total",
		Help: "Total number of synthetic competitor price sets served",
	})

	CompetitorCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "competitor_cache_hits_total",
		Help: "Total number of competitor price cache hits",
	})

	CompetitorCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "competitor_cache_misses_total",
		Help: "Total number of competitor price cache misses",
	})

	LedgerRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_ledger_records_total",
		Help: "Total number of ledger records written, by status",
	}, []string{"status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
