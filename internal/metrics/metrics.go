// Package metrics defines the Prometheus collectors used across the query pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "musemuse"

var (
	// RulesFired counts extraction rules that matched, by rule name.
	RulesFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "extract",
		Name:      "rules_fired_total",
		Help:      "Total extraction rules fired by rule name",
	}, []string{"rule"})

	// StageDuration observes time spent in each pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage latency",
		Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"stage"})

	// StoreQueryDuration observes store round trips by action.
	StoreQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "query_duration_seconds",
		Help:      "Listening store query latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// QueriesTotal counts answered questions by action and outcome (ok, empty, error).
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "queries_total",
		Help:      "Total questions answered by action and outcome",
	}, []string{"action", "outcome"})

	// EventLookups counts context resolution attempts by result (resolved, unresolved, error, skipped).
	EventLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolve",
		Name:      "event_lookups_total",
		Help:      "Total life event lookups by result",
	}, []string{"result"})

	// PlaceholderRowsDropped counts ranked rows removed because they named a placeholder entity.
	PlaceholderRowsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "format",
		Name:      "placeholder_rows_dropped_total",
		Help:      "Ranked rows dropped for placeholder names",
	})

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	// CircuitBreakerTransitions counts breaker state changes.
	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "breaker",
		Name:      "transitions_total",
		Help:      "Circuit breaker state transitions",
	}, []string{"name", "from", "to"})

	// HTTPRequests counts handled HTTP requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"route", "status"})
)
