// Package observability holds the Prometheus metrics for the settlement
// core. Metrics are package-level and registered once via promauto; the
// /metrics endpoint is mounted by the API server when enabled in config.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Settlement Metrics ─────────────────────────────────────────────────────

var (
	// SettlementsTotal counts completed settlements by mode
	// ("payment" for generic settlements, "payall" for month runs).
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "homeledger",
		Name:      "settlements_total",
		Help:      "Completed settlements by mode.",
	}, []string{"mode"})

	// SettlementFailures counts settlements that surfaced an error to
	// the caller after any retry.
	SettlementFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "homeledger",
		Name:      "settlement_failures_total",
		Help:      "Settlements that failed after retries, by mode.",
	}, []string{"mode"})

	// SettlementRetries counts transactions retried after a
	// concurrency conflict.
	SettlementRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "homeledger",
		Name:      "settlement_retries_total",
		Help:      "Settlement transactions retried after a conflict.",
	})

	// AllocationsTotal counts allocation rows written.
	AllocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "homeledger",
		Name:      "allocations_total",
		Help:      "Payment allocation rows created.",
	})

	// CreditsIssued counts credits generated from payment surpluses.
	CreditsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "homeledger",
		Name:      "credits_issued_total",
		Help:      "Credits issued for unallocated payment surplus.",
	})
)
