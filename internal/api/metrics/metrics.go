// Package metrics defines and registers all custom Prometheus metrics for
// the fieldsync agent. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fieldsync"

// ── Queue metrics ─────────────────────────────────────────────────────────────

// OperationsEnqueuedTotal counts operations written to the offline queue.
// Label:
//   - kind: "order" or "product"
var OperationsEnqueuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_enqueued_total",
		Help:      "Total number of operations queued for offline replay.",
	},
	[]string{"kind"},
)

// QueuePendingOperations tracks the current number of pending operations.
var QueuePendingOperations = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_pending_operations",
		Help:      "Current number of operations waiting to be replayed.",
	},
)

// ── Sync metrics ──────────────────────────────────────────────────────────────

// OperationsSyncedTotal counts operations successfully replayed.
// Label:
//   - kind: "order" or "product"
var OperationsSyncedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_synced_total",
		Help:      "Total number of queued operations successfully replayed.",
	},
	[]string{"kind"},
)

// OperationsFailedTotal counts per-item replay failures (the record stays pending).
// Label:
//   - kind: "order" or "product"
var OperationsFailedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_failed_total",
		Help:      "Total number of replay attempts that left the record pending.",
	},
	[]string{"kind"},
)

// SyncPassDuration measures one full drain of the pending queue.
var SyncPassDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_pass_duration_seconds",
		Help:      "Duration of a complete sync pass over the pending snapshot.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Gateway metrics ───────────────────────────────────────────────────────────

// GatewayRequestsTotal counts gateway calls by outcome.
// Label:
//   - outcome: "ok", "http_error", "network_error"
var GatewayRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Total number of gateway requests, by outcome.",
	},
	[]string{"outcome"},
)

// GatewayRefreshTotal counts token refresh attempts.
// Label:
//   - result: "ok" or "failed"
var GatewayRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_refresh_total",
		Help:      "Total number of token refresh attempts, by result.",
	},
	[]string{"result"},
)

// ── Edge cache metrics ────────────────────────────────────────────────────────

// EdgeRequestsTotal counts intercepted requests by class and outcome.
// Labels:
//   - class: "static", "api_get", "api_mutation"
//   - outcome: "network", "cache", "offline_fallback", "synthetic"
var EdgeRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "edge_requests_total",
		Help:      "Total number of requests handled by the edge cache, by class and outcome.",
	},
	[]string{"class", "outcome"},
)
