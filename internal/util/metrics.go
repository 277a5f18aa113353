package util

import (
	"errors"

	"litewms/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commits_total",
		Help: "Total number of committed ledger transactions",
	}, []string{"type"})

	CommitsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commits_failed_total",
		Help: "Total number of failed ledger commits",
	}, []string{"type", "reason"})

	RevertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_reverts_total",
		Help: "Total number of reverted transactions",
	})

	RevertsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_reverts_failed_total",
		Help: "Total number of failed reverts",
	}, []string{"reason"})

	InsufficientStockTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_insufficient_stock_total",
		Help: "Total number of mutations rejected for insufficient stock",
	})

	LedgerCommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_commit_latency_seconds",
		Help:    "Latency of ledger commit operations",
		Buckets: prometheus.DefBuckets,
	})

	LedgerRevertLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_revert_latency_seconds",
		Help:    "Latency of ledger revert operations",
		Buckets: prometheus.DefBuckets,
	})

	ItemsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_items_created_total",
		Help: "Total number of SKUs created",
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_events_published_total",
		Help: "Total number of stock events published to the audit stream",
	}, []string{"type"})

	CacheSyncTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_cache_syncs_total",
		Help: "Total number of quantity cache refreshes",
	})

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

// FailureReason maps a ledger error to a low-cardinality metric label
func FailureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, models.ErrInvalidRevert):
		return "invalid_revert"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrAttributeMismatch):
		return "attribute_mismatch"
	default:
		return "storage"
	}
}
