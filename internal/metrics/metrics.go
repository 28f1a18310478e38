package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logstore_operations_total",
		Help: "Repository operations by serving backend and outcome",
	}, []string{"operation", "backend", "outcome"})

	StoreFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logstore_fallbacks_total",
		Help: "Operations re-routed to the in-memory store",
	}, []string{"operation", "reason"})

	StoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "logstore_operation_duration_seconds",
		Help:    "Duration of durable backend operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	StoreState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "logstore_backend_state",
		Help: "Durable adapter state (0=initializing, 1=ready, 2=degraded, 3=closed)",
	})

	RetentionDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logstore_retention_deleted_total",
		Help: "Records removed by the retention processor",
	}, []string{"rule"})

	AdminUnlockAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logstore_admin_unlock_attempts_total",
		Help: "Admin unlock attempts by result",
	}, []string{"result"})
)
