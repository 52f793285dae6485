package progress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursecast",
			Name:      "completion_writes_total",
			Help:      "Durable completion write outcomes.",
		},
		[]string{"result"},
	)

	optimisticAppliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coursecast",
			Name:      "completion_optimistic_applies_total",
			Help:      "Completions applied locally after a failed remote write.",
		},
	)

	pendingRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursecast",
			Name:      "completion_pending_retries_total",
			Help:      "Journaled completion write retry outcomes.",
		},
		[]string{"result"},
	)

	reconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursecast",
			Name:      "completion_reconcile_runs_total",
			Help:      "Reconciliation pass outcomes.",
		},
		[]string{"result"},
	)
)
