package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// EntitiesSynced counts mirror upserts per sync pass.
	EntitiesSynced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adwarden_entities_synced_total",
		Help: "Entities upserted into the mirror, labeled by sync pass.",
	}, []string{"pass"})

	// SyncFailures counts per-entity persistence failures that the pass
	// tolerated and continued past.
	SyncFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adwarden_sync_failures_total",
		Help: "Per-entity persistence failures, labeled by sync pass.",
	}, []string{"pass"})

	// PassDuration observes wall time per sync pass.
	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adwarden_sync_pass_duration_seconds",
		Help:    "Sync pass duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"pass"})

	// WorkflowOutcomes counts mutation workflow completions by status.
	WorkflowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adwarden_workflow_outcomes_total",
		Help: "Mutation workflow completions, labeled by workflow and status.",
	}, []string{"workflow", "status"})
)

// Serve exposes /metrics on addr in the background. Listener failures are
// logged, never fatal.
func Serve(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics listener stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}
