package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission results used as label values.
const (
	ResultOK          = "ok"
	ResultValidation  = "validation_error"
	ResultRateLimited = "rate_limited"
	ResultError       = "error"
)

var (
	// SubmissionsTotal counts emotion submissions by outcome
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodmap_submissions_total",
		Help: "Emotion submissions by outcome.",
	}, []string{"result"})

	// RecomputesTotal counts aggregation recomputes by outcome
	RecomputesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodmap_recomputes_total",
		Help: "Cell aggregate recomputes by outcome.",
	}, []string{"result"})

	// RecomputeDuration observes recompute latency
	RecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "moodmap_recompute_duration_seconds",
		Help:    "Duration of cell aggregate recomputes.",
		Buckets: prometheus.DefBuckets,
	})

	// EntriesSweptTotal counts entries purged by the retention sweeper
	EntriesSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moodmap_entries_swept_total",
		Help: "Expired entries removed by the retention sweeper.",
	})

	// PendingCells tracks cells waiting for a debounced recompute
	PendingCells = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moodmap_recompute_pending_cells",
		Help: "Cells currently queued for recompute.",
	})
)
