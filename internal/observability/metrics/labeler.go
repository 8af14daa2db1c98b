// Package metrics provides Prometheus metrics for the labeler core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LabelerMetrics contains Prometheus metrics for the annotation core:
// lock manager contention, status recomputation, publishing and diffing.
type LabelerMetrics struct {
	registry *prometheus.Registry

	// Lock manager metrics
	lockOperationsTotal *prometheus.CounterVec
	activeLocksGauge    prometheus.Gauge
	expiredLocksSwept   prometheus.Counter

	// Status aggregator metrics
	statusRecomputeDuration prometheus.Histogram
	statusCacheOpsTotal     *prometheus.CounterVec

	// Confirmation workflow metrics
	confirmOperationsTotal *prometheus.CounterVec

	// Version publish and diff metrics
	publishTotal       *prometheus.CounterVec
	publishDuration    prometheus.Histogram
	snapshotCountHist  prometheus.Histogram
	diffDuration       prometheus.Histogram
	diffChangedImages  prometheus.Histogram
}

// NewLabelerMetrics creates and registers the labeler metrics with the
// provided registry.
func NewLabelerMetrics(registry *prometheus.Registry) (*LabelerMetrics, error) {
	m := &LabelerMetrics{registry: registry}

	m.lockOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labeler_lock_operations_total",
		Help: "Image lock operations by type and outcome",
	}, []string{"operation", "outcome"})

	m.activeLocksGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "labeler_active_locks",
		Help: "Number of active image locks observed at last listing",
	})

	m.expiredLocksSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "labeler_expired_locks_swept_total",
		Help: "Expired image locks removed by opportunistic sweeps",
	})

	m.statusRecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "labeler_status_recompute_duration_seconds",
		Help:    "Image status rollup recomputation duration",
		Buckets: prometheus.DefBuckets,
	})

	m.statusCacheOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labeler_status_cache_operations_total",
		Help: "Status rollup cache operations by result (hit, miss, invalidate)",
	}, []string{"result"})

	m.confirmOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labeler_confirm_operations_total",
		Help: "Image confirmation workflow operations by type",
	}, []string{"operation"})

	m.publishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labeler_publish_total",
		Help: "Version publish attempts by outcome",
	}, []string{"outcome"})

	m.publishDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "labeler_publish_duration_seconds",
		Help:    "Version publish duration including export",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	m.snapshotCountHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "labeler_publish_snapshot_count",
		Help:    "Snapshots frozen per published version",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
	})

	m.diffDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "labeler_diff_duration_seconds",
		Help:    "Version diff computation duration",
		Buckets: prometheus.DefBuckets,
	})

	m.diffChangedImages = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "labeler_diff_changed_images",
		Help:    "Images with changes per diff computation",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000},
	})

	collectors := []prometheus.Collector{
		m.lockOperationsTotal,
		m.activeLocksGauge,
		m.expiredLocksSwept,
		m.statusRecomputeDuration,
		m.statusCacheOpsTotal,
		m.confirmOperationsTotal,
		m.publishTotal,
		m.publishDuration,
		m.snapshotCountHist,
		m.diffDuration,
		m.diffChangedImages,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordLockOperation counts one lock manager operation by outcome.
func (m *LabelerMetrics) RecordLockOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.lockOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// SetActiveLocks records the number of active locks seen in a listing.
func (m *LabelerMetrics) SetActiveLocks(n int) {
	if m == nil {
		return
	}
	m.activeLocksGauge.Set(float64(n))
}

// RecordExpiredLocksSwept counts locks removed by an expiry sweep.
func (m *LabelerMetrics) RecordExpiredLocksSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredLocksSwept.Add(float64(n))
}

// RecordStatusRecompute observes one rollup recomputation.
func (m *LabelerMetrics) RecordStatusRecompute(d time.Duration) {
	if m == nil {
		return
	}
	m.statusRecomputeDuration.Observe(d.Seconds())
}

// RecordStatusCacheOp counts a cache hit, miss or invalidation.
func (m *LabelerMetrics) RecordStatusCacheOp(result string) {
	if m == nil {
		return
	}
	m.statusCacheOpsTotal.WithLabelValues(result).Inc()
}

// RecordConfirmOperation counts one confirm or unconfirm.
func (m *LabelerMetrics) RecordConfirmOperation(operation string) {
	if m == nil {
		return
	}
	m.confirmOperationsTotal.WithLabelValues(operation).Inc()
}

// RecordPublish observes one publish attempt.
func (m *LabelerMetrics) RecordPublish(outcome string, d time.Duration, snapshots int) {
	if m == nil {
		return
	}
	m.publishTotal.WithLabelValues(outcome).Inc()
	m.publishDuration.Observe(d.Seconds())
	if outcome == "success" {
		m.snapshotCountHist.Observe(float64(snapshots))
	}
}

// RecordDiff observes one diff computation.
func (m *LabelerMetrics) RecordDiff(d time.Duration, changedImages int) {
	if m == nil {
		return
	}
	m.diffDuration.Observe(d.Seconds())
	m.diffChangedImages.Observe(float64(changedImages))
}
