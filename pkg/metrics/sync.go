package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records the health of the device sync core.
type SyncMetrics struct {
	mergesApplied   prometheus.Counter
	mergesDiscarded prometheus.Counter
	ordersKeptLocal prometheus.Counter
	malformedRemote prometheus.Counter
	queueProcessed  prometheus.Counter
	queueDropped    prometheus.Counter
	stockWarnings   *prometheus.CounterVec
	persistDuration prometheus.Histogram
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	mergesApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_merges_applied",
		Help: "Remote snapshots merged into local state.",
	})
	mergesDiscarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_merges_discarded",
		Help: "Remote snapshots discarded as stale by the document clock.",
	})
	ordersKeptLocal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_orders_kept_local",
		Help: "Orders retained from local state during a per-record merge.",
	})
	malformedRemote := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_malformed_remote_snapshots",
		Help: "Remote snapshots rejected by shape validation.",
	})
	queueProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queue_actions_processed",
		Help: "Offline actions replayed successfully.",
	})
	queueDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queue_actions_dropped",
		Help: "Offline actions discarded after exhausting the retry ceiling.",
	})
	stockWarnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_warnings",
		Help: "Negative-stock warnings emitted per ingredient.",
	}, []string{"ingredient"})
	persistDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "store_persist_duration_seconds",
		Help:    "Duration of durable snapshot writes.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(
		mergesApplied, mergesDiscarded, ordersKeptLocal, malformedRemote,
		queueProcessed, queueDropped, stockWarnings, persistDuration,
	)
	return &SyncMetrics{
		mergesApplied:   mergesApplied,
		mergesDiscarded: mergesDiscarded,
		ordersKeptLocal: ordersKeptLocal,
		malformedRemote: malformedRemote,
		queueProcessed:  queueProcessed,
		queueDropped:    queueDropped,
		stockWarnings:   stockWarnings,
		persistDuration: persistDuration,
	}
}

// IncMergeApplied counts an adopted remote snapshot.
func (m *SyncMetrics) IncMergeApplied() {
	if m == nil || m.mergesApplied == nil {
		return
	}
	m.mergesApplied.Inc()
}

// IncMergeDiscarded counts a stale remote snapshot.
func (m *SyncMetrics) IncMergeDiscarded() {
	if m == nil || m.mergesDiscarded == nil {
		return
	}
	m.mergesDiscarded.Inc()
}

// AddOrdersKeptLocal counts orders that won a version comparison locally.
func (m *SyncMetrics) AddOrdersKeptLocal(n int) {
	if m == nil || m.ordersKeptLocal == nil || n <= 0 {
		return
	}
	m.ordersKeptLocal.Add(float64(n))
}

// IncMalformedRemote counts a snapshot rejected by shape validation.
func (m *SyncMetrics) IncMalformedRemote() {
	if m == nil || m.malformedRemote == nil {
		return
	}
	m.malformedRemote.Inc()
}

// IncQueueProcessed counts a successfully replayed offline action.
func (m *SyncMetrics) IncQueueProcessed() {
	if m == nil || m.queueProcessed == nil {
		return
	}
	m.queueProcessed.Inc()
}

// IncQueueDropped counts an action discarded after the retry ceiling.
func (m *SyncMetrics) IncQueueDropped() {
	if m == nil || m.queueDropped == nil {
		return
	}
	m.queueDropped.Inc()
}

// IncStockWarning counts a negative-stock warning for the ingredient.
func (m *SyncMetrics) IncStockWarning(ingredient string) {
	if m == nil || m.stockWarnings == nil {
		return
	}
	if ingredient == "" {
		ingredient = "unknown"
	}
	m.stockWarnings.WithLabelValues(ingredient).Inc()
}

// ObservePersist records the duration of one durable snapshot write.
func (m *SyncMetrics) ObservePersist(d time.Duration) {
	if m == nil || m.persistDuration == nil {
		return
	}
	m.persistDuration.Observe(d.Seconds())
}
