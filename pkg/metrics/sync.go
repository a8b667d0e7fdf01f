package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncPublisherMetrics records delivery metadata for the outbox publisher.
type SyncPublisherMetrics struct {
	published    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
	batchSize    prometheus.Histogram
	pushDuration prometheus.Histogram
	pending      prometheus.Gauge
}

// NewSyncPublisherMetrics registers the publisher metrics on the provided registerer.
func NewSyncPublisherMetrics(reg prometheus.Registerer) *SyncPublisherMetrics {
	if reg == nil {
		return &SyncPublisherMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_operations_published",
		Help: "Outbox operations acknowledged by the remote store.",
	}, []string{"collection"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_operations_failed",
		Help: "Outbox delivery attempts that failed and will retry.",
	}, []string{"collection"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_operations_dead_lettered",
		Help: "Outbox operations moved to the dead letter queue.",
	}, []string{"collection"})
	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_batch_size",
		Help:    "Number of operations fetched per publisher poll.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})
	pushDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_push_duration_seconds",
		Help:    "Duration of remote push requests in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_operations_pending",
		Help: "Outbox operations waiting for delivery.",
	})
	reg.MustRegister(published, failed, deadLettered, batchSize, pushDuration, pending)
	return &SyncPublisherMetrics{
		published:    published,
		failed:       failed,
		deadLettered: deadLettered,
		batchSize:    batchSize,
		pushDuration: pushDuration,
		pending:      pending,
	}
}

// IncPublished increments the acknowledged counter for the collection.
func (m *SyncPublisherMetrics) IncPublished(collection string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(collection)).Inc()
}

// IncFailed increments the retryable-failure counter for the collection.
func (m *SyncPublisherMetrics) IncFailed(collection string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(collection)).Inc()
}

// IncDeadLettered increments the dead-letter counter for the collection.
func (m *SyncPublisherMetrics) IncDeadLettered(collection string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(collection)).Inc()
}

// ObserveBatchSize records how many operations one poll picked up.
func (m *SyncPublisherMetrics) ObserveBatchSize(n int) {
	if m == nil || m.batchSize == nil {
		return
	}
	m.batchSize.Observe(float64(n))
}

// ObservePushDuration records the duration of one remote push.
func (m *SyncPublisherMetrics) ObservePushDuration(d time.Duration) {
	if m == nil || m.pushDuration == nil {
		return
	}
	m.pushDuration.Observe(d.Seconds())
}

// SetPending publishes the current pending-operation count.
func (m *SyncPublisherMetrics) SetPending(n int64) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
