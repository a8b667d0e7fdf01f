package metrics

import "github.com/prometheus/client_golang/prometheus"

// AuditMetrics tracks the asynchronous audit sink.
type AuditMetrics struct {
	appendFailures prometheus.Counter
	dropped        prometheus.Counter
	queueDepth     prometheus.Gauge
}

// NewAuditMetrics registers the audit sink metrics on the provided registerer.
func NewAuditMetrics(reg prometheus.Registerer) *AuditMetrics {
	if reg == nil {
		return &AuditMetrics{}
	}
	appendFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_append_failures",
		Help: "Audit entries that failed to persist.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_entries_dropped",
		Help: "Audit entries dropped because the sink queue was full.",
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audit_queue_depth",
		Help: "Entries waiting in the audit sink queue.",
	})
	reg.MustRegister(appendFailures, dropped, queueDepth)
	return &AuditMetrics{
		appendFailures: appendFailures,
		dropped:        dropped,
		queueDepth:     queueDepth,
	}
}

// IncAppendFailure increments the persist-failure counter.
func (m *AuditMetrics) IncAppendFailure() {
	if m == nil || m.appendFailures == nil {
		return
	}
	m.appendFailures.Inc()
}

// IncDropped increments the dropped-entry counter.
func (m *AuditMetrics) IncDropped() {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.Inc()
}

// SetQueueDepth publishes the current sink queue depth.
func (m *AuditMetrics) SetQueueDepth(n int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
