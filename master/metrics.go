package master

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects the Prometheus instruments the orchestrator and mode
// engines update as training progresses. Ambient observability, not part
// of spec.md's core contract, grounded on the teacher pack's use of
// client_golang for exactly this kind of counters/gauges/histogram set.
type Metrics struct {
	Iterations      prometheus.Counter
	DeltasApplied   prometheus.Counter
	DatapointsTotal prometheus.Counter
	ArchiveLatency  prometheus.Histogram
	GlobalBatchSize prometheus.Gauge
	LocalReportSize prometheus.Gauge
}

// NewMetrics registers a fresh Metrics set against reg. Passing a nil
// registerer is valid for tests that don't care about export.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "syncmaster",
			Name:      "iterations_total",
			Help:      "Number of completed synchronization iterations.",
		}),
		DeltasApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "syncmaster",
			Name:      "deltas_applied_total",
			Help:      "Number of worker deltas folded into the parameter.",
		}),
		DatapointsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "syncmaster",
			Name:      "datapoints_total",
			Help:      "Total datapoints credited across all applied deltas.",
		}),
		ArchiveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "syncmaster",
			Name:      "archive_flush_seconds",
			Help:      "Wall-clock time spent inside a single archive Dump call.",
			Buckets:   prometheus.DefBuckets,
		}),
		GlobalBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "syncmaster",
			Name:      "global_batch_size",
			Help:      "PAP's current estimated global batch size.",
		}),
		LocalReportSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "syncmaster",
			Name:      "local_report_size",
			Help:      "PAP's current estimated local report size.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Iterations, m.DeltasApplied, m.DatapointsTotal,
			m.ArchiveLatency, m.GlobalBatchSize, m.LocalReportSize)
	}
	return m
}
