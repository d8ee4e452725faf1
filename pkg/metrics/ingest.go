package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics tracks catalog spreadsheet uploads.
type IngestMetrics struct {
	rows     *prometheus.CounterVec
	uploads  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewIngestMetrics registers the ingestion metrics on the provided registerer.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	if reg == nil {
		return &IngestMetrics{}
	}
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_ingest_rows_total",
		Help:      "Catalog rows persisted by uploads.",
	}, []string{"outcome"})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_uploads_total",
		Help:      "Catalog uploads by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "catalog_ingest_duration_seconds",
		Help:      "Time spent parsing and persisting a catalog upload.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(rows, uploads, duration)
	return &IngestMetrics{rows: rows, uploads: uploads, duration: duration}
}

// ObserveIngest records one upload attempt.
func (m *IngestMetrics) ObserveIngest(outcome string, rows int, duration time.Duration) {
	if m == nil || m.uploads == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.uploads.WithLabelValues(outcome).Inc()
	m.rows.WithLabelValues(outcome).Add(float64(rows))
	m.duration.Observe(duration.Seconds())
}
