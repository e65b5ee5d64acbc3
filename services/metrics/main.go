package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects calling and ingestion metrics.
type Recorder struct {
	baseCalls      *prometheus.CounterVec
	alleles        *prometheus.CounterVec
	ingestedLines  *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	publishedCalls *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		baseCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spatools_base_calls_total",
				Help: "Base calls produced, by called symbol",
			},
			[]string{"symbol"},
		),
		alleles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spatools_filtered_peaks_total",
				Help: "Peaks seen by the allele filter, by outcome",
			},
			[]string{"outcome"},
		),
		ingestedLines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spatools_ingested_records_total",
				Help: "Records read from ingested files, by assay type",
			},
			[]string{"assay"},
		),
		ingestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spatools_ingest_errors_total",
				Help: "Records rejected or failed during ingestion, by kind",
			},
			[]string{"kind"},
		),
		publishedCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spatools_sink_writes_total",
				Help: "Documents written to secondary sinks",
			},
			[]string{"sink"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spatools_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordBaseCall(symbol string) {
	r.baseCalls.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordAlleles(outcome string, n int) {
	if n > 0 {
		r.alleles.WithLabelValues(outcome).Add(float64(n))
	}
}

func (r *Recorder) RecordIngested(assay string) {
	r.ingestedLines.WithLabelValues(assay).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.ingestErrors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordSinkWrite(sink string, n int) {
	r.publishedCalls.WithLabelValues(sink).Add(float64(n))
}

// Since observes the time elapsed from start under op.
func (r *Recorder) Since(op string, start time.Time) {
	r.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
