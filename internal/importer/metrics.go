package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the importer
type Metrics struct {
	RowsProcessed prometheus.Counter
	RowsFailed    prometheus.Counter
	BatchSize     prometheus.Histogram
	BatchDuration prometheus.Histogram
}

// NewMetrics creates a new metrics instance registered with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tunematch_importer_rows_processed_total",
			Help: "The total number of rows processed by the importer",
		}),
		RowsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tunematch_importer_rows_failed_total",
			Help: "The total number of rows that could not be imported",
		}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tunematch_importer_batch_size",
			Help:    "The size of batches processed",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tunematch_importer_batch_duration_seconds",
			Help:    "The duration of batch processing in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
