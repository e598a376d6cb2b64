package scorer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for scorer calls
type Metrics struct {
	CallsTotal   *prometheus.CounterVec
	CallDuration prometheus.Histogram
	BreakerState prometheus.Gauge
}

// NewMetrics registers the scorer metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tunematch_scorer_calls_total",
			Help: "The total number of recommendation service calls by outcome",
		}, []string{"outcome"}),
		CallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tunematch_scorer_call_duration_seconds",
			Help:    "The duration of recommendation service calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tunematch_scorer_breaker_open",
			Help: "1 while the recommendation service circuit breaker is open",
		}),
	}
}
