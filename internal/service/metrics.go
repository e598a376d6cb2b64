package service

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics holds the Prometheus metrics for the API server
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tunematch_http_requests_total",
			Help: "The total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tunematch_http_request_duration_seconds",
			Help:    "The duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// PoolStater exposes connection pool statistics.
type PoolStater interface {
	Stats() *pgxpool.Stat
}

// RegisterPoolMetrics publishes the pool's connection counts as gauges.
func RegisterPoolMetrics(reg prometheus.Registerer, pool PoolStater) {
	factory := promauto.With(reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tunematch_db_pool_total_conns",
		Help: "Total connections currently in the database pool",
	}, func() float64 { return float64(pool.Stats().TotalConns()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tunematch_db_pool_acquired_conns",
		Help: "Connections currently checked out of the database pool",
	}, func() float64 { return float64(pool.Stats().AcquiredConns()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tunematch_db_pool_idle_conns",
		Help: "Idle connections in the database pool",
	}, func() float64 { return float64(pool.Stats().IdleConns()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tunematch_db_pool_max_conns",
		Help: "Maximum size of the database pool",
	}, func() float64 { return float64(pool.Stats().MaxConns()) })
}
