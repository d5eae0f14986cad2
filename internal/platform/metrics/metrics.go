package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the feature host.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	HandlerDuration  *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on the given registerer. Tests use a fresh
// prometheus.NewRegistry to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "featurehost_feature_requests_total",
			Help: "Total feature invocations by feature ID and response status",
		}, []string{"feature", "status"}),
		RateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "featurehost_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "featurehost_fetch_cache_hits_total",
			Help: "Total cached-fetch lookups served from the cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "featurehost_fetch_cache_misses_total",
			Help: "Total cached-fetch lookups that required an external call",
		}),
		HandlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "featurehost_handler_duration_seconds",
			Help:    "Feature handler execution latency in seconds",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"feature"}),
	}
}

// ObserveRequest records a completed invocation.
func (m *Metrics) ObserveRequest(feature string, status string) {
	m.RequestsTotal.WithLabelValues(feature, status).Inc()
}

// ObserveHandler records handler execution latency.
func (m *Metrics) ObserveHandler(feature string, d time.Duration) {
	m.HandlerDuration.WithLabelValues(feature).Observe(d.Seconds())
}
