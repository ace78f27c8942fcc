package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	Failures    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portalx_token_cache_hits_total",
			Help: "Bearer tokens resolved from the identity cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portalx_token_cache_misses_total",
			Help: "Bearer tokens that required verification and a store lookup",
		}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portalx_auth_failures_total",
			Help: "Requests rejected by the authentication gate",
		}, []string{"reason"}),
	}
}

func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

func (m *Metrics) RecordFailure(reason string) {
	m.Failures.WithLabelValues(reason).Inc()
}
