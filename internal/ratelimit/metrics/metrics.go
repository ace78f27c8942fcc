package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejections      *prometheus.CounterVec
	AdminRejections *prometheus.CounterVec
	StoreFailures   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portalx_ratelimit_rejections_total",
			Help: "Requests rejected by the sliding-window rate limiter",
		}, []string{"class"}),
		AdminRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portalx_ratelimit_admin_rejections_total",
			Help: "Admin actions rejected by the per-action rate limiter",
		}, []string{"action"}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portalx_ratelimit_store_failures_total",
			Help: "Window store errors that caused the limiter to fail open",
		}),
	}
}

func (m *Metrics) RecordRejection(class string) {
	m.Rejections.WithLabelValues(class).Inc()
}

func (m *Metrics) RecordAdminRejection(action string) {
	m.AdminRejections.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordStoreFailure() {
	m.StoreFailures.Inc()
}
