package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Denials *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portalx_admin_denials_total",
			Help: "Requests turned away by the admin access gate",
		}, []string{"reason"}),
	}
}

func (m *Metrics) RecordDenial(reason string) {
	m.Denials.WithLabelValues(reason).Inc()
}
