package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSecurityMetrics() {
	r.AuthFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "routing_auth_failures_total",
			Help: "Total number of failed authentication attempts",
		},
	)

	r.TokensIssuedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "routing_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
	)
}
