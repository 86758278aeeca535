package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEventMetrics() {
	r.EventsPublishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_events_published_total",
			Help: "Total number of routing events published by topic",
		},
		[]string{"topic"},
	)

	r.EventSubscribers = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "routing_event_subscribers",
			Help: "Current number of event subscribers",
		},
	)

	r.NotifyMessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_notify_messages_total",
			Help: "Messages crossing the notification socket by direction",
		},
		[]string{"direction"},
	)
}
