package pubsub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyfeed",
			Subsystem: "pubsub",
			Name:      "events_published_total",
			Help:      "Total number of domain events published",
		},
		[]string{"topic"},
	)

	eventsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyfeed",
			Subsystem: "pubsub",
			Name:      "events_delivered_total",
			Help:      "Total number of event deliveries to subscribers",
		},
		[]string{"topic"},
	)

	eventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyfeed",
			Subsystem: "pubsub",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped for slow subscribers",
		},
		[]string{"topic"},
	)

	subscribersActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "storyfeed",
			Subsystem: "pubsub",
			Name:      "subscribers_active",
			Help:      "Number of live subscriptions per topic",
		},
		[]string{"topic"},
	)
)

// recordPublished records one publish and its delivery count.
func recordPublished(topic string, delivered int) {
	eventsPublishedTotal.WithLabelValues(topic).Inc()
	eventsDeliveredTotal.WithLabelValues(topic).Add(float64(delivered))
}

// recordDropped records a delivery dropped for a slow subscriber.
func recordDropped(topic string) {
	eventsDroppedTotal.WithLabelValues(topic).Inc()
}

// recordSubscribed records a new subscription.
func recordSubscribed(topic string) {
	subscribersActive.WithLabelValues(topic).Inc()
}

// recordUnsubscribed records a subscription going away.
func recordUnsubscribed(topic string) {
	subscribersActive.WithLabelValues(topic).Dec()
}
