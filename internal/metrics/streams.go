// Package metrics provides Prometheus metrics for stream lifecycle and
// watcher activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dircast/dircast/internal/events"
)

var (
	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dircast",
		Subsystem: "streams",
		Name:      "active",
		Help:      "Number of streams with a live publisher process",
	})

	registeredStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dircast",
		Subsystem: "streams",
		Name:      "registered",
		Help:      "Number of registered streams",
	})

	streamStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dircast",
		Subsystem: "streams",
		Name:      "starts_total",
		Help:      "Total publisher process starts",
	}, []string{"stream_id"})

	streamStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dircast",
		Subsystem: "streams",
		Name:      "stops_total",
		Help:      "Total publisher process stops",
	}, []string{"stream_id"})

	streamCrashes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dircast",
		Subsystem: "streams",
		Name:      "crashes_total",
		Help:      "Total unexpected publisher exits",
	}, []string{"stream_id"})

	watcherEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dircast",
		Subsystem: "watcher",
		Name:      "events_total",
		Help:      "Total coalesced directory watcher events",
	}, []string{"kind"})

	namingCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dircast",
		Subsystem: "streams",
		Name:      "naming_collisions_total",
		Help:      "Total rejected files whose identifier was already taken",
	})
)

// Bind subscribes the metrics to lifecycle events on the bus. Returns an
// unsubscribe function.
func Bind(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.StreamStartedEvent) {
			streamStarts.WithLabelValues(e.StreamID).Inc()
			activeStreams.Inc()
		}),
		bus.Subscribe(func(e events.StreamStoppedEvent) {
			streamStops.WithLabelValues(e.StreamID).Inc()
			activeStreams.Dec()
		}),
		bus.Subscribe(func(e events.StreamCrashedEvent) {
			streamCrashes.WithLabelValues(e.StreamID).Inc()
		}),
		bus.Subscribe(func(events.VideoAddedEvent) {
			watcherEvents.WithLabelValues("created").Inc()
			registeredStreams.Inc()
		}),
		bus.Subscribe(func(e events.VideoRemovedEvent) {
			watcherEvents.WithLabelValues("removed").Inc()
			registeredStreams.Dec()
			DeleteStreamMetrics(e.StreamID)
		}),
		bus.Subscribe(func(events.NamingCollisionEvent) {
			namingCollisions.Inc()
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// DeleteStreamMetrics removes per-stream series when a stream is
// deregistered so stale label values do not accumulate.
func DeleteStreamMetrics(streamID string) {
	streamStarts.DeleteLabelValues(streamID)
	streamStops.DeleteLabelValues(streamID)
	streamCrashes.DeleteLabelValues(streamID)
}
