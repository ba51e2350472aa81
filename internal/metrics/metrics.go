// Package metrics exposes ingestion counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Changes counts raw file changes by pipeline outcome.
	Changes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeforged",
		Name:      "changes_total",
		Help:      "Raw file changes by outcome (filtered, debounced, discarded, recorded).",
	}, []string{"outcome"})

	// Dropped counts raw changes lost to a full channel.
	Dropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "timeforged",
		Name:      "changes_dropped_total",
		Help:      "Raw file changes dropped because the change queue was full.",
	})

	// Events counts stored events by source.
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeforged",
		Name:      "events_recorded_total",
		Help:      "Events stored, by source (watcher, window, api).",
	}, []string{"source"})

	// Rejected counts events refused by validation at the API.
	Rejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "timeforged",
		Name:      "events_rejected_total",
		Help:      "Events rejected by validation.",
	})

	// WatchedRoots is the number of roots currently watched.
	WatchedRoots = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "timeforged",
		Name:      "watched_roots",
		Help:      "Number of watched root directories.",
	})
)

// ObserveChange records a pipeline outcome.
func ObserveChange(outcome string) {
	Changes.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
