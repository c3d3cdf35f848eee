package watcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // prometheus collectors
var (
	batchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_reload_batches_total",
			Help: "Total number of change batches emitted",
		},
	)

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_reload_events_total",
			Help: "Total number of change events by type",
		},
		[]string{"type"},
	)

	errorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_reload_watch_errors_total",
			Help: "Total number of errors reported by the filesystem watcher",
		},
	)
)
