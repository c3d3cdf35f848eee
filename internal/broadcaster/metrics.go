package broadcaster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // prometheus collectors
var (
	connectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_reload_connected_clients",
			Help: "Number of currently connected clients",
		},
	)

	messagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_reload_messages_sent_total",
			Help: "Total number of messages delivered to clients",
		},
	)

	sendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_reload_send_failures_total",
			Help: "Total number of failed deliveries",
		},
	)
)
