package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the hub's Prometheus collectors.
type Metrics struct {
	MessagesReceived  prometheus.Counter
	MessagesDropped   prometheus.Counter
	Dispatches        *prometheus.CounterVec
	SettingsPublished prometheus.Counter
	TransportErrors   *prometheus.CounterVec
	Connects          prometheus.Counter
}

// NewMetrics creates the hub collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "terratap",
			Subsystem: "hub",
			Name:      "messages_received_total",
			Help:      "Messages taken from the inbox by the event loop",
		}),
		MessagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "terratap",
			Subsystem: "hub",
			Name:      "messages_dropped_total",
			Help:      "Messages dropped because the inbox was full",
		}),
		Dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terratap",
			Subsystem: "hub",
			Name:      "dispatches_total",
			Help:      "Handle calls per module",
		}, []string{"module"}),
		SettingsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "terratap",
			Subsystem: "hub",
			Name:      "settings_published_total",
			Help:      "Retained settings accepted by the transport",
		}),
		TransportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terratap",
			Subsystem: "hub",
			Name:      "transport_errors_total",
			Help:      "Failed publish and subscribe calls made during initialization",
		}, []string{"op"}),
		Connects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "terratap",
			Subsystem: "hub",
			Name:      "connects_total",
			Help:      "Connected events handled (initial connection and reconnects)",
		}),
	}
}
