// Package metrics registers Prometheus collectors for the session core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpenConnections tracks currently open websocket connections.
	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rapid",
		Name:      "open_connections",
		Help:      "Number of currently open websocket connections.",
	})

	// CommandsTotal counts processed commands by verb and outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rapid",
		Name:      "commands_total",
		Help:      "Commands processed, labelled by verb and outcome.",
	}, []string{"verb", "outcome"})

	// RelayedFramesTotal counts frames forwarded between clients and farms.
	RelayedFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rapid",
		Name:      "relayed_frames_total",
		Help:      "Frames relayed between clients and farms, by direction.",
	}, []string{"direction"})

	// DroppedFramesTotal counts frames that could not be delivered because
	// the peer's outbound queue was full or the topic had no subscriber.
	DroppedFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rapid",
		Name:      "dropped_frames_total",
		Help:      "Frames dropped instead of delivered, by reason.",
	}, []string{"reason"})
)
