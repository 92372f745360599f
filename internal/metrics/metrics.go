// Package metrics provides Prometheus instrumentation for the realtime layer:
// live connections, relayed signals, published domain events and typing updates.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels shared by the counters below.
const (
	ResultDelivered = "delivered"
	ResultMiss      = "miss"
	ResultRejected  = "rejected"
)

var (
	// Connections tracks live connections, labeled by transport kind.
	Connections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "twinlink_connections",
		Help: "Current number of live realtime connections",
	}, []string{"kind"}) // kind = "socket", "stream"

	// Signals counts relayed call-signaling messages by kind and result.
	Signals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "twinlink_signals_total",
		Help: "Call-signaling messages handled by the relay",
	}, []string{"kind", "result"})

	// Events counts domain events handled by the fan-out channel.
	Events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "twinlink_events_total",
		Help: "Domain events handled by the fan-out channel",
	}, []string{"result"})

	// FramesDropped counts outbound frames dropped because a connection queue was full.
	FramesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "twinlink_frames_dropped_total",
		Help: "Outbound frames dropped on full connection queues",
	})

	// Typing counts typing notifications fanned out.
	Typing = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "twinlink_typing_total",
		Help: "Typing notifications processed",
	})
)

func init() {
	prometheus.MustRegister(
		Connections,
		Signals,
		Events,
		FramesDropped,
		Typing,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
