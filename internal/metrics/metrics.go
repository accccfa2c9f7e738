// Package metrics exposes Prometheus instrumentation for the timecode
// server. All methods are safe on a nil receiver so components can run
// uninstrumented in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	activeSessions   prometheus.Gauge
	connectedClients prometheus.Gauge
	ticksTotal       prometheus.Counter
	broadcastsTotal  prometheus.Counter
	droppedClients   prometheus.Counter
	commandsTotal    *prometheus.CounterVec
}

// New creates and registers the server's metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smpte_active_sessions",
		Help: "Number of live timecode sessions",
	})
	connectedClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smpte_connected_clients",
		Help: "Number of connected clients across all transports",
	})
	ticksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smpte_clock_ticks_total",
		Help: "Total clock driver ticks across all sessions",
	})
	broadcastsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smpte_broadcasts_total",
		Help: "Total session broadcast fan-outs",
	})
	droppedClients := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smpte_dropped_clients_total",
		Help: "Clients disconnected after a delivery failure",
	})
	commandsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smpte_commands_total",
		Help: "Client commands received, by type",
	}, []string{"type"})

	registry.MustRegister(
		activeSessions,
		connectedClients,
		ticksTotal,
		broadcastsTotal,
		droppedClients,
		commandsTotal,
	)

	return &Metrics{
		registry:         registry,
		activeSessions:   activeSessions,
		connectedClients: connectedClients,
		ticksTotal:       ticksTotal,
		broadcastsTotal:  broadcastsTotal,
		droppedClients:   droppedClients,
		commandsTotal:    commandsTotal,
	}
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) SetConnectedClients(n int) {
	if m == nil {
		return
	}
	m.connectedClients.Set(float64(n))
}

func (m *Metrics) IncTicks() {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
}

func (m *Metrics) IncBroadcasts() {
	if m == nil {
		return
	}
	m.broadcastsTotal.Inc()
}

func (m *Metrics) IncDroppedClients() {
	if m == nil {
		return
	}
	m.droppedClients.Inc()
}

func (m *Metrics) IncCommand(typ string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(typ).Inc()
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
