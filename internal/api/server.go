// Package api exposes the HTTP surface: the process status query,
// health and Prometheus endpoints, and the WebSocket transport mount.
package api

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/smpte-tc/server/internal/metrics"
	"github.com/smpte-tc/server/internal/session"
)

type Server struct {
	registry *session.Registry
	mets     *metrics.Metrics
	ws       http.Handler // nil disables the /ws mount
	host     string
	port     int
}

// New wires the status server. host/port identify the TCP listener and
// are echoed in status responses.
func New(registry *session.Registry, mets *metrics.Metrics, ws http.Handler, host string, port int) *Server {
	return &Server{registry: registry, mets: mets, ws: ws, host: host, port: port}
}

func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	if s.mets != nil {
		r.Method(http.MethodGet, "/metrics", s.mets.Handler())
	}
	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type processStats struct {
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryRSSBytes uint64  `json:"memory_rss_bytes"`
}

type statusResponse struct {
	Host             string           `json:"host"`
	Port             int              `json:"port"`
	ActiveSessions   int              `json:"active_sessions"`
	ConnectedClients int              `json:"connected_clients"`
	Sessions         []session.Status `json:"sessions"`
	Process          *processStats    `json:"process,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sessions, clients := s.registry.Counts()
	resp := statusResponse{
		Host:             s.host,
		Port:             s.port,
		ActiveSessions:   sessions,
		ConnectedClients: clients,
		Sessions:         s.registry.SessionStatuses(),
		Process:          selfStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// selfStats reports the server process's own CPU and memory usage.
// Returns nil when the platform or permissions prevent collection.
func selfStats() *processStats {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil
	}
	stats := &processStats{}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.MemoryRSSBytes = mem.RSS
	}
	return stats
}
