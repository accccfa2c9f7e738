package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smpte-tc/server/internal/metrics"
	"github.com/smpte-tc/server/internal/session"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast([]string, any) {}

func newTestServer(t *testing.T) (*Server, *session.Registry) {
	t.Helper()
	registry := session.NewRegistry(nopBroadcaster{}, nil)
	return New(registry, metrics.New(), nil, "localhost", 8080), registry
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestStatusEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Host != "localhost" || resp.Port != 8080 {
		t.Errorf("host:port = %s:%d, want localhost:8080", resp.Host, resp.Port)
	}
	if resp.ActiveSessions != 0 || resp.ConnectedClients != 0 {
		t.Errorf("counts = (%d, %d), want (0, 0)", resp.ActiveSessions, resp.ConnectedClients)
	}
}

func TestStatusWithSession(t *testing.T) {
	srv, registry := newTestServer(t)
	registry.AddClient("c1", "addr1")
	created, err := registry.CreateSession("c1", "29.97", "01:02:03:04")
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ActiveSessions != 1 || resp.ConnectedClients != 1 {
		t.Errorf("counts = (%d, %d), want (1, 1)", resp.ActiveSessions, resp.ConnectedClients)
	}
	if len(resp.Sessions) != 1 {
		t.Fatalf("sessions has %d entries, want 1", len(resp.Sessions))
	}
	st := resp.Sessions[0]
	if st.ID != created.SessionID {
		t.Errorf("id = %q, want %q", st.ID, created.SessionID)
	}
	if st.Framerate != "29.97" {
		t.Errorf("framerate = %q, want 29.97", st.Framerate)
	}
	if st.Timecode != "01:02:03:04" {
		t.Errorf("timecode = %q, want 01:02:03:04", st.Timecode)
	}
	if st.Running {
		t.Error("running = true, want false")
	}
	if st.ClientCount != 1 {
		t.Errorf("client_count = %d, want 1", st.ClientCount)
	}
	if st.CreatedAt.IsZero() {
		t.Error("created_at is zero")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"smpte_active_sessions", "smpte_connected_clients", "smpte_clock_ticks_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestNoMetricsMount(t *testing.T) {
	registry := session.NewRegistry(nopBroadcaster{}, nil)
	srv := New(registry, nil, nil, "localhost", 8080)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics without metrics = %d, want 404", rec.Code)
	}
}
