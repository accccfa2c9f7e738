package transport

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/smpte-tc/server/internal/session"
)

// WSHandler serves the same protocol over WebSocket: one JSON object per
// text message, no newline framing. WS and TCP clients share the hub and
// registry, so they can participate in the same sessions.
type WSHandler struct {
	hub      *Hub
	handler  *Handler
	registry *session.Registry
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub, handler *Handler, registry *session.Registry) *WSHandler {
	h := &WSHandler{hub: hub, handler: handler, registry: registry}
	h.upgrader = websocket.Upgrader{CheckOrigin: checkOrigin}
	return h
}

// checkOrigin admits same-host and localhost origins, and non-browser
// clients that send no Origin header.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	host := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	if host == r.Host {
		return true
	}
	for _, local := range []string{"localhost", "127.0.0.1", "[::1]"} {
		if host == local || strings.HasPrefix(host, local+":") {
			return true
		}
	}
	return false
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	clientID := uuid.NewString()
	addr := r.RemoteAddr
	log.Printf("Client connected: %s from %s (websocket)", clientID, addr)

	c := newClient(clientID, addr,
		func(data []byte) error {
			return conn.WriteMessage(websocket.TextMessage, data)
		},
		conn.Close,
	)
	h.hub.add(c)
	h.registry.AddClient(clientID, addr)

	defer func() {
		h.hub.remove(clientID)
		h.registry.RemoveClient(clientID)
		log.Printf("Client disconnected: %s", clientID)
	}()

	h.handler.Welcome(clientID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.handler.Handle(clientID, data)
	}
}
