// Package transport carries the newline-delimited JSON protocol over TCP
// and WebSocket connections and fans session broadcasts out to clients.
package transport

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/smpte-tc/server/internal/metrics"
)

// sendBufferSize bounds the per-client outbound queue. A client that
// falls this far behind is treated as failed and disconnected.
const sendBufferSize = 64

// client is the write side of one connection. Reads happen in the
// transport's per-connection goroutine; writes are serialized through
// send and the writePump.
type client struct {
	id   string
	addr string
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// newClient starts the client's writePump. write delivers one encoded
// message; closeConn tears down the underlying connection, which also
// unblocks the connection's read loop.
func newClient(id, addr string, write func([]byte) error, closeConn func() error) *client {
	c := &client{
		id:   id,
		addr: addr,
		send: make(chan []byte, sendBufferSize),
	}
	go func() {
		for data := range c.send {
			if err := write(data); err != nil {
				break
			}
		}
		closeConn()
	}()
	return c
}

// trySend queues data without blocking. It reports false when the
// client is closed or its buffer is full.
func (c *client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel exactly once. The writePump drains
// what is queued and then closes the connection.
func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Hub tracks connected clients across all transports and implements the
// registry's Broadcaster. Delivery to one client never blocks on or
// fails because of another: a failed client is disconnected and the
// fan-out continues.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	mets    *metrics.Metrics
}

func NewHub(mets *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		mets:    mets,
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

// remove forgets a client and shuts its write side down. Idempotent;
// called from the connection's read-loop teardown and from delivery
// failures.
func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		c.shutdown()
	}
}

// Send delivers one message to a single client. A full buffer or closed
// client counts as a delivery failure and disconnects the client.
func (h *Hub) Send(clientID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error for client %s: %v", clientID, err)
		return
	}
	h.deliver(clientID, data)
}

// Broadcast implements session.Broadcaster: one marshal, independent
// delivery to each listed client.
func (h *Hub) Broadcast(clientIDs []string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}
	for _, id := range clientIDs {
		h.deliver(id, data)
	}
}

func (h *Hub) deliver(clientID string, data []byte) {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !c.trySend(data) {
		log.Printf("Error sending to client %s: buffer full, disconnecting", clientID)
		h.mets.IncDroppedClients()
		h.remove(clientID)
	}
}

// CloseAll disconnects every client, used on shutdown. Each read loop
// then runs its normal teardown against the registry.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.shutdown()
	}
}

// ClientCount reports connected clients across all transports.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
