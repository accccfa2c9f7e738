package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/smpte-tc/server/internal/session"
)

// maxLineBytes caps one inbound command line.
const maxLineBytes = 64 * 1024

// TCPServer accepts persistent client connections speaking one JSON
// object per newline-terminated line, both directions.
type TCPServer struct {
	hub      *Hub
	handler  *Handler
	registry *session.Registry

	mu sync.Mutex
	ln net.Listener
}

func NewTCPServer(hub *Hub, handler *Handler, registry *session.Registry) *TCPServer {
	return &TCPServer{hub: hub, handler: handler, registry: registry}
}

// ListenAndServe blocks accepting connections until Close is called.
func (s *TCPServer) ListenAndServe(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	log.Printf("SMPTE Timecode Server listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed during shutdown.
			return nil
		}
		go s.handleConn(conn)
	}
}

// Addr returns the bound listener address, or nil before ListenAndServe.
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops accepting and disconnects every client.
func (s *TCPServer) Close() {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	s.hub.CloseAll()
}

func (s *TCPServer) handleConn(conn net.Conn) {
	clientID := uuid.NewString()
	addr := conn.RemoteAddr().String()
	log.Printf("Client connected: %s from %s", clientID, addr)

	c := newClient(clientID, addr,
		func(data []byte) error {
			_, err := conn.Write(append(data, '\n'))
			return err
		},
		conn.Close,
	)
	s.hub.add(c)
	s.registry.AddClient(clientID, addr)

	defer func() {
		s.hub.remove(clientID)
		s.registry.RemoveClient(clientID)
		log.Printf("Client disconnected: %s", clientID)
	}()

	s.handler.Welcome(clientID)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		s.handler.Handle(clientID, line)
	}
}
