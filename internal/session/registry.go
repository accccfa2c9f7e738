package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smpte-tc/server/internal/metrics"
	"github.com/smpte-tc/server/internal/protocol"
	"github.com/smpte-tc/server/internal/timecode"
)

// Broadcaster delivers a message to each listed client. Per-client
// delivery failures are handled inside the transport (the failing client
// is disconnected) and never propagate back to the caller.
type Broadcaster interface {
	Broadcast(clientIDs []string, msg any)
}

// Mirror receives a copy of every session broadcast, keyed by session.
// Optional; used for the MQTT mirror.
type Mirror interface {
	Mirror(sessionID string, msg any)
}

const defaultTimecode = "00:00:00:00"

// Registry owns every session and tracks every connected client. All
// operations take the registry mutex for their whole read-modify-write,
// so operations on one session never interleave; broadcasts run against
// a subscriber snapshot after the lock is released.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	clients  map[string]*Client
	bc       Broadcaster
	mirror   Mirror           // nil disables mirroring
	mets     *metrics.Metrics // nil disables instrumentation
}

func NewRegistry(bc Broadcaster, mets *metrics.Metrics) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		clients:  make(map[string]*Client),
		bc:       bc,
		mets:     mets,
	}
}

// AddClient registers a newly connected client with no session.
func (r *Registry) AddClient(clientID, addr string) {
	r.mu.Lock()
	r.clients[clientID] = &Client{
		ID:          clientID,
		Addr:        addr,
		ConnectedAt: time.Now(),
	}
	n := len(r.clients)
	r.mu.Unlock()

	r.mets.SetConnectedClients(n)
}

// RemoveClient drops a client on transport disconnect, implicitly
// leaving its session.
func (r *Registry) RemoveClient(clientID string) {
	r.mu.Lock()
	halt := r.leaveLocked(clientID)
	delete(r.clients, clientID)
	n := len(r.clients)
	r.mu.Unlock()

	if halt != nil {
		halt.halt()
	}
	r.mets.SetConnectedClients(n)
}

// CreateSession allocates a new stopped session with the requester as
// its only subscriber. The requester implicitly leaves any session it
// was in; a client belongs to at most one session at a time.
func (r *Registry) CreateSession(clientID, framerate, initial string) (protocol.SessionCreated, error) {
	fr, err := timecode.ParseFramerate(framerate)
	if err != nil {
		return protocol.SessionCreated{}, err
	}
	if initial == "" {
		initial = defaultTimecode
	}
	tc, err := timecode.Parse(initial)
	if err != nil {
		return protocol.SessionCreated{}, err
	}

	r.mu.Lock()
	client, ok := r.clients[clientID]
	if !ok {
		r.mu.Unlock()
		return protocol.SessionCreated{}, errClientUnknown
	}
	halt := r.leaveLocked(clientID)

	s := &Session{
		ID:          uuid.NewString(),
		Framerate:   fr,
		Timecode:    tc,
		Creator:     clientID,
		CreatedAt:   time.Now(),
		subscribers: map[string]struct{}{clientID: {}},
	}
	r.sessions[s.ID] = s
	client.SessionID = s.ID
	n := len(r.sessions)
	r.mu.Unlock()

	if halt != nil {
		halt.halt()
	}
	r.mets.SetActiveSessions(n)
	log.Printf("Session created: %s with framerate %s", s.ID, fr)
	return protocol.NewSessionCreated(s.ID, fr.String(), tc.String()), nil
}

// JoinSession adds the requester to an existing session, implicitly
// leaving its current one first. Joining the session the client is
// already in is a no-op apart from the reply.
func (r *Registry) JoinSession(clientID, sessionID string) (protocol.SessionJoined, error) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return protocol.SessionJoined{}, ErrSessionNotFound
	}
	client, ok := r.clients[clientID]
	if !ok {
		r.mu.Unlock()
		return protocol.SessionJoined{}, errClientUnknown
	}

	var halt *clock
	if client.SessionID != sessionID {
		halt = r.leaveLocked(clientID)
		s.addSubscriber(clientID)
		client.SessionID = sessionID
	}
	reply := protocol.NewSessionJoined(s.ID, s.Framerate.String(), s.Timecode.String(), s.Running)
	r.mu.Unlock()

	if halt != nil {
		halt.halt()
	}
	log.Printf("Client %s joined session %s", clientID, sessionID)
	return reply, nil
}

// LeaveSession removes the requester from its session, if any. Emptying
// a session deletes it and halts its clock before returning.
func (r *Registry) LeaveSession(clientID string) {
	r.mu.Lock()
	halt := r.leaveLocked(clientID)
	r.mu.Unlock()

	if halt != nil {
		halt.halt()
	}
}

// leaveLocked removes clientID from its current session and deletes the
// session if it became empty. It returns the halted session's clock, if
// any; the caller must halt it after releasing the mutex (halting under
// the lock would deadlock against a tick waiting for it).
func (r *Registry) leaveLocked(clientID string) *clock {
	client, ok := r.clients[clientID]
	if !ok || client.SessionID == "" {
		return nil
	}
	sessionID := client.SessionID
	client.SessionID = ""

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	s.removeSubscriber(clientID)
	if !s.empty() {
		return nil
	}

	clk := s.clock
	s.clock = nil
	s.Running = false
	delete(r.sessions, sessionID)
	r.mets.SetActiveSessions(len(r.sessions))
	log.Printf("Session %s cleaned up - no clients remaining", sessionID)
	return clk
}

// StartClock transitions the requester's session to running and starts
// its tick driver, then broadcasts timecode_started.
func (r *Registry) StartClock(clientID string) error {
	r.mu.Lock()
	s, err := r.sessionForLocked(clientID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if s.Running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}

	s.Running = true
	sessionID := s.ID
	clk := startClock(s.Framerate.Interval(), func(c *clock) {
		r.tick(sessionID, c)
	})
	s.clock = clk

	subs := s.subscriberSnapshot()
	msg := protocol.NewTimecodeEvent(protocol.MsgTimecodeStarted, s.Timecode.String())
	r.mu.Unlock()

	r.broadcast(sessionID, subs, msg)
	log.Printf("Timecode started for session %s", sessionID)
	return nil
}

// StopClock halts the requester's session clock and broadcasts
// timecode_stopped. It does not return until the driver has ceased; no
// tick mutates state after StopClock returns.
func (r *Registry) StopClock(clientID string) error {
	r.mu.Lock()
	s, err := r.sessionForLocked(clientID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if !s.Running {
		r.mu.Unlock()
		return ErrNotRunning
	}

	clk := s.clock
	s.clock = nil
	s.Running = false
	sessionID := s.ID
	subs := s.subscriberSnapshot()
	msg := protocol.NewTimecodeEvent(protocol.MsgTimecodeStopped, s.Timecode.String())
	r.mu.Unlock()

	clk.halt()
	r.broadcast(sessionID, subs, msg)
	log.Printf("Timecode stopped for session %s", sessionID)
	return nil
}

// ResetClock replaces the session's timecode, independent of running
// state, and broadcasts timecode_reset immediately.
func (r *Registry) ResetClock(clientID, value string) error {
	if value == "" {
		value = defaultTimecode
	}
	tc, err := timecode.Parse(value)
	if err != nil {
		return err
	}

	r.mu.Lock()
	s, serr := r.sessionForLocked(clientID)
	if serr != nil {
		r.mu.Unlock()
		return serr
	}
	s.Timecode = tc
	sessionID := s.ID
	subs := s.subscriberSnapshot()
	msg := protocol.NewTimecodeEvent(protocol.MsgTimecodeReset, tc.String())
	r.mu.Unlock()

	r.broadcast(sessionID, subs, msg)
	log.Printf("Timecode reset for session %s to %s", sessionID, tc)
	return nil
}

// sessionForLocked resolves the requester's current session. Callers
// hold the mutex.
func (r *Registry) sessionForLocked(clientID string) (*Session, error) {
	client, ok := r.clients[clientID]
	if !ok || client.SessionID == "" {
		return nil, ErrNotInSession
	}
	s, ok := r.sessions[client.SessionID]
	if !ok {
		// Lost a race with the last member leaving.
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// tick advances one session by one frame. The clk identity check makes
// a stale driver (replaced or stopped while this tick waited on the
// mutex) a no-op.
func (r *Registry) tick(sessionID string, clk *clock) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok || !s.Running || s.clock != clk {
		r.mu.Unlock()
		return
	}
	s.Timecode = s.Timecode.Increment(s.Framerate.MaxFrames())
	subs := s.subscriberSnapshot()
	msg := protocol.NewTimecodeEvent(protocol.MsgTimecodeUpdate, s.Timecode.String())
	r.mu.Unlock()

	r.mets.IncTicks()
	r.broadcast(sessionID, subs, msg)
}

// SetMirror attaches a broadcast mirror. Call before serving traffic.
func (r *Registry) SetMirror(m Mirror) {
	r.mirror = m
}

func (r *Registry) broadcast(sessionID string, clientIDs []string, msg any) {
	if r.mirror != nil {
		r.mirror.Mirror(sessionID, msg)
	}
	if len(clientIDs) == 0 {
		return
	}
	r.mets.IncBroadcasts()
	r.bc.Broadcast(clientIDs, msg)
}

// Counts reports active sessions and connected clients.
func (r *Registry) Counts() (sessions, clients int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions), len(r.clients)
}

// SessionStatuses returns a snapshot of every session for the status
// surface, ordered arbitrarily.
func (r *Registry) SessionStatuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, Status{
			ID:          s.ID,
			Framerate:   s.Framerate.String(),
			Timecode:    s.Timecode.String(),
			Running:     s.Running,
			ClientCount: len(s.subscribers),
			CreatedAt:   s.CreatedAt,
		})
	}
	return out
}

// Shutdown stops every session clock. Used on process shutdown; clients
// are torn down by the transport.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	var clocks []*clock
	for _, s := range r.sessions {
		if s.clock != nil {
			clocks = append(clocks, s.clock)
			s.clock = nil
			s.Running = false
		}
	}
	r.mu.Unlock()

	for _, clk := range clocks {
		clk.halt()
	}
}
