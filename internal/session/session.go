// Package session implements the timecode session registry: session and
// client lifecycle, the per-session clock driver, and broadcast fan-out
// to subscribers.
package session

import (
	"time"

	"github.com/smpte-tc/server/internal/timecode"
)

// Session is one shared timecode counter. Sessions are reachable only
// through the registry's session map and all fields are guarded by the
// registry mutex.
type Session struct {
	ID          string
	Framerate   timecode.Framerate
	Timecode    timecode.Timecode
	Running     bool
	Creator     string
	CreatedAt   time.Time
	subscribers map[string]struct{}
	clock       *clock // non-nil iff Running
}

func (s *Session) addSubscriber(clientID string) {
	s.subscribers[clientID] = struct{}{}
}

func (s *Session) removeSubscriber(clientID string) {
	delete(s.subscribers, clientID)
}

func (s *Session) empty() bool {
	return len(s.subscribers) == 0
}

// subscriberSnapshot copies the subscriber set so broadcasts can iterate
// it outside the registry lock.
func (s *Session) subscriberSnapshot() []string {
	ids := make([]string, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	return ids
}

// Client is the registry's record of one connected client. The output
// side of the connection lives in the transport layer and is reached
// through the Broadcaster.
type Client struct {
	ID          string
	Addr        string
	SessionID   string // empty when not in a session
	ConnectedAt time.Time
}

// Status describes one session for the status surface.
type Status struct {
	ID          string    `json:"id"`
	Framerate   string    `json:"framerate"`
	Timecode    string    `json:"timecode"`
	Running     bool      `json:"running"`
	ClientCount int       `json:"client_count"`
	CreatedAt   time.Time `json:"created_at"`
}
