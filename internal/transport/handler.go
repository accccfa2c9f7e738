package transport

import (
	"errors"
	"log"

	"github.com/smpte-tc/server/internal/metrics"
	"github.com/smpte-tc/server/internal/protocol"
	"github.com/smpte-tc/server/internal/session"
	"github.com/smpte-tc/server/internal/timecode"
)

// Handler turns decoded client lines into registry operations and sends
// the per-command reply. Session-wide broadcasts (updates, started,
// stopped, reset) originate in the registry, not here.
type Handler struct {
	registry *session.Registry
	hub      *Hub
	mets     *metrics.Metrics
}

func NewHandler(registry *session.Registry, hub *Hub, mets *metrics.Metrics) *Handler {
	return &Handler{registry: registry, hub: hub, mets: mets}
}

// Welcome sends the connection greeting with the supported framerates.
func (h *Handler) Welcome(clientID string) {
	h.hub.Send(clientID, protocol.NewWelcome(
		"Connected to SMPTE Timecode Server",
		timecode.SupportedFramerates(),
	))
}

// Handle processes one inbound message. Every failure is answered with
// a protocol error message; nothing here closes the connection.
func (h *Handler) Handle(clientID string, line []byte) {
	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		h.hub.Send(clientID, protocol.NewError(err.Error()))
		return
	}

	switch cmd := cmd.(type) {
	case protocol.CreateSession:
		h.mets.IncCommand(string(protocol.MsgCreateSession))
		reply, err := h.registry.CreateSession(clientID, cmd.Framerate, cmd.InitialTimecode)
		if err != nil {
			h.sendError(clientID, err)
			return
		}
		h.hub.Send(clientID, reply)

	case protocol.JoinSession:
		h.mets.IncCommand(string(protocol.MsgJoinSession))
		reply, err := h.registry.JoinSession(clientID, cmd.SessionID)
		if err != nil {
			h.sendError(clientID, err)
			return
		}
		h.hub.Send(clientID, reply)

	case protocol.LeaveSession:
		h.mets.IncCommand(string(protocol.MsgLeaveSession))
		h.registry.LeaveSession(clientID)

	case protocol.StartTimecode:
		h.mets.IncCommand(string(protocol.MsgStartTimecode))
		if err := h.registry.StartClock(clientID); err != nil {
			h.sendError(clientID, err)
		}

	case protocol.StopTimecode:
		h.mets.IncCommand(string(protocol.MsgStopTimecode))
		if err := h.registry.StopClock(clientID); err != nil {
			h.sendError(clientID, err)
		}

	case protocol.ResetTimecode:
		h.mets.IncCommand(string(protocol.MsgResetTimecode))
		if err := h.registry.ResetClock(clientID, cmd.Timecode); err != nil {
			h.sendError(clientID, err)
		}
	}
}

// sendError maps registry error kinds to the protocol's error strings.
func (h *Handler) sendError(clientID string, err error) {
	var msg string
	switch {
	case errors.Is(err, timecode.ErrUnsupportedFramerate):
		msg = "Unsupported framerate"
	case errors.Is(err, timecode.ErrMalformed):
		msg = "Invalid timecode format. Use HH:MM:SS:FF"
	case errors.Is(err, session.ErrSessionNotFound):
		msg = "Session not found"
	case errors.Is(err, session.ErrNotInSession):
		msg = "Not in a session"
	case errors.Is(err, session.ErrAlreadyRunning):
		msg = "Timecode already running"
	case errors.Is(err, session.ErrNotRunning):
		msg = "Timecode not running"
	default:
		log.Printf("command from client %s failed: %v", clientID, err)
		msg = "Internal server error"
	}
	h.hub.Send(clientID, protocol.NewError(msg))
}
