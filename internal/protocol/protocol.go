// Package protocol defines the newline-delimited JSON messages exchanged
// with clients. Every message is one UTF-8 JSON object; the same shapes
// travel over TCP (newline-framed) and WebSocket (one object per text
// message).
package protocol

import (
	"encoding/json"
	"errors"
)

type MessageType string

// Client → server command types.
const (
	MsgCreateSession MessageType = "create_session"
	MsgJoinSession   MessageType = "join_session"
	MsgLeaveSession  MessageType = "leave_session"
	MsgStartTimecode MessageType = "start_timecode"
	MsgStopTimecode  MessageType = "stop_timecode"
	MsgResetTimecode MessageType = "reset_timecode"
)

// Server → client message types.
const (
	MsgWelcome         MessageType = "welcome"
	MsgSessionCreated  MessageType = "session_created"
	MsgSessionJoined   MessageType = "session_joined"
	MsgTimecodeUpdate  MessageType = "timecode_update"
	MsgTimecodeStarted MessageType = "timecode_started"
	MsgTimecodeStopped MessageType = "timecode_stopped"
	MsgTimecodeReset   MessageType = "timecode_reset"
	MsgError           MessageType = "error"
)

var (
	// ErrInvalidJSON is returned when an inbound line is not a JSON object.
	ErrInvalidJSON = errors.New("Invalid JSON message")
	// ErrUnknownCommand is returned for a type outside the command set.
	ErrUnknownCommand = errors.New("Unknown command")
)

// Command is the closed set of client commands. Handlers switch over
// the concrete types, so an unhandled command is a visible gap rather
// than a missing map entry.
type Command interface {
	isCommand()
}

type CreateSession struct {
	Framerate       string
	InitialTimecode string // defaults to "00:00:00:00" when empty
}

type JoinSession struct {
	SessionID string
}

type LeaveSession struct{}

type StartTimecode struct{}

type StopTimecode struct{}

type ResetTimecode struct {
	Timecode string // defaults to "00:00:00:00" when empty
}

func (CreateSession) isCommand() {}
func (JoinSession) isCommand()   {}
func (LeaveSession) isCommand()  {}
func (StartTimecode) isCommand() {}
func (StopTimecode) isCommand()  {}
func (ResetTimecode) isCommand() {}

// rawCommand is the superset of inbound fields; ParseCommand narrows it
// to one Command variant based on type.
type rawCommand struct {
	Type            MessageType `json:"type"`
	Framerate       string      `json:"framerate"`
	InitialTimecode string      `json:"initial_timecode"`
	SessionID       string      `json:"session_id"`
	Timecode        string      `json:"timecode"`
}

// ParseCommand decodes one inbound message. It returns ErrInvalidJSON
// for malformed JSON and ErrUnknownCommand for an unrecognized type;
// both are surfaced to the client without closing the connection.
func ParseCommand(data []byte) (Command, error) {
	var raw rawCommand
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ErrInvalidJSON
	}
	switch raw.Type {
	case MsgCreateSession:
		return CreateSession{Framerate: raw.Framerate, InitialTimecode: raw.InitialTimecode}, nil
	case MsgJoinSession:
		return JoinSession{SessionID: raw.SessionID}, nil
	case MsgLeaveSession:
		return LeaveSession{}, nil
	case MsgStartTimecode:
		return StartTimecode{}, nil
	case MsgStopTimecode:
		return StopTimecode{}, nil
	case MsgResetTimecode:
		return ResetTimecode{Timecode: raw.Timecode}, nil
	default:
		return nil, ErrUnknownCommand
	}
}

// Welcome is sent once per connection, immediately after accept.
type Welcome struct {
	Type                MessageType `json:"type"`
	Message             string      `json:"message"`
	SupportedFramerates []string    `json:"supported_framerates"`
}

func NewWelcome(message string, framerates []string) Welcome {
	return Welcome{Type: MsgWelcome, Message: message, SupportedFramerates: framerates}
}

type SessionCreated struct {
	Type            MessageType `json:"type"`
	SessionID       string      `json:"session_id"`
	Framerate       string      `json:"framerate"`
	InitialTimecode string      `json:"initial_timecode"`
}

func NewSessionCreated(sessionID, framerate, initialTimecode string) SessionCreated {
	return SessionCreated{Type: MsgSessionCreated, SessionID: sessionID, Framerate: framerate, InitialTimecode: initialTimecode}
}

type SessionJoined struct {
	Type            MessageType `json:"type"`
	SessionID       string      `json:"session_id"`
	Framerate       string      `json:"framerate"`
	CurrentTimecode string      `json:"current_timecode"`
	Running         bool        `json:"running"`
}

func NewSessionJoined(sessionID, framerate, currentTimecode string, running bool) SessionJoined {
	return SessionJoined{Type: MsgSessionJoined, SessionID: sessionID, Framerate: framerate, CurrentTimecode: currentTimecode, Running: running}
}

// TimecodeEvent covers timecode_update, timecode_started,
// timecode_stopped and timecode_reset, which share one shape.
type TimecodeEvent struct {
	Type     MessageType `json:"type"`
	Timecode string      `json:"timecode"`
}

func NewTimecodeEvent(typ MessageType, timecode string) TimecodeEvent {
	return TimecodeEvent{Type: typ, Timecode: timecode}
}

type Error struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func NewError(message string) Error {
	return Error{Type: MsgError, Message: message}
}
