package session

import "errors"

// Error kinds surfaced to clients as protocol error messages. All of
// them are recoverable: the offending command fails and the connection
// stays open.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotInSession    = errors.New("not in a session")
	ErrAlreadyRunning  = errors.New("timecode already running")
	ErrNotRunning      = errors.New("timecode not running")
)

// errClientUnknown covers the disconnect race where a command arrives
// for a client the registry no longer tracks. Surfaced as a generic
// internal error; it is not part of the protocol's error kinds.
var errClientUnknown = errors.New("client not connected")
