package supervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned by pause/resume when no session exists
	ErrNotRunning = errors.New("no session is running")

	// ErrPauseUnsupported is returned when pausing a session whose process
	// does not understand pause/resume signals
	ErrPauseUnsupported = errors.New("session does not support pause/resume")

	// ErrUnknownKey is returned for a protocol or role outside the known set
	ErrUnknownKey = errors.New("unknown casting session")

	// ErrInvalidSerial is returned for an empty or malformed device serial
	ErrInvalidSerial = errors.New("invalid device serial")
)

// StartError wraps a failure to build or spawn a session's process
type StartError struct {
	Key string
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Key, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// StopError wraps a failure to signal a session's process. The session is
// forgotten regardless.
type StopError struct {
	Key string
	Err error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("failed to stop %s: %v", e.Key, e.Err)
}

func (e *StopError) Unwrap() error { return e.Err }
