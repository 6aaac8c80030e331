package display

import (
	"fmt"
	"strings"
)

// QueryError means the compositor could not be reached or answered with
// something that does not parse as a monitor list
type QueryError struct {
	Command string // hyprctl subcommand, "monitors" when empty
	Stderr  string
	Err     error
}

func (e *QueryError) Error() string {
	command := e.Command
	if command == "" {
		command = "monitors"
	}
	if e.Stderr != "" {
		return fmt.Sprintf("hyprctl %s failed: %v: %s", command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("hyprctl %s failed: %v", command, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ApplyError means the compositor rejected a layout batch. Nothing of the
// batch should be assumed applied.
type ApplyError struct {
	Batch  string
	Stderr string
	Err    error
}

func (e *ApplyError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("hyprctl batch command failed: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("hyprctl batch command failed: %v", e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// ControlError is returned by single-monitor controls (brightness, rotation)
type ControlError struct {
	Op      string
	Monitor string
	Stderr  string
	Err     error
}

func (e *ControlError) Error() string {
	msg := fmt.Sprintf("%s on %s failed: %v", e.Op, e.Monitor, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ControlError) Unwrap() error { return e.Err }

func trimOutput(b []byte) string {
	return strings.TrimSpace(string(b))
}
