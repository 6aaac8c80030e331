package display

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
)

// EventKind classifies compositor events the panel reacts to
type EventKind int

const (
	EventUnknown EventKind = iota
	EventMonitorAdded
	EventMonitorRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventMonitorAdded:
		return "monitoradded"
	case EventMonitorRemoved:
		return "monitorremoved"
	default:
		return "unknown"
	}
}

// Event is one line of the Hyprland event socket
type Event struct {
	Kind EventKind
	Name string // event name before ">>"
	Data string // payload after ">>"
}

// ParseEvent decodes a "name>>data" line
func ParseEvent(line string) Event {
	name, data, _ := strings.Cut(strings.TrimSpace(line), ">>")
	ev := Event{Name: name, Data: data}
	switch name {
	case "monitoradded", "monitoraddedv2":
		ev.Kind = EventMonitorAdded
	case "monitorremoved", "monitorremovedv2":
		ev.Kind = EventMonitorRemoved
	}
	return ev
}

// EventSocketPath returns the path of Hyprland's event socket
func EventSocketPath() (string, error) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return "", fmt.Errorf("HYPRLAND_INSTANCE_SIGNATURE is not set; is Hyprland running?")
	}

	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		path := filepath.Join(runtime, "hypr", sig, ".socket2.sock")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	// Hyprland before 0.40 kept its sockets under /tmp
	return filepath.Join("/tmp", "hypr", sig, ".socket2.sock"), nil
}

// Listen streams compositor events into events until ctx is cancelled or
// the socket closes
func Listen(ctx context.Context, socketPath string, events chan<- Event) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to event socket: %w", err)
	}
	defer conn.Close()

	// Unblock the scanner when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	logger.Debugf("Listening for compositor events on %s", socketPath)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		ev := ParseEvent(scanner.Text())
		select {
		case events <- ev:
		case <-ctx.Done():
			return nil
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream failed: %w", err)
	}
	logger.Warn("Compositor event stream ended")
	return nil
}
