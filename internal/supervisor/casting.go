package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Protocol identifies a casting transport
type Protocol int

const (
	AirPlay Protocol = iota
	Miracast
	VNC
	Browser
)

var protocolNames = map[Protocol]string{
	AirPlay:  "AirPlay",
	Miracast: "Miracast",
	VNC:      "VNC",
	Browser:  "Browser",
}

func (p Protocol) String() string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

// Valid reports whether p is a known protocol
func (p Protocol) Valid() bool {
	_, ok := protocolNames[p]
	return ok
}

// Protocols lists every protocol in display order
func Protocols() []Protocol {
	return []Protocol{AirPlay, Miracast, VNC, Browser}
}

// ParseProtocol accepts a protocol name case-insensitively
func ParseProtocol(s string) (Protocol, error) {
	for p, name := range protocolNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown protocol %q (want airplay, miracast, vnc or browser)", s)
}

// Role is the direction of a casting session
type Role int

const (
	Receiver Role = iota
	Sender
)

func (r Role) String() string {
	switch r {
	case Receiver:
		return "Receiver"
	case Sender:
		return "Sender"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Valid reports whether r is Receiver or Sender
func (r Role) Valid() bool {
	return r == Receiver || r == Sender
}

// ParseRole accepts "receiver" or "sender" case-insensitively
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "receiver", "receive", "rx":
		return Receiver, nil
	case "sender", "send", "tx":
		return Sender, nil
	default:
		return 0, fmt.Errorf("unknown role %q (want receiver or sender)", s)
	}
}

// Key identifies one casting session slot
type Key struct {
	Protocol Protocol
	Role     Role
}

func (k Key) String() string {
	return k.Protocol.String() + " " + k.Role.String()
}

// Valid reports whether k names one of the casting slots in Keys
func (k Key) Valid() bool {
	return k.Protocol.Valid() && k.Role.Valid()
}

// Keys lists all casting keys, receivers before senders per protocol
func Keys() []Key {
	keys := make([]Key, 0, len(protocolNames)*2)
	for _, p := range Protocols() {
		keys = append(keys, Key{p, Receiver}, Key{p, Sender})
	}
	return keys
}

// ErrNoTarget is returned when a network sender is started without a
// destination host
var ErrNoTarget = errors.New("a destination host is required")

// CastCommand builds the command line for a casting session. port 0 means
// "use the tool's default".
func CastCommand(key Key, port uint16, extra string) (Command, error) {
	switch key {
	case Key{AirPlay, Receiver}, Key{Miracast, Receiver}:
		return Command{Name: "miracle-sinkctl", Args: []string{"--daemon"}}, nil

	case Key{VNC, Receiver}:
		cmd := Command{Name: "wayvnc"}
		if port != 0 {
			cmd.Args = []string{"0.0.0.0:" + strconv.Itoa(int(port))}
		}
		return cmd, nil

	case Key{Browser, Receiver}:
		cmd := Command{Name: "waypipe", Args: []string{"server", "--websocket"}}
		if port != 0 {
			cmd.Args = append(cmd.Args, "--port", strconv.Itoa(int(port)))
		}
		return cmd, nil

	case Key{AirPlay, Sender}, Key{Miracast, Sender}:
		host := strings.TrimSpace(extra)
		if host == "" {
			return Command{}, ErrNoTarget
		}
		return Command{Name: "gst-launch-1.0", Args: []string{
			"ximagesrc", "!", "videoconvert", "!", "jpegenc", "!", "rtpjpegpay", "!",
			"udpsink", "host=" + host, "port=5000",
		}}, nil

	case Key{VNC, Sender}:
		cmd := Command{Name: "x11vnc"}
		if port != 0 {
			cmd.Args = []string{"-rfbport", strconv.Itoa(int(port))}
		}
		return cmd, nil

	case Key{Browser, Sender}:
		if port == 0 {
			port = 8082
		}
		return Command{Name: "ffmpeg", Args: []string{
			"-f", "x11grab", "-i", ":0",
			"-f", "mpeg1video", "-b", "800k", "-r", "30",
			fmt.Sprintf("ws://localhost:%d/", port),
		}}, nil
	}
	return Command{}, fmt.Errorf("no command for %s", key)
}

// Casting supervises one session per protocol and role
type Casting struct {
	reg *Registry[Key]
}

// NewCasting wraps a registry. A nil registry gets a fresh default one.
func NewCasting(reg *Registry[Key]) *Casting {
	if reg == nil {
		reg = NewRegistry[Key]()
	}
	return &Casting{reg: reg}
}

// Start launches the session for key unless it is already running. extra is
// the destination host for AirPlay and Miracast senders.
func (c *Casting) Start(ctx context.Context, key Key, port uint16, extra string) error {
	if !key.Valid() {
		return &StartError{Key: key.String(), Err: ErrUnknownKey}
	}
	return c.reg.Start(ctx, key, func() (SessionSpec, error) {
		spec := SessionSpec{Label: key.String(), Port: port, Target: strings.TrimSpace(extra)}
		cmd, err := CastCommand(key, port, extra)
		if err != nil {
			return spec, err
		}
		spec.Command = cmd
		return spec, nil
	})
}

// Stop terminates the session for key if one exists
func (c *Casting) Stop(key Key) error {
	return c.reg.Stop(key)
}

// Status returns the last known status for key
func (c *Casting) Status(key Key) Status {
	return c.reg.Status(key)
}

// Statuses returns the status of every key in Keys order
func (c *Casting) Statuses() []KeyStatus {
	out := make([]KeyStatus, 0, len(protocolNames)*2)
	for _, k := range Keys() {
		out = append(out, KeyStatus{Key: k, Status: c.reg.Status(k)})
	}
	return out
}

// Shutdown stops every casting session
func (c *Casting) Shutdown() error {
	return c.reg.StopAll()
}

// KeyStatus pairs a casting key with its status
type KeyStatus struct {
	Key    Key
	Status Status
}
