// Package discovery finds Miracast sinks, Android devices and casting
// targets on the local network
package discovery

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/Kyle6012/hypr-xdisplay/internal/display"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
)

// WirelessDisplay is a Miracast sink seen by miracle-sinkctl
type WirelessDisplay struct {
	Name    string
	Address string
}

// AndroidDevice is a device attached to adb
type AndroidDevice struct {
	Serial string
	State  string
}

// Ready reports whether adb can talk to the device
func (d AndroidDevice) Ready() bool {
	return d.State == "device"
}

// Target is a destination a sender session can stream to
type Target struct {
	Name    string
	Address string
	Port    uint16
}

const (
	vncFirstPort     = 5900
	vncLastPort      = 5910
	browserStreamURL = "ws://localhost:8082/"
)

// Scanner runs the discovery tools
type Scanner struct {
	runner display.Runner
}

// NewScanner creates a Scanner. A nil runner runs commands on the host.
func NewScanner(runner display.Runner) *Scanner {
	if runner == nil {
		runner = display.ExecRunner{}
	}
	return &Scanner{runner: runner}
}

// WirelessDisplays lists Miracast sinks
func (s *Scanner) WirelessDisplays(ctx context.Context) ([]WirelessDisplay, error) {
	stdout, stderr, err := s.runner.Run(ctx, "miracle-sinkctl", "list")
	if err != nil {
		return nil, commandError("miracle-sinkctl list", stderr, err)
	}
	return ParseSinkList(stdout), nil
}

// ParseSinkList reads `miracle-sinkctl list` rows of the form
// "<index> <address> <name...>"
func ParseSinkList(data []byte) []WirelessDisplay {
	var out []WirelessDisplay
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 || fields[len(fields)-1] == "listed" {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			// header
			continue
		}
		out = append(out, WirelessDisplay{
			Address: fields[1],
			Name:    strings.Join(fields[2:], " "),
		})
	}
	return out
}

// ConnectWireless asks miracle-sinkctl to connect to a sink
func (s *Scanner) ConnectWireless(ctx context.Context, address string) error {
	if _, stderr, err := s.runner.Run(ctx, "miracle-sinkctl", "connect", address); err != nil {
		return commandError("miracle-sinkctl connect", stderr, err)
	}
	logger.Info("Connected wireless display", "address", address)
	return nil
}

// DisconnectWireless drops the connection to a sink
func (s *Scanner) DisconnectWireless(ctx context.Context, address string) error {
	if _, stderr, err := s.runner.Run(ctx, "miracle-sinkctl", "disconnect", address); err != nil {
		return commandError("miracle-sinkctl disconnect", stderr, err)
	}
	logger.Info("Disconnected wireless display", "address", address)
	return nil
}

// AndroidDevices lists devices known to adb
func (s *Scanner) AndroidDevices(ctx context.Context) ([]AndroidDevice, error) {
	stdout, stderr, err := s.runner.Run(ctx, "adb", "devices")
	if err != nil {
		return nil, commandError("adb devices", stderr, err)
	}
	return ParseADBDevices(stdout), nil
}

// ParseADBDevices reads `adb devices` output
func ParseADBDevices(data []byte) []AndroidDevice {
	var out []AndroidDevice
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out = append(out, AndroidDevice{Serial: fields[0], State: fields[1]})
	}
	return out
}

// SenderTargets lists where a sender for the protocol can stream to
func (s *Scanner) SenderTargets(ctx context.Context, p supervisor.Protocol) ([]Target, error) {
	switch p {
	case supervisor.AirPlay, supervisor.Miracast:
		stdout, stderr, err := s.runner.Run(ctx, "avahi-browse", "-rtp", "_airplay._tcp")
		if err != nil {
			return nil, commandError("avahi-browse", stderr, err)
		}
		return ParseAvahiBrowse(stdout), nil

	case supervisor.VNC:
		targets := make([]Target, 0, vncLastPort-vncFirstPort+1)
		for port := vncFirstPort; port <= vncLastPort; port++ {
			addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
			targets = append(targets, Target{
				Name:    "VNC on " + addr,
				Address: addr,
				Port:    uint16(port),
			})
		}
		return targets, nil

	case supervisor.Browser:
		return []Target{{
			Name:    "Local Browser (" + browserStreamURL + ")",
			Address: browserStreamURL,
			Port:    8082,
		}}, nil
	}
	return nil, fmt.Errorf("no targets for %s", p)
}

// ParseAvahiBrowse reads resolved IPv4 entries from `avahi-browse -rtp`
// output, one target per address
func ParseAvahiBrowse(data []byte) []Target {
	var out []Target
	seen := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		parts := strings.Split(sc.Text(), ";")
		// =;iface;proto;name;type;domain;host;address;port;txt
		if len(parts) < 9 || parts[0] != "=" || parts[2] != "IPv4" || parts[4] != "_airplay._tcp" {
			continue
		}
		addr := strings.TrimSpace(parts[7])
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true

		port, _ := strconv.ParseUint(parts[8], 10, 16)
		out = append(out, Target{
			Name:    unescapeAvahi(parts[3]),
			Address: addr,
			Port:    uint16(port),
		})
	}
	return out
}

// unescapeAvahi decodes the \DDD escapes avahi uses in parsable output
func unescapeAvahi(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isDigits(s[i+1:i+4]) {
			if n, _ := strconv.Atoi(s[i+1 : i+4]); n <= 0xff {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func commandError(what string, stderr []byte, err error) error {
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return fmt.Errorf("%s failed: %w: %s", what, err, msg)
	}
	return fmt.Errorf("%s failed: %w", what, err)
}
