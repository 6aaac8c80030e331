package supervisor

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

const maxSerialLen = 128

// Mirrors supervises one scrcpy window per Android device serial
type Mirrors struct {
	reg *Registry[string]
}

// NewMirrors wraps a registry. A nil registry gets a fresh default one.
func NewMirrors(reg *Registry[string]) *Mirrors {
	if reg == nil {
		reg = NewRegistry[string]()
	}
	return &Mirrors{reg: reg}
}

// Start opens a mirror window for the device unless one is already open
func (m *Mirrors) Start(ctx context.Context, serial string) error {
	serial = strings.TrimSpace(serial)
	if !validSerial(serial) {
		return &StartError{Key: "Android mirror " + strconv.Quote(serial), Err: ErrInvalidSerial}
	}
	return m.reg.Start(ctx, serial, func() (SessionSpec, error) {
		spec := SessionSpec{Label: "Android mirror " + serial, Target: serial}
		spec.Command = Command{Name: "scrcpy", Args: []string{"-s", serial}}
		return spec, nil
	})
}

// Stop closes the mirror window for the device
func (m *Mirrors) Stop(serial string) error {
	return m.reg.Stop(strings.TrimSpace(serial))
}

// Status returns the last known status for the device
func (m *Mirrors) Status(serial string) Status {
	return m.reg.Status(strings.TrimSpace(serial))
}

// Statuses lists every device that has been mirrored, sorted by serial
func (m *Mirrors) Statuses() []Status {
	snap := m.reg.Snapshot()
	serials := make([]string, 0, len(snap))
	for s := range snap {
		serials = append(serials, s)
	}
	sort.Strings(serials)

	out := make([]Status, 0, len(serials))
	for _, s := range serials {
		out = append(out, snap[s])
	}
	return out
}

// Shutdown closes every mirror window
func (m *Mirrors) Shutdown() error {
	return m.reg.StopAll()
}

// validSerial accepts what adb prints: USB serials, emulator names and
// host:port pairs
func validSerial(serial string) bool {
	if serial == "" || len(serial) > maxSerialLen {
		return false
	}
	return strings.IndexFunc(serial, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) < 0
}
