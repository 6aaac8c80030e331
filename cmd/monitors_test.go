package cmd

import (
	"bytes"
	"testing"

	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	"github.com/Kyle6012/hypr-xdisplay/internal/discovery"
	"github.com/Kyle6012/hypr-xdisplay/internal/display"
	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMonitors() []display.Monitor {
	return []display.Monitor{
		{Name: "eDP-1", Width: 1920, Height: 1080, RefreshRate: 60, Scale: 1, DeviceType: display.DevicePhysical},
		{Name: "HDMI-A-1", Width: 2560, Height: 1440, RefreshRate: 144, X: 1920, Scale: 1, DeviceType: display.DevicePhysical},
	}
}

func TestMonitorPreferences(t *testing.T) {
	prefs := monitorPreferences([]config.MonitorPreference{
		{Name: "eDP-1", Mode: "extended", Orientation: "landscape", Scaling: 1.25},
		{Name: "HDMI-A-1", Mode: "copy"},
		{Name: "DP-3", Mode: "sideways"},
		{Name: "DP-4", Orientation: "upside-down"},
	})

	require.Len(t, prefs, 2)
	assert.Equal(t, display.Preference{Name: "eDP-1", Mode: display.ModeExtended, Orientation: display.Landscape, Scaling: 1.25}, prefs[0])
	assert.Equal(t, display.ModeCopy, prefs[1].Mode)
	assert.Equal(t, display.Landscape, prefs[1].Orientation)
}

func TestApplyOverrides(t *testing.T) {
	t.Cleanup(func() { applyModes, applyScales, applyOrientations = nil, nil, nil })

	t.Run("sets desired fields", func(t *testing.T) {
		monitors := testMonitors()
		applyModes = []string{"HDMI-A-1=copy"}
		applyScales = []string{"eDP-1=1.5"}
		applyOrientations = []string{"HDMI-A-1=Portrait"}

		require.NoError(t, applyOverrides(monitors))
		assert.Equal(t, display.ModeCopy, monitors[1].Mode)
		assert.Equal(t, display.Portrait, monitors[1].Orientation)
		require.NotNil(t, monitors[0].Scaling)
		assert.Equal(t, 1.5, *monitors[0].Scaling)
	})

	tests := []struct {
		name   string
		modes  []string
		scales []string
	}{
		{name: "missing separator", modes: []string{"HDMI-A-1"}},
		{name: "unknown monitor", modes: []string{"DP-9=copy"}},
		{name: "unknown mode", modes: []string{"eDP-1=sideways"}},
		{name: "bad scale", scales: []string{"eDP-1=big"}},
		{name: "zero scale", scales: []string{"eDP-1=0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applyModes, applyScales, applyOrientations = tt.modes, tt.scales, nil
			assert.Error(t, applyOverrides(testMonitors()))
		})
	}
}

func TestPrintPlan(t *testing.T) {
	monitors := testMonitors()
	monitors[1].Mode = display.ModeCopy

	var buf bytes.Buffer
	printPlan(&buf, display.Plan(monitors))

	out := buf.String()
	assert.Contains(t, out, "⇆ eDP-1")
	assert.Contains(t, out, "hyprctl --batch")
	assert.Contains(t, out, "keyword monitor HDMI-A-1,1920x1080@60,0x0,1")
}

func TestPrintMonitors(t *testing.T) {
	monitors := testMonitors()
	monitors[0].Focused = true
	monitors[1].Description = "Dell Inc. DELL U2723QE with a very long marketing name"

	var buf bytes.Buffer
	printMonitors(&buf, monitors)
	assert.Contains(t, buf.String(), "eDP-1*")
	assert.Contains(t, buf.String(), "2560x1440@144.00")
	assert.Contains(t, buf.String(), "…")
	assert.NotContains(t, buf.String(), "marketing name")

	buf.Reset()
	printMonitors(&buf, nil)
	assert.Contains(t, buf.String(), "No monitors")
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "50", want: 0.5},
		{in: "100", want: 1},
		{in: "0.25", want: 0.25},
		{in: "0", want: 0},
		{in: "150", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "bright", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parsePercent(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestPickReadyDevice(t *testing.T) {
	serial, err := pickReadyDevice([]discovery.AndroidDevice{
		{Serial: "emulator-5554", State: "device"},
		{Serial: "R58M", State: "unauthorized"},
	})
	require.NoError(t, err)
	assert.Equal(t, "emulator-5554", serial)

	_, err = pickReadyDevice([]discovery.AndroidDevice{{Serial: "R58M", State: "offline"}})
	assert.Error(t, err)

	_, err = pickReadyDevice([]discovery.AndroidDevice{
		{Serial: "a", State: "device"},
		{Serial: "b", State: "device"},
	})
	assert.ErrorContains(t, err, "pass a serial")
}

func TestNeedsTarget(t *testing.T) {
	cfg := config.DefaultConfig
	config.Set(&cfg)
	t.Cleanup(func() { config.Set(nil) })

	airplay := supervisor.Key{Protocol: supervisor.AirPlay, Role: supervisor.Sender}
	assert.True(t, needsTarget(airplay, ""))
	assert.False(t, needsTarget(airplay, "192.168.1.40"))
	assert.False(t, needsTarget(supervisor.Key{Protocol: supervisor.AirPlay, Role: supervisor.Receiver}, ""))
	assert.False(t, needsTarget(supervisor.Key{Protocol: supervisor.VNC, Role: supervisor.Sender}, ""))

	cfg.Casting.DefaultTarget = "192.168.1.40"
	assert.False(t, needsTarget(airplay, ""))
}
