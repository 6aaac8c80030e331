package display

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hyprctlMonitorsJSON = `[{
	"id": 0,
	"name": "eDP-1",
	"description": "BOE 0x095F",
	"make": "BOE",
	"model": "0x095F",
	"serial": "",
	"width": 2256,
	"height": 1504,
	"refreshRate": 59.99900,
	"x": 0,
	"y": 0,
	"activeWorkspace": {"id": 1, "name": "1"},
	"specialWorkspace": {"id": 0, "name": ""},
	"reserved": [0, 30, 0, 0],
	"scale": 1.50,
	"transform": 0,
	"focused": true,
	"dpmsStatus": true,
	"vrr": false,
	"activelyTearing": false,
	"disabled": false,
	"currentFormat": "XRGB8888",
	"availableModes": ["2256x1504@60.00Hz"]
},{
	"id": 1,
	"name": "DP-3",
	"description": "Dell Inc. DELL U2720Q",
	"make": "Dell Inc.",
	"model": "DELL U2720Q",
	"serial": "ABC1234",
	"width": 3840,
	"height": 2160,
	"refreshRate": 60.0,
	"x": 1504,
	"y": 0,
	"activeWorkspace": {"id": 2, "name": "2"},
	"specialWorkspace": {"id": 0, "name": ""},
	"reserved": [0, 0, 0, 0],
	"scale": 1.5,
	"transform": 1,
	"focused": false,
	"dpmsStatus": true,
	"vrr": true
}]`

func TestMonitors(t *testing.T) {
	ctx := context.Background()

	t.Run("parses hyprctl output", func(t *testing.T) {
		runner := &fakeRunner{stdout: []byte(hyprctlMonitorsJSON)}
		engine := NewEngine(WithRunner(runner))

		monitors, err := engine.Monitors(ctx)
		require.NoError(t, err)
		require.Len(t, monitors, 2)

		calls := runner.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"monitors", "-j"}, calls[0].args)

		edp := monitors[0]
		assert.Equal(t, "eDP-1", edp.Name)
		assert.Equal(t, 2256, edp.Width)
		assert.InDelta(t, 59.999, edp.RefreshRate, 0.001)
		assert.Equal(t, 1.5, edp.Scale)
		assert.True(t, edp.Focused)
		assert.Equal(t, [4]int{0, 30, 0, 0}, edp.Reserved)
		assert.Equal(t, DevicePhysical, edp.DeviceType)
		assert.Equal(t, ModeExtended, edp.EffectiveMode())

		dell := monitors[1]
		assert.Equal(t, "ABC1234", dell.Serial)
		assert.True(t, dell.VRR)
		assert.Equal(t, Portrait, dell.EffectiveOrientation())
	})

	t.Run("non-zero exit is a query error", func(t *testing.T) {
		runner := &fakeRunner{stderr: []byte("HYPRLAND_INSTANCE_SIGNATURE not set"), err: errors.New("exit status 1")}
		engine := NewEngine(WithRunner(runner))

		_, err := engine.Monitors(ctx)
		var queryErr *QueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Contains(t, queryErr.Stderr, "HYPRLAND_INSTANCE_SIGNATURE")
	})

	t.Run("malformed output is a query error", func(t *testing.T) {
		for _, out := range []string{"", "ok", `{"name":"DP-1"}`, `[{"name":"DP-1","width":"wide"}]`, `[{"width":1920}]`} {
			runner := &fakeRunner{stdout: []byte(out)}
			engine := NewEngine(WithRunner(runner))

			monitors, err := engine.Monitors(ctx)
			var queryErr *QueryError
			assert.ErrorAs(t, err, &queryErr, "output %q", out)
			assert.Nil(t, monitors)
		}
	})
}

func TestMonitorHelpers(t *testing.T) {
	monitors := []Monitor{
		{Name: "A", Width: 1920, Height: 1080},
		{Name: "B", X: 1920, Y: -200, Width: 2560, Height: 1440, Focused: true},
	}

	m, ok := FindMonitor(monitors, "B")
	require.True(t, ok)
	assert.Equal(t, 2560, m.Width)

	_, ok = FindMonitor(monitors, "C")
	assert.False(t, ok)

	assert.Equal(t, "B", FocusedMonitor(monitors).Name)
	assert.Nil(t, FocusedMonitor(nil))

	monitors[1].Focused = false
	assert.Equal(t, "A", FocusedMonitor(monitors).Name)
}

func TestExecRunnerInheritsEnvironment(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc_123")

	stdout, _, err := ExecRunner{}.Run(context.Background(), "env")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(string(stdout), "HYPRLAND_INSTANCE_SIGNATURE=abc_123\n"))
}
