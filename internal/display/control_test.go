package display

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetBrightness(t *testing.T) {
	ctx := context.Background()

	t.Run("non-physical outputs are untouched", func(t *testing.T) {
		for _, dt := range []DeviceType{DeviceWireless, DeviceAndroid, DeviceAirPlay, DeviceVNC, ""} {
			runner := &fakeRunner{}
			engine := NewEngine(WithRunner(runner))

			m := &Monitor{Name: "cast", Serial: "X", DeviceType: dt}
			require.NoError(t, engine.SetBrightness(ctx, m, 0.5))
			assert.Empty(t, runner.Calls(), "device type %q", dt)
		}
	})

	t.Run("physical monitor gets a ddc command by serial", func(t *testing.T) {
		runner := &fakeRunner{}
		engine := NewEngine(WithRunner(runner))

		m := &Monitor{Name: "DP-3", Serial: "ABC1234", DeviceType: DevicePhysical}
		require.NoError(t, engine.SetBrightness(ctx, m, 0.756))

		calls := runner.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "ddcutil", calls[0].name)
		assert.Equal(t, []string{"setvcp", "10", "76", "--sn", "ABC1234"}, calls[0].args)
		require.NotNil(t, m.Brightness)
		assert.Equal(t, 0.756, *m.Brightness)
	})

	t.Run("values are clamped", func(t *testing.T) {
		runner := &fakeRunner{}
		engine := NewEngine(WithRunner(runner))

		m := &Monitor{Name: "DP-3", Serial: "S", DeviceType: DevicePhysical}
		require.NoError(t, engine.SetBrightness(ctx, m, 1.7))
		require.NoError(t, engine.SetBrightness(ctx, m, -3))

		calls := runner.Calls()
		assert.Equal(t, "100", calls[0].args[2])
		assert.Equal(t, "0", calls[1].args[2])
	})

	t.Run("failure propagates as control error", func(t *testing.T) {
		runner := &fakeRunner{stderr: []byte("Display not found"), err: errors.New("exit status 1")}
		engine := NewEngine(WithRunner(runner))

		m := &Monitor{Name: "DP-3", Serial: "S", DeviceType: DevicePhysical}
		err := engine.SetBrightness(ctx, m, 0.5)

		var ctrlErr *ControlError
		require.ErrorAs(t, err, &ctrlErr)
		assert.Equal(t, "brightness", ctrlErr.Op)
		assert.Equal(t, "Display not found", ctrlErr.Stderr)
		assert.Len(t, runner.Calls(), 1)
		assert.Nil(t, m.Brightness)
	})

	t.Run("missing serial", func(t *testing.T) {
		runner := &fakeRunner{}
		engine := NewEngine(WithRunner(runner))

		err := engine.SetBrightness(ctx, &Monitor{Name: "eDP-1", DeviceType: DevicePhysical}, 0.5)
		var ctrlErr *ControlError
		assert.ErrorAs(t, err, &ctrlErr)
		assert.Empty(t, runner.Calls())
	})
}

func TestSetRotation(t *testing.T) {
	ctx := context.Background()

	t.Run("non-physical outputs are untouched", func(t *testing.T) {
		runner := &fakeRunner{}
		engine := NewEngine(WithRunner(runner))

		require.NoError(t, engine.SetRotation(ctx, &Monitor{Name: "vnc", DeviceType: DeviceVNC}, Portrait))
		assert.Empty(t, runner.Calls())
	})

	t.Run("portrait sends transform 1", func(t *testing.T) {
		runner := &fakeRunner{}
		engine := NewEngine(WithRunner(runner), WithHyprctl("/usr/bin/hyprctl"))

		m := &Monitor{Name: "DP-3", DeviceType: DevicePhysical}
		require.NoError(t, engine.SetRotation(ctx, m, Portrait))

		calls := runner.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "/usr/bin/hyprctl", calls[0].name)
		assert.Equal(t, []string{"keyword", "monitor", "DP-3 transform 1"}, calls[0].args)
		assert.Equal(t, 1, m.Transform)
		assert.Equal(t, Portrait, m.Orientation)
	})

	t.Run("landscape sends transform 0", func(t *testing.T) {
		runner := &fakeRunner{}
		engine := NewEngine(WithRunner(runner))

		m := &Monitor{Name: "DP-3", Transform: 1, DeviceType: DevicePhysical}
		require.NoError(t, engine.SetRotation(ctx, m, Landscape))
		assert.Equal(t, "DP-3 transform 0", runner.Calls()[0].args[2])
		assert.Equal(t, 0, m.Transform)
	})

	t.Run("compositor failure", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 1")}
		engine := NewEngine(WithRunner(runner))

		err := engine.SetRotation(ctx, &Monitor{Name: "DP-3", DeviceType: DevicePhysical}, Portrait)
		var ctrlErr *ControlError
		require.ErrorAs(t, err, &ctrlErr)
		assert.Equal(t, "rotation", ctrlErr.Op)
	})
}
