package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		viper.Reset()
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		SetConfigPath("")

		oldWd, _ := os.Getwd()
		require.NoError(t, os.Chdir(t.TempDir()))
		defer os.Chdir(oldWd)

		require.NoError(t, Init())

		c := Get()
		require.NotNil(t, c)
		assert.Equal(t, "libx264", c.Recorder.Codec)
		assert.Equal(t, 30, c.Recorder.Framerate)
		assert.Equal(t, uint16(5900), c.Casting.VNCPort)
		assert.Equal(t, uint16(8082), c.Casting.BrowserPort)
		assert.False(t, c.Remote.Enabled)
	})

	t.Run("reads values from an explicit file", func(t *testing.T) {
		viper.Reset()
		dir := t.TempDir()
		path := filepath.Join(dir, "custom.toml")
		content := `[recorder]
codec = "vp9"
framerate = 60
hardware_accel = true

[[monitors]]
name = "HDMI-A-1"
mode = "Copy"
orientation = "Portrait"
scaling = 1.25
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		SetConfigPath(path)
		defer SetConfigPath("")

		require.NoError(t, Init())

		c := Get()
		assert.Equal(t, "vp9", c.Recorder.Codec)
		assert.Equal(t, 60, c.Recorder.Framerate)
		assert.True(t, c.Recorder.HardwareAccel)
		// untouched keys keep their defaults
		assert.Equal(t, "mp4", c.Recorder.Container)

		pref, ok := MonitorPreferenceFor("HDMI-A-1")
		require.True(t, ok)
		assert.Equal(t, "Copy", pref.Mode)
		assert.Equal(t, "Portrait", pref.Orientation)
		assert.InDelta(t, 1.25, pref.Scaling, 0.0001)

		_, ok = MonitorPreferenceFor("DP-1")
		assert.False(t, ok)
	})

	t.Run("rejects invalid TOML", func(t *testing.T) {
		viper.Reset()
		path := filepath.Join(t.TempDir(), "broken.toml")
		require.NoError(t, os.WriteFile(path, []byte("[recorder\ncodec = 1"), 0644))

		SetConfigPath(path)
		defer SetConfigPath("")

		assert.Error(t, Init())
	})
}

func TestGetConfigPath(t *testing.T) {
	viper.Reset()
	SetConfigPath("")

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	assert.Equal(t, filepath.Join(xdg, "hypr-xdisplay", "hypr-xdisplay.toml"), GetConfigPath())

	SetConfigPath("/tmp/override.toml")
	defer SetConfigPath("")
	assert.Equal(t, "/tmp/override.toml", GetConfigPath())
}

func TestSetMonitorPreference(t *testing.T) {
	viper.Reset()
	path := filepath.Join(t.TempDir(), "prefs.toml")
	SetConfigPath(path)
	defer SetConfigPath("")

	Set(&Config{})
	defer Set(nil)

	require.NoError(t, SetMonitorPreference(MonitorPreference{Name: "DP-1", Mode: "Extended"}))
	require.NoError(t, SetMonitorPreference(MonitorPreference{Name: "DP-1", Mode: "Copy"}))

	assert.Len(t, Get().Monitors, 1)
	pref, ok := MonitorPreferenceFor("DP-1")
	require.True(t, ok)
	assert.Equal(t, "Copy", pref.Mode)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "Videos"), ExpandPath("~/Videos"))
	assert.Equal(t, "/var/tmp/x", ExpandPath("/var/tmp/x"))
	assert.Equal(t, "~user/x", ExpandPath("~user/x"))
}
