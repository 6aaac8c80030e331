// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Recorder   RecorderConfig   `mapstructure:"recorder"`
	Casting    CastingConfig    `mapstructure:"casting"`
	Daemon     DaemonConfig     `mapstructure:"daemon"`
	Remote     RemoteConfig     `mapstructure:"remote"`
	Logging    LoggingConfig    `mapstructure:"logging"`

	// Saved per-output preferences applied by "monitors apply"
	Monitors []MonitorPreference `mapstructure:"monitors"`
}

// ScreenshotConfig controls where screenshots land
type ScreenshotConfig struct {
	Dir            string `mapstructure:"dir"`
	FilenameFormat string `mapstructure:"filename_format"` // strftime pattern
}

// RecorderConfig holds the encode parameters handed to the recorder at start
type RecorderConfig struct {
	Dir            string `mapstructure:"dir"`
	FilenameFormat string `mapstructure:"filename_format"` // strftime pattern
	Container      string `mapstructure:"container"`       // mp4, mkv, webm
	Codec          string `mapstructure:"codec"`
	Framerate      int    `mapstructure:"framerate"`
	Resolution     string `mapstructure:"resolution"` // WIDTHxHEIGHT, empty keeps native
	HardwareAccel  bool   `mapstructure:"hardware_accel"`
	VAAPIDevice    string `mapstructure:"vaapi_device"`
	AudioSource    string `mapstructure:"audio_source"` // none, default, device
	AudioDevice    string `mapstructure:"audio_device"`
	Bitrate        string `mapstructure:"bitrate"`
	ExtraArgs      string `mapstructure:"extra_args"`
}

// CastingConfig holds default ports and targets for casting sessions
type CastingConfig struct {
	VNCPort       uint16 `mapstructure:"vnc_port"`
	BrowserPort   uint16 `mapstructure:"browser_port"`
	DefaultTarget string `mapstructure:"default_target"`
}

// DaemonConfig contains settings for the long-running supervisor process
type DaemonConfig struct {
	SocketPath string `mapstructure:"socket_path"`
}

// RemoteConfig controls the optional SSH control panel
type RemoteConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Address            string `mapstructure:"address"`
	HostKeyPath        string `mapstructure:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	FileLogging bool   `mapstructure:"file_logging"` // Enable/disable file logging
	LogLevel    string `mapstructure:"log_level"`    // Override LOG_LEVEL env var
}

// MonitorPreference stores the desired arrangement of one output
type MonitorPreference struct {
	Name        string  `mapstructure:"name"`
	Mode        string  `mapstructure:"mode"`        // Extended or Copy
	Orientation string  `mapstructure:"orientation"` // Landscape or Portrait
	Scaling     float64 `mapstructure:"scaling"`     // 0 keeps the compositor scale
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Screenshot: ScreenshotConfig{
			Dir:            userDir("XDG_PICTURES_DIR", "Pictures"),
			FilenameFormat: "screenshot_%Y-%m-%d_%H-%M-%S.png",
		},
		Recorder: RecorderConfig{
			Dir:            userDir("XDG_VIDEOS_DIR", "Videos"),
			FilenameFormat: "recording_%Y-%m-%d_%H-%M-%S.mp4",
			Container:      "mp4",
			Codec:          "libx264",
			Framerate:      30,
			VAAPIDevice:    "/dev/dri/renderD128",
			AudioSource:    "default",
		},
		Casting: CastingConfig{
			VNCPort:     5900,
			BrowserPort: 8082,
		},
		Daemon: DaemonConfig{
			SocketPath: defaultSocketPath(),
		},
		Remote: RemoteConfig{
			Enabled:            false,
			Address:            "127.0.0.1:23235",
			HostKeyPath:        filepath.Join(configDir(), "ssh_host_ed25519"),
			AuthorizedKeysPath: filepath.Join(homeDir(), ".ssh", "authorized_keys"),
		},
		Logging: LoggingConfig{
			FileLogging: true,
			LogLevel:    "",
		},
		Monitors: []MonitorPreference{},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("hypr-xdisplay")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	cfg = loaded

	return nil
}

func setDefaults() {
	d := DefaultConfig

	viper.SetDefault("screenshot.dir", d.Screenshot.Dir)
	viper.SetDefault("screenshot.filename_format", d.Screenshot.FilenameFormat)

	viper.SetDefault("recorder.dir", d.Recorder.Dir)
	viper.SetDefault("recorder.filename_format", d.Recorder.FilenameFormat)
	viper.SetDefault("recorder.container", d.Recorder.Container)
	viper.SetDefault("recorder.codec", d.Recorder.Codec)
	viper.SetDefault("recorder.framerate", d.Recorder.Framerate)
	viper.SetDefault("recorder.resolution", d.Recorder.Resolution)
	viper.SetDefault("recorder.hardware_accel", d.Recorder.HardwareAccel)
	viper.SetDefault("recorder.vaapi_device", d.Recorder.VAAPIDevice)
	viper.SetDefault("recorder.audio_source", d.Recorder.AudioSource)
	viper.SetDefault("recorder.audio_device", d.Recorder.AudioDevice)
	viper.SetDefault("recorder.bitrate", d.Recorder.Bitrate)
	viper.SetDefault("recorder.extra_args", d.Recorder.ExtraArgs)

	viper.SetDefault("casting.vnc_port", d.Casting.VNCPort)
	viper.SetDefault("casting.browser_port", d.Casting.BrowserPort)
	viper.SetDefault("casting.default_target", d.Casting.DefaultTarget)

	viper.SetDefault("daemon.socket_path", d.Daemon.SocketPath)

	viper.SetDefault("remote.enabled", d.Remote.Enabled)
	viper.SetDefault("remote.address", d.Remote.Address)
	viper.SetDefault("remote.host_key_path", d.Remote.HostKeyPath)
	viper.SetDefault("remote.authorized_keys_path", d.Remote.AuthorizedKeysPath)

	viper.SetDefault("logging.file_logging", d.Logging.FileLogging)
	viper.SetDefault("logging.log_level", d.Logging.LogLevel)

	viper.SetDefault("monitors", d.Monitors)
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Watch reloads the configuration whenever the file changes on disk and
// hands the new value to onChange. Reload errors keep the previous config.
func Watch(onChange func(*Config, fsnotify.Event)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		reloaded := &Config{}
		if err := viper.Unmarshal(reloaded); err != nil {
			return
		}
		cfg = reloaded
		if onChange != nil {
			onChange(reloaded, e)
		}
	})
	viper.WatchConfig()
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	return filepath.Join(configDir(), "hypr-xdisplay.toml")
}

// MonitorPreferenceFor returns the saved preference for an output, if any
func MonitorPreferenceFor(name string) (MonitorPreference, bool) {
	for _, p := range Get().Monitors {
		if p.Name == name {
			return p, true
		}
	}
	return MonitorPreference{}, false
}

// SetMonitorPreference adds or replaces the preference for one output and saves
func SetMonitorPreference(pref MonitorPreference) error {
	c := Get()

	replaced := false
	for i, p := range c.Monitors {
		if p.Name == pref.Name {
			c.Monitors[i] = pref
			replaced = true
			break
		}
	}
	if !replaced {
		c.Monitors = append(c.Monitors, pref)
	}

	viper.Set("monitors", monitorsToMaps(c.Monitors))
	return Save()
}

// monitorsToMaps keeps the written TOML keys in snake_case
func monitorsToMaps(prefs []MonitorPreference) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(prefs))
	for _, p := range prefs {
		out = append(out, map[string]interface{}{
			"name":        p.Name,
			"mode":        p.Mode,
			"orientation": p.Orientation,
			"scaling":     p.Scaling,
		})
	}
	return out
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hypr-xdisplay")
	}
	return filepath.Join(homeDir(), ".config", "hypr-xdisplay")
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.TempDir()
}

// userDir resolves an xdg user dir from the environment, falling back to
// ~/<fallback> and finally /tmp like the original settings did
func userDir(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, fallback)
}

func defaultSocketPath() string {
	name := "hypr-xdisplay.sock"
	if u, err := user.Current(); err == nil {
		name = fmt.Sprintf("hypr-xdisplay-%s.sock", strings.ReplaceAll(u.Username, string(os.PathSeparator), "_"))
	}
	return filepath.Join(os.TempDir(), name)
}

// ExpandPath expands a leading ~ to the home directory. Under sudo the
// invoking user's home is used.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return filepath.Join(u.HomeDir, path[2:])
		}
	}
	return filepath.Join(homeDir(), path[2:])
}
