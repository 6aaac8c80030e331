package cmd

import (
	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	"github.com/Kyle6012/hypr-xdisplay/internal/ipc"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   "hypr-xdisplay",
		Short: "hypr-xdisplay - display, casting and recording control for Hyprland",
		Long: `hypr-xdisplay arranges Hyprland monitors, casts the desktop over AirPlay,
Miracast, VNC or a browser stream, records the screen and mirrors Android
devices. Long-running sessions are owned by the daemon; every other command
talks to it over a local socket.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $XDG_CONFIG_HOME/hypr-xdisplay/hypr-xdisplay.toml)")
	rootCmd.PersistentFlags().String("socket", "", "daemon socket path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("daemon.socket_path", rootCmd.PersistentFlags().Lookup("socket"))
	_ = viper.BindPFlag("logging.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		config.SetConfigPath(configFile)
	}
	if err := config.Init(); err != nil {
		return err
	}

	if level := config.Get().Logging.LogLevel; level != "" {
		logger.SetLevel(level)
	}
	return nil
}

// daemonClient connects to the configured daemon socket
func daemonClient() *ipc.Client {
	return ipc.NewClient(config.ExpandPath(config.Get().Daemon.SocketPath))
}
