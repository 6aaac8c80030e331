package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/Kyle6012/hypr-xdisplay/internal/server"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the session supervisor",
	Long: `Run the hypr-xdisplay daemon. It owns every casting, recording and
Android mirroring process and serves the control socket the other commands
use. With remote.enabled the control panel is also served over SSH.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().Bool("remote", false, "Serve the control panel over SSH")
	daemonCmd.Flags().String("remote-address", "", "Listen address of the SSH panel")

	// Bind flags to viper
	_ = viper.BindPFlag("remote.enabled", daemonCmd.Flags().Lookup("remote"))
	_ = viper.BindPFlag("remote.address", daemonCmd.Flags().Lookup("remote-address"))

	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Ensure config file exists
	if err := ensureConfig(); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	cfg := config.Get()

	if cfg.Logging.FileLogging {
		logFile, err := logger.SetupFileLogging("DAEMON")
		if err != nil {
			logger.Warnf("File logging disabled: %v", err)
		} else {
			defer logFile.Close()
		}
	}

	srv := server.New(cfg, server.WithRemotePanel(func(sess ssh.Session) tea.Model {
		logger.Info("Remote panel session", "user", sess.User())
		return newPanel(config.Get(), nil)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	defer srv.Stop()

	logger.Infof("hypr-xdisplay daemon listening on %s", srv.SocketPath())
	if addr := srv.RemoteAddr(); addr != "" {
		logger.Infof("Remote panel listening on %s", addr)
	}

	config.Watch(func(c *config.Config, e fsnotify.Event) {
		logger.Debug("Configuration reloaded", "file", e.Name)
		srv.UpdateConfig(c)
	})

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, unix.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	logger.Infof("Received %s, stopping every session", sig)
	return nil
}

// ensureConfig writes the default config file on first run
func ensureConfig() error {
	configPath := config.GetConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logger.Infof("No config file found. Creating default config at %s", configPath)

		if err := config.Save(); err != nil {
			return err
		}

		logger.Info("Default configuration created successfully")
	}

	return nil
}
