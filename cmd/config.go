package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage hypr-xdisplay configuration",
	Long:  `Manage hypr-xdisplay configuration including recorder defaults and saved monitor arrangements.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		logger.Info("Current Configuration:")
		logger.Infof("Config file: %s\n", config.GetConfigPath())

		logger.Info("[Screenshot]")
		logger.Infof("  Directory: %s", cfg.Screenshot.Dir)
		logger.Infof("  Filename Format: %s", cfg.Screenshot.FilenameFormat)

		logger.Info("\n[Recorder]")
		logger.Infof("  Directory: %s", cfg.Recorder.Dir)
		logger.Infof("  Filename Format: %s", cfg.Recorder.FilenameFormat)
		logger.Infof("  Container: %s", cfg.Recorder.Container)
		logger.Infof("  Codec: %s", cfg.Recorder.Codec)
		logger.Infof("  Framerate: %d", cfg.Recorder.Framerate)
		if cfg.Recorder.Resolution != "" {
			logger.Infof("  Resolution: %s", cfg.Recorder.Resolution)
		}
		logger.Infof("  Hardware Acceleration: %v", cfg.Recorder.HardwareAccel)
		if cfg.Recorder.HardwareAccel {
			logger.Infof("  VAAPI Device: %s", cfg.Recorder.VAAPIDevice)
		}
		logger.Infof("  Audio: %s", cfg.Recorder.AudioSource)
		if cfg.Recorder.AudioDevice != "" {
			logger.Infof("  Audio Device: %s", cfg.Recorder.AudioDevice)
		}

		logger.Info("\n[Casting]")
		logger.Infof("  VNC Port: %d", cfg.Casting.VNCPort)
		logger.Infof("  Browser Port: %d", cfg.Casting.BrowserPort)
		logger.Infof("  Default Target: %s", cfg.Casting.DefaultTarget)

		logger.Info("\n[Daemon]")
		logger.Infof("  Socket: %s", cfg.Daemon.SocketPath)

		logger.Info("\n[Remote]")
		logger.Infof("  Enabled: %v", cfg.Remote.Enabled)
		logger.Infof("  Address: %s", cfg.Remote.Address)
		logger.Infof("  SSH Host Key: %s", cfg.Remote.HostKeyPath)
		logger.Infof("  SSH Authorized Keys: %s", cfg.Remote.AuthorizedKeysPath)

		if len(cfg.Monitors) > 0 {
			logger.Info("\n[Monitors]")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			if _, err := fmt.Fprintln(w, "  Name\tMode\tOrientation\tScaling"); err != nil {
				logger.Errorf("Failed to write header: %v", err)
			}
			for _, m := range cfg.Monitors {
				scaling := "auto"
				if m.Scaling > 0 {
					scaling = fmt.Sprintf("%g", m.Scaling)
				}
				if _, err := fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", m.Name, m.Mode, m.Orientation, scaling); err != nil {
					logger.Errorf("Failed to write monitor: %v", err)
				}
			}
			if err := w.Flush(); err != nil {
				logger.Errorf("Failed to flush writer: %v", err)
			}
		}

		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(); err != nil {
			return err
		}
		logger.Infof("Configuration saved to: %s", config.GetConfigPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check if config already exists
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			logger.Infof("Configuration file already exists at: %s", configPath)
			logger.Info("Use --force to overwrite")

			force, _ := cmd.Flags().GetBool("force")
			if !force {
				return nil
			}
		}

		// Save default configuration
		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		logger.Info("\nYou can now:")
		logger.Info("  - Edit the configuration file directly")
		logger.Info("  - Use 'hypr-xdisplay monitors apply --save' to store a monitor arrangement")
		logger.Info("  - Use 'hypr-xdisplay config show' to view current settings")

		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")

	rootCmd.AddCommand(configCmd)
}
