package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	"github.com/Kyle6012/hypr-xdisplay/internal/display"
	"github.com/Kyle6012/hypr-xdisplay/internal/ipc"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/Kyle6012/hypr-xdisplay/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the interactive control panel",
	Long: `Open the terminal control panel. Monitors are arranged directly through
Hyprland; casting and recording go through the daemon.`,
	RunE: runPanel,
}

func init() {
	rootCmd.AddCommand(panelCmd)
}

func runPanel(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	// The panel owns the terminal, so logs only go to the file
	var logOut io.Writer
	if cfg.Logging.FileLogging {
		f, err := logger.SetupFileLogging("PANEL")
		if err != nil {
			logger.Warnf("File logging disabled: %v", err)
		} else {
			defer f.Close()
			logOut = f
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	events := make(chan display.Event, 16)
	if path, err := display.EventSocketPath(); err == nil {
		go func() {
			if err := display.Listen(ctx, path, events); err != nil && ctx.Err() == nil {
				logger.Warnf("Hotplug events unavailable: %v", err)
			}
		}()
	} else {
		logger.Debugf("Not listening for hotplug events: %v", err)
	}

	return ui.RunPanel(ctx, newPanel(cfg, events), logOut)
}

// newPanel builds a panel wired to the daemon and the compositor
func newPanel(cfg *config.Config, events <-chan display.Event) *ui.Panel {
	return ui.NewPanel(ui.PanelOptions{
		Supervisor:     ipc.NewClient(config.ExpandPath(cfg.Daemon.SocketPath)),
		Display:        display.NewEngine(),
		Preferences:    monitorPreferences(cfg.Monitors),
		SavePreference: saveMonitorPreference,
		Events:         events,
	})
}

// monitorPreferences converts saved preferences, skipping unparseable entries
func monitorPreferences(saved []config.MonitorPreference) []display.Preference {
	prefs := make([]display.Preference, 0, len(saved))
	for _, s := range saved {
		mode, err := display.ParseMode(s.Mode)
		if err != nil {
			logger.Warn("Ignoring monitor preference", "name", s.Name, "err", err)
			continue
		}
		orientation, err := display.ParseOrientation(s.Orientation)
		if err != nil {
			logger.Warn("Ignoring monitor preference", "name", s.Name, "err", err)
			continue
		}
		prefs = append(prefs, display.Preference{
			Name:        s.Name,
			Mode:        mode,
			Orientation: orientation,
			Scaling:     s.Scaling,
		})
	}
	return prefs
}

func saveMonitorPreference(p display.Preference) error {
	return config.SetMonitorPreference(config.MonitorPreference{
		Name:        p.Name,
		Mode:        string(p.Mode),
		Orientation: string(p.Orientation),
		Scaling:     p.Scaling,
	})
}
