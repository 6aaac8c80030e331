package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Kyle6012/hypr-xdisplay/internal/discovery"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
	"github.com/Kyle6012/hypr-xdisplay/internal/ui"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Discover wireless displays and Android devices",
}

var devicesWirelessCmd = &cobra.Command{
	Use:   "wireless",
	Short: "List Miracast sinks seen by miracle-sinkctl",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sinks, err := discovery.NewScanner(nil).WirelessDisplays(cmd.Context())
		if err != nil {
			return err
		}
		if len(sinks) == 0 {
			logger.Info("No wireless displays found")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tADDRESS")
		for _, s := range sinks {
			fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Address)
		}
		return w.Flush()
	},
}

var devicesAndroidCmd = &cobra.Command{
	Use:   "android",
	Short: "List Android devices attached to adb",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := discovery.NewScanner(nil).AndroidDevices(cmd.Context())
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			logger.Info("No Android devices attached")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SERIAL\tSTATE")
		for _, d := range devices {
			state := d.State
			if !d.Ready() {
				state = ui.WarningStyle.Render(ui.IconWarning + " " + state)
			}
			fmt.Fprintf(w, "%s\t%s\n", d.Serial, state)
		}
		return w.Flush()
	},
}

var devicesConnectCmd = &cobra.Command{
	Use:   "connect ADDRESS",
	Short: "Connect to a wireless display",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := discovery.NewScanner(nil).ConnectWireless(cmd.Context(), args[0]); err != nil {
			return err
		}
		logger.Infof("Connected to %s", args[0])
		return nil
	},
}

var devicesDisconnectCmd = &cobra.Command{
	Use:   "disconnect ADDRESS",
	Short: "Disconnect from a wireless display",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := discovery.NewScanner(nil).DisconnectWireless(cmd.Context(), args[0]); err != nil {
			return err
		}
		logger.Infof("Disconnected from %s", args[0])
		return nil
	},
}

var devicesMirrorCmd = &cobra.Command{
	Use:   "mirror [SERIAL]",
	Short: "Mirror an Android device with scrcpy",
	Long: `Open a scrcpy window for an Android device. The daemon supervises one
window per serial. Without SERIAL the only ready device is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serial := ""
		if len(args) == 1 {
			serial = args[0]
		} else {
			var err error
			if serial, err = onlyReadyDevice(cmd.Context()); err != nil {
				return err
			}
		}
		statuses, err := daemonClient().StartMirror(serial)
		printMirrorMessage(cmd.OutOrStdout(), statuses, serial)
		return err
	},
}

var devicesUnmirrorCmd = &cobra.Command{
	Use:   "unmirror SERIAL",
	Short: "Close the mirror window of an Android device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, err := daemonClient().StopMirror(args[0])
		printMirrorMessage(cmd.OutOrStdout(), statuses, args[0])
		return err
	},
}

var devicesMirrorsCmd = &cobra.Command{
	Use:   "mirrors",
	Short: "Show Android mirror sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := daemonClient().StatusAll()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(resp.Mirrors) == 0 {
			fmt.Fprintln(out, ui.SubtleStyle.Render("No devices mirrored"))
			return nil
		}
		for _, st := range resp.Mirrors {
			fmt.Fprintln(out, formatSessionLine(st.Target, st))
		}
		return nil
	},
}

func init() {
	devicesCmd.AddCommand(
		devicesWirelessCmd,
		devicesAndroidCmd,
		devicesConnectCmd,
		devicesDisconnectCmd,
		devicesMirrorCmd,
		devicesUnmirrorCmd,
		devicesMirrorsCmd,
	)
	rootCmd.AddCommand(devicesCmd)
}

func onlyReadyDevice(ctx context.Context) (string, error) {
	devices, err := discovery.NewScanner(nil).AndroidDevices(ctx)
	if err != nil {
		return "", err
	}
	return pickReadyDevice(devices)
}

func pickReadyDevice(devices []discovery.AndroidDevice) (string, error) {
	var ready []string
	for _, d := range devices {
		if d.Ready() {
			ready = append(ready, d.Serial)
		}
	}
	switch len(ready) {
	case 0:
		return "", fmt.Errorf("no Android device ready; check adb devices")
	case 1:
		return ready[0], nil
	}
	return "", fmt.Errorf("%d devices attached, pass a serial", len(ready))
}

func printMirrorMessage(w io.Writer, statuses []supervisor.Status, serial string) {
	for _, st := range statuses {
		if st.Target == serial {
			printStatusMessage(w, st)
			return
		}
	}
}
