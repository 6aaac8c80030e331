package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	"github.com/Kyle6012/hypr-xdisplay/internal/discovery"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
	"github.com/Kyle6012/hypr-xdisplay/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	castPort   uint16
	castTarget string
)

var castCmd = &cobra.Command{
	Use:   "cast",
	Short: "Start, stop and inspect casting sessions",
	Long: `Manage casting sessions supervised by the daemon. Each protocol
(airplay, miracast, vnc, browser) has a receiver and a sender slot.`,
}

var castStartCmd = &cobra.Command{
	Use:   "start PROTOCOL ROLE",
	Short: "Start a casting session",
	Example: `  hypr-xdisplay cast start vnc receiver --port 5901
  hypr-xdisplay cast start airplay sender --target 192.168.1.40`,
	Args: cobra.ExactArgs(2),
	RunE: runCastStart,
}

var castStopCmd = &cobra.Command{
	Use:   "stop PROTOCOL ROLE",
	Short: "Stop a casting session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseCastKey(args)
		if err != nil {
			return err
		}
		st, err := daemonClient().StopCast(key)
		printStatusMessage(cmd.OutOrStdout(), st)
		return err
	},
}

var castStatusCmd = &cobra.Command{
	Use:   "status [PROTOCOL ROLE]",
	Short: "Show casting sessions",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
		}
		return nil
	},
	RunE: runCastStatus,
}

var castTargetsCmd = &cobra.Command{
	Use:   "targets PROTOCOL",
	Short: "List where a sender for PROTOCOL can stream to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := supervisor.ParseProtocol(args[0])
		if err != nil {
			return err
		}
		targets, err := discovery.NewScanner(nil).SenderTargets(cmd.Context(), p)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			logger.Infof("No %s targets found", p)
			return nil
		}
		out := cmd.OutOrStdout()
		for _, t := range targets {
			fmt.Fprintf(out, "%-40s %s\n", t.Name, ui.SubtleStyle.Render(t.Address))
		}
		return nil
	},
}

func init() {
	castStartCmd.Flags().Uint16VarP(&castPort, "port", "p", 0, "Port to listen on or stream to (0 uses the configured default)")
	castStartCmd.Flags().StringVarP(&castTarget, "target", "t", "", "Destination host for AirPlay and Miracast senders")

	castCmd.AddCommand(castStartCmd, castStopCmd, castStatusCmd, castTargetsCmd)
	rootCmd.AddCommand(castCmd)
}

func runCastStart(cmd *cobra.Command, args []string) error {
	key, err := parseCastKey(args)
	if err != nil {
		return err
	}

	target := castTarget
	if needsTarget(key, target) {
		t, err := pickSenderTarget(cmd.Context(), key.Protocol)
		switch {
		case errors.Is(err, errNotInteractive):
			// the daemon reports the missing destination
		case err != nil:
			return err
		default:
			target = t.Address
		}
	}

	st, err := daemonClient().StartCast(key, castPort, target)
	printStatusMessage(cmd.OutOrStdout(), st)
	return err
}

// needsTarget reports whether a network sender was started without a
// destination and the config has none either
func needsTarget(key supervisor.Key, target string) bool {
	if key.Role != supervisor.Sender || target != "" {
		return false
	}
	switch key.Protocol {
	case supervisor.AirPlay, supervisor.Miracast:
		return config.Get().Casting.DefaultTarget == ""
	}
	return false
}

var errNotInteractive = errors.New("stdin is not a terminal")

func pickSenderTarget(ctx context.Context, p supervisor.Protocol) (discovery.Target, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return discovery.Target{}, errNotInteractive
	}
	targets, err := discovery.NewScanner(nil).SenderTargets(ctx, p)
	if err != nil {
		return discovery.Target{}, fmt.Errorf("failed to discover %s targets: %w", p, err)
	}
	return ui.PickTarget(fmt.Sprintf("Select a %s target", p), targets)
}

func runCastStatus(cmd *cobra.Command, args []string) error {
	client := daemonClient()
	out := cmd.OutOrStdout()

	if len(args) == 2 {
		key, err := parseCastKey(args)
		if err != nil {
			return err
		}
		st, err := client.CastStatus(key)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, formatSessionLine(key.String(), st))
		return nil
	}

	resp, err := client.StatusAll()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, ui.HeaderStyle.Render("Casting"))
	for _, ks := range resp.Casts {
		fmt.Fprintln(out, formatSessionLine(ks.Key.String(), ks.Status))
	}
	return nil
}

func parseCastKey(args []string) (supervisor.Key, error) {
	p, err := supervisor.ParseProtocol(args[0])
	if err != nil {
		return supervisor.Key{}, err
	}
	r, err := supervisor.ParseRole(args[1])
	if err != nil {
		return supervisor.Key{}, err
	}
	return supervisor.Key{Protocol: p, Role: r}, nil
}

// formatSessionLine adds how long ago a running session started
func formatSessionLine(label string, st supervisor.Status) string {
	line := ui.FormatSession(label, st)
	if st.Running && !st.StartedAt.IsZero() {
		line += ui.MutedStyle.Render("  since " + humanize.Time(st.StartedAt))
	}
	return line
}

func printStatusMessage(w io.Writer, st supervisor.Status) {
	if msg := ui.FormatMessage(st); msg != "" {
		fmt.Fprintln(w, msg)
	}
}
