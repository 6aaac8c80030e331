package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	"github.com/Kyle6012/hypr-xdisplay/internal/display"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/Kyle6012/hypr-xdisplay/internal/ui"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool

	applyModes        []string
	applyScales       []string
	applyOrientations []string
	applyDryRun       bool
	applySave         bool
)

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "Show and arrange monitors",
	Long: `Query Hyprland for its outputs and arrange them. Extended monitors are
placed left to right in list order; Copy monitors mirror the first Extended
monitor listed before them.`,
}

var monitorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitors with their saved arrangement",
	Args:  cobra.NoArgs,
	RunE:  runMonitorsList,
}

var monitorsApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the saved arrangement, optionally overriding it",
	Example: `  hypr-xdisplay monitors apply
  hypr-xdisplay monitors apply --mode HDMI-A-1=copy --dry-run
  hypr-xdisplay monitors apply --scale DP-1=1.5 --orientation DP-2=portrait --save`,
	Args: cobra.NoArgs,
	RunE: runMonitorsApply,
}

var monitorsBrightnessCmd = &cobra.Command{
	Use:   "brightness NAME VALUE",
	Short: "Set the brightness of a physical monitor (0-100)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parsePercent(args[1])
		if err != nil {
			return err
		}
		engine, m, err := lookupMonitor(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := engine.SetBrightness(cmd.Context(), m, value); err != nil {
			return err
		}
		logger.Infof("%s brightness set to %d%%", m.Name, int(value*100+0.5))
		return nil
	},
}

var monitorsRotateCmd = &cobra.Command{
	Use:   "rotate NAME ORIENTATION",
	Short: "Rotate a monitor (landscape or portrait)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orientation, err := display.ParseOrientation(args[1])
		if err != nil {
			return err
		}
		engine, m, err := lookupMonitor(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := engine.SetRotation(cmd.Context(), m, orientation); err != nil {
			return err
		}
		logger.Infof("%s rotated to %s", m.Name, orientation)
		return nil
	},
}

func init() {
	monitorsListCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	f := monitorsApplyCmd.Flags()
	f.StringSliceVar(&applyModes, "mode", nil, "Set a monitor mode, NAME=extended|copy")
	f.StringSliceVar(&applyScales, "scale", nil, "Set a monitor scale, NAME=FACTOR")
	f.StringSliceVar(&applyOrientations, "orientation", nil, "Set a monitor orientation, NAME=landscape|portrait")
	f.BoolVarP(&applyDryRun, "dry-run", "n", false, "Print the layout and the hyprctl batch without applying")
	f.BoolVar(&applySave, "save", false, "Save the resulting arrangement to the config file")

	monitorsCmd.AddCommand(monitorsListCmd, monitorsApplyCmd, monitorsBrightnessCmd, monitorsRotateCmd)
	rootCmd.AddCommand(monitorsCmd)
}

func runMonitorsList(cmd *cobra.Command, args []string) error {
	monitors, err := display.NewEngine().Monitors(cmd.Context())
	if err != nil {
		return err
	}
	display.ApplyPreferences(monitors, monitorPreferences(config.Get().Monitors))

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(monitors)
	}

	printMonitors(out, monitors)
	return nil
}

const descriptionWidth = 40

func printMonitors(out io.Writer, monitors []display.Monitor) {
	if len(monitors) == 0 {
		fmt.Fprintln(out, ui.SubtleStyle.Render("No monitors reported by Hyprland"))
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRESOLUTION\tPOSITION\tSCALE\tMODE\tORIENTATION\tDESCRIPTION")
	for i := range monitors {
		m := &monitors[i]
		name := m.Name
		if m.Focused {
			name += "*"
		}
		fmt.Fprintf(w, "%s\t%dx%d@%s\t%d,%d\t%s\t%s\t%s\t%s\n",
			name, m.Width, m.Height, strconv.FormatFloat(m.RefreshRate, 'f', 2, 64),
			m.X, m.Y, strconv.FormatFloat(m.EffectiveScale(), 'f', -1, 64),
			m.EffectiveMode(), m.EffectiveOrientation(), runewidth.Truncate(m.Description, descriptionWidth, "…"))
	}
	w.Flush()
}

func runMonitorsApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	engine := display.NewEngine()

	monitors, err := engine.Monitors(ctx)
	if err != nil {
		return err
	}
	display.ApplyPreferences(monitors, monitorPreferences(config.Get().Monitors))

	if err := applyOverrides(monitors); err != nil {
		return err
	}

	if applyDryRun {
		printPlan(cmd.OutOrStdout(), display.Plan(monitors))
		return nil
	}

	if err := engine.ApplyLayout(ctx, monitors); err != nil {
		return err
	}
	for i := range monitors {
		m := &monitors[i]
		if orientation := m.EffectiveOrientation(); orientation.Transform() != m.Transform {
			if err := engine.SetRotation(ctx, m, orientation); err != nil {
				return err
			}
		}
	}

	if applySave {
		for i := range monitors {
			if err := saveMonitorPreference(display.PreferenceOf(&monitors[i])); err != nil {
				return fmt.Errorf("failed to save preferences: %w", err)
			}
		}
		logger.Infof("Saved arrangement to %s", config.GetConfigPath())
	}
	return nil
}

// applyOverrides sets the desired fields given on the command line
func applyOverrides(monitors []display.Monitor) error {
	for _, a := range applyModes {
		m, value, err := assignment(monitors, a)
		if err != nil {
			return err
		}
		if m.Mode, err = display.ParseMode(value); err != nil {
			return err
		}
	}
	for _, a := range applyScales {
		m, value, err := assignment(monitors, a)
		if err != nil {
			return err
		}
		scale, err := strconv.ParseFloat(value, 64)
		if err != nil || scale <= 0 {
			return fmt.Errorf("invalid scale %q for %s", value, m.Name)
		}
		m.Scaling = &scale
	}
	for _, a := range applyOrientations {
		m, value, err := assignment(monitors, a)
		if err != nil {
			return err
		}
		if m.Orientation, err = display.ParseOrientation(value); err != nil {
			return err
		}
	}
	return nil
}

// assignment resolves a NAME=VALUE flag to its monitor
func assignment(monitors []display.Monitor, s string) (*display.Monitor, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return nil, "", fmt.Errorf("expected NAME=VALUE, got %q", s)
	}
	m, found := display.FindMonitor(monitors, name)
	if !found {
		return nil, "", fmt.Errorf("monitor %q not found", name)
	}
	return m, strings.TrimSpace(value), nil
}

func printPlan(out io.Writer, placements []display.Placement) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODE\tGEOMETRY\tPOSITION\tSCALE\tMIRRORS")
	for _, p := range placements {
		mirror := "-"
		if p.MirrorOf != "" {
			mirror = ui.IconMirror + " " + p.MirrorOf
		}
		fmt.Fprintf(w, "%s\t%s\t%dx%d@%s\t%d,%d\t%s\t%s\n",
			p.Name, p.Mode, p.Width, p.Height, strconv.FormatFloat(p.RefreshRate, 'f', 2, 64),
			p.X, p.Y, strconv.FormatFloat(p.Scale, 'f', -1, 64), mirror)
	}
	w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.SubtleStyle.Render("hyprctl --batch "+strconv.Quote(display.BatchCommand(placements))))
}

// lookupMonitor queries the compositor for one output by name
func lookupMonitor(ctx context.Context, name string) (*display.Engine, *display.Monitor, error) {
	engine := display.NewEngine()
	monitors, err := engine.Monitors(ctx)
	if err != nil {
		return nil, nil, err
	}
	m, ok := display.FindMonitor(monitors, name)
	if !ok {
		return nil, nil, fmt.Errorf("monitor %q not found", name)
	}
	return engine, m, nil
}

// parsePercent accepts 0-100 or a 0.0-1.0 fraction
func parsePercent(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	if v > 1 {
		v /= 100
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("value %s out of range (0-100)", s)
	}
	return v, nil
}
