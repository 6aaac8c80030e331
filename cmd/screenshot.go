package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Kyle6012/hypr-xdisplay/internal/capture"
	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/Kyle6012/hypr-xdisplay/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture the screen, a region or the focused window",
	Long: `Capture a PNG with grim. Files are named from the strftime pattern in
screenshot.filename_format and saved to screenshot.dir.`,
}

func init() {
	screenshotCmd.PersistentFlags().String("dir", "", "Directory to save screenshots in")
	_ = viper.BindPFlag("screenshot.dir", screenshotCmd.PersistentFlags().Lookup("dir"))

	screenshotCmd.AddCommand(
		screenshotSubcommand("full", "Capture every output", (*capture.Capturer).Fullscreen),
		screenshotSubcommand("region", "Select a region with slurp and capture it", (*capture.Capturer).Region),
		screenshotSubcommand("window", "Capture the focused window", (*capture.Capturer).FocusedWindow),
	)
	rootCmd.AddCommand(screenshotCmd)
}

func screenshotSubcommand(use, short string, shoot func(*capture.Capturer, context.Context) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := config.Get().Screenshot
			c := capture.New(config.ExpandPath(sc.Dir), sc.FilenameFormat)

			path, err := shoot(c, cmd.Context())
			if errors.Is(err, capture.ErrSelectionCancelled) {
				logger.Info("Screenshot cancelled")
				return nil
			}
			if err != nil {
				return err
			}

			line := ui.SuccessStyle.Render(ui.IconSuccess + " Saved " + path)
			if fi, err := os.Stat(path); err == nil {
				line += ui.SubtleStyle.Render(fmt.Sprintf(" (%s)", humanize.Bytes(uint64(fi.Size()))))
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
}
