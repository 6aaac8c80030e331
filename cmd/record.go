package cmd

import (
	"fmt"
	"io"

	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
	"github.com/Kyle6012/hypr-xdisplay/internal/ui"
	"github.com/spf13/cobra"
)

var recordOpts supervisor.RecorderOptions

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Control the screen recorder",
	Long: `Start, pause, resume and stop the screen recorder owned by the daemon.
Encode settings default to the [recorder] section of the config file; flags
override them for one recording.`,
}

var recordStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start recording the screen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := daemonClient().StartRecording(recordOpts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessStyle.Render(ui.IconSuccess+" Recording to "+output))
		return nil
	},
}

var recordStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the recording",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := daemonClient().StopRecording()
		printStatusMessage(cmd.OutOrStdout(), rs.Status)
		return err
	},
}

var recordPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the recording",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := daemonClient().PauseRecording()
		if err != nil {
			return err
		}
		printRecorderStatus(cmd.OutOrStdout(), rs)
		return nil
	},
}

var recordResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused recording",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := daemonClient().ResumeRecording()
		if err != nil {
			return err
		}
		printRecorderStatus(cmd.OutOrStdout(), rs)
		return nil
	},
}

var recordStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the recorder state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := daemonClient().RecorderStatus()
		if err != nil {
			return err
		}
		printRecorderStatus(cmd.OutOrStdout(), rs)
		return nil
	},
}

func init() {
	f := recordStartCmd.Flags()
	f.StringVarP(&recordOpts.Dir, "dir", "d", "", "Output directory")
	f.StringVar(&recordOpts.FilenameFormat, "filename", "", "strftime pattern for the file name")
	f.StringVar(&recordOpts.Container, "container", "", "Container format (mp4, mkv, webm)")
	f.StringVar(&recordOpts.Codec, "codec", "", "Video codec (libx264, libx265, libvpx)")
	f.IntVar(&recordOpts.Framerate, "framerate", 0, "Frames per second")
	f.StringVar(&recordOpts.Resolution, "resolution", "", "Output resolution, e.g. 1920x1080")
	f.BoolVar(&recordOpts.HardwareAccel, "hwaccel", false, "Encode with VAAPI")
	f.StringVar(&recordOpts.VAAPIDevice, "vaapi-device", "", "VAAPI render node")
	f.StringVar(&recordOpts.AudioSource, "audio", "", "Audio source (none, default, device)")
	f.StringVar(&recordOpts.AudioDevice, "audio-device", "", "Audio device when --audio=device")
	f.StringVar(&recordOpts.Bitrate, "bitrate", "", "Video bitrate, e.g. 8M")
	f.StringVar(&recordOpts.ExtraArgs, "extra-args", "", "Extra encoder arguments")

	recordCmd.AddCommand(recordStartCmd, recordStopCmd, recordPauseCmd, recordResumeCmd, recordStatusCmd)
	rootCmd.AddCommand(recordCmd)
}

func printRecorderStatus(w io.Writer, rs supervisor.RecorderStatus) {
	line := ui.FormatSession("Recorder", rs.Status)
	if rs.Running {
		line += "  " + ui.InfoStyle.Render(ui.FormatDuration(rs.Elapsed))
	}
	if rs.Output != "" {
		line += ui.SubtleStyle.Render("  " + rs.Output)
	}
	fmt.Fprintln(w, line)
}
