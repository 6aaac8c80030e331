package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anmitsu/go-shlex"
	"github.com/lestrrat-go/strftime"
	"golang.org/x/sys/unix"
)

// RecorderKey is the single slot key of a recorder registry
type RecorderKey struct{}

// RecorderOptions are the encode parameters for one recording
type RecorderOptions struct {
	Dir            string
	FilenameFormat string
	Container      string
	Codec          string
	Framerate      int
	Resolution     string
	HardwareAccel  bool
	VAAPIDevice    string
	AudioSource    string
	AudioDevice    string
	Bitrate        string
	ExtraArgs      string
}

// RecorderStatus extends Status with recording details
type RecorderStatus struct {
	Status
	Elapsed time.Duration `json:"elapsed"`
	Output  string        `json:"output,omitempty"`
}

var resolutionRe = regexp.MustCompile(`^(\d+)[xX:](\d+)$`)

var vaapiCodecs = map[string]string{
	"libx264":    "h264_vaapi",
	"h264":       "h264_vaapi",
	"libx265":    "hevc_vaapi",
	"hevc":       "hevc_vaapi",
	"libvpx-vp9": "vp9_vaapi",
	"vp9":        "vp9_vaapi",
	"libaom-av1": "av1_vaapi",
	"libsvtav1":  "av1_vaapi",
	"av1":        "av1_vaapi",
	"libvpx":     "vp8_vaapi",
	"vp8":        "vp8_vaapi",
}

// OutputPath expands the filename pattern for t and puts it in Dir. The
// container, when set, decides the extension.
func (o RecorderOptions) OutputPath(t time.Time) (string, error) {
	pattern := o.FilenameFormat
	if pattern == "" {
		pattern = "recording_%Y-%m-%d_%H-%M-%S.mp4"
	}
	name, err := strftime.Format(pattern, t)
	if err != nil {
		return "", fmt.Errorf("invalid filename format %q: %w", pattern, err)
	}
	if o.Container != "" {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + "." + strings.TrimPrefix(o.Container, ".")
	}
	return filepath.Join(o.Dir, name), nil
}

// RecorderCommand translates the options into a wf-recorder invocation
// writing to output
func RecorderCommand(o RecorderOptions, output string) (Command, error) {
	args := []string{"-f", output}

	codec := o.Codec
	if o.HardwareAccel {
		if hw, ok := vaapiCodecs[codec]; ok {
			codec = hw
		} else if codec == "" {
			codec = "h264_vaapi"
		}
	}
	if codec != "" {
		args = append(args, "-c", codec)
	}
	if o.HardwareAccel {
		device := o.VAAPIDevice
		if device == "" {
			device = "/dev/dri/renderD128"
		}
		args = append(args, "-d", device)
	}

	if o.Framerate > 0 {
		args = append(args, "-r", strconv.Itoa(o.Framerate))
	}

	if res := strings.TrimSpace(o.Resolution); res != "" && !strings.EqualFold(res, "native") {
		m := resolutionRe.FindStringSubmatch(res)
		if m == nil {
			return Command{}, fmt.Errorf("invalid resolution %q (want WIDTHxHEIGHT)", res)
		}
		args = append(args, "-F", "scale="+m[1]+":"+m[2])
	}

	if o.Bitrate != "" {
		args = append(args, "-p", "bitrate="+o.Bitrate)
	}

	switch strings.ToLower(o.AudioSource) {
	case "", "none", "off":
	case "default":
		if o.AudioDevice != "" {
			args = append(args, "--audio="+o.AudioDevice)
		} else {
			args = append(args, "--audio")
		}
	default:
		device := o.AudioDevice
		if device == "" {
			device = o.AudioSource
		}
		args = append(args, "--audio="+device)
	}

	if o.ExtraArgs != "" {
		extra, err := shlex.Split(o.ExtraArgs, true)
		if err != nil {
			return Command{}, fmt.Errorf("invalid extra args: %w", err)
		}
		args = append(args, extra...)
	}

	return Command{Name: "wf-recorder", Args: args}, nil
}

// Recorder supervises the single screen recording session
type Recorder struct {
	reg *Registry[RecorderKey]
}

// NewRecorder wraps a registry. A nil registry gets a fresh default one.
func NewRecorder(reg *Registry[RecorderKey]) *Recorder {
	if reg == nil {
		reg = NewRegistry[RecorderKey]()
	}
	return &Recorder{reg: reg}
}

// Start begins recording unless a recording is already running, and returns
// the output path of the running recording
func (r *Recorder) Start(ctx context.Context, opts RecorderOptions) (string, error) {
	err := r.reg.Start(ctx, RecorderKey{}, func() (SessionSpec, error) {
		spec := SessionSpec{
			Label:        "Recording",
			StopSignal:   unix.SIGINT,
			Pausable:     true,
			PauseSignal:  unix.SIGUSR1,
			ResumeSignal: unix.SIGUSR2,
		}

		output, err := opts.OutputPath(r.reg.now())
		if err != nil {
			return spec, err
		}
		spec.Target = output

		if opts.Dir != "" {
			if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
				return spec, fmt.Errorf("failed to create recordings directory: %w", err)
			}
		}

		cmd, err := RecorderCommand(opts, output)
		if err != nil {
			return spec, err
		}
		spec.Command = cmd
		return spec, nil
	})
	if err != nil {
		return "", err
	}
	return r.reg.Status(RecorderKey{}).Target, nil
}

// Stop ends the recording
func (r *Recorder) Stop() error {
	return r.reg.Stop(RecorderKey{})
}

// Pause suspends the recording
func (r *Recorder) Pause() error {
	return r.reg.Pause(RecorderKey{})
}

// Resume continues a paused recording
func (r *Recorder) Resume() error {
	return r.reg.Resume(RecorderKey{})
}

// Status reports the recorder state. Elapsed excludes paused time.
func (r *Recorder) Status() RecorderStatus {
	st := RecorderStatus{Status: r.reg.Status(RecorderKey{})}
	st.Output = st.Target
	if d, ok := r.reg.Elapsed(RecorderKey{}); ok {
		st.Elapsed = d
	}
	return st
}

// Shutdown stops a running recording
func (r *Recorder) Shutdown() error {
	return r.reg.StopAll()
}
