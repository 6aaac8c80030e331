// Package server implements the hypr-xdisplay daemon, the long-lived process
// that owns every supervised helper
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	"github.com/Kyle6012/hypr-xdisplay/internal/ipc"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/Kyle6012/hypr-xdisplay/internal/remote"
	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
)

// Server owns the supervisors and exposes them over the control socket
type Server struct {
	mu     sync.RWMutex
	config *config.Config

	casting  *supervisor.Casting
	recorder *supervisor.Recorder
	mirrors  *supervisor.Mirrors

	socket *ipc.SocketServer
	remote *remote.Server
	panel  remote.ModelFactory

	cancel context.CancelFunc
}

// Option configures a Server
type Option func(*serverOptions)

type serverOptions struct {
	supervisor []supervisor.Option
	panel      remote.ModelFactory
}

// WithSupervisorOptions passes options to every supervisor registry
func WithSupervisorOptions(opts ...supervisor.Option) Option {
	return func(o *serverOptions) { o.supervisor = append(o.supervisor, opts...) }
}

// WithRemotePanel sets the model served to SSH sessions when the remote
// panel is enabled
func WithRemotePanel(f remote.ModelFactory) Option {
	return func(o *serverOptions) { o.panel = f }
}

// New creates a daemon for cfg
func New(cfg *config.Config, opts ...Option) *Server {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		config:   cfg,
		casting:  supervisor.NewCasting(supervisor.NewRegistry[supervisor.Key](o.supervisor...)),
		recorder: supervisor.NewRecorder(supervisor.NewRegistry[supervisor.RecorderKey](o.supervisor...)),
		mirrors:  supervisor.NewMirrors(supervisor.NewRegistry[string](o.supervisor...)),
		panel:    o.panel,
	}
	s.socket = ipc.NewSocketServer(config.ExpandPath(cfg.Daemon.SocketPath), s)
	return s
}

// Start opens the control socket and, when enabled, the remote panel
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if err := s.socket.Start(); err != nil {
		s.cancel()
		return fmt.Errorf("failed to start control socket: %w", err)
	}
	logger.Info("Daemon listening", "socket", s.socket.SocketPath())

	cfg := s.Config()
	if cfg.Remote.Enabled {
		if err := s.startRemote(ctx, cfg.Remote); err != nil {
			// the local socket keeps working without the remote panel
			logger.Errorf("Remote panel disabled: %v", err)
		}
	}
	return nil
}

func (s *Server) startRemote(ctx context.Context, rc config.RemoteConfig) error {
	if s.panel == nil {
		return errors.New("no panel available")
	}
	rc.HostKeyPath = config.ExpandPath(rc.HostKeyPath)
	rc.AuthorizedKeysPath = config.ExpandPath(rc.AuthorizedKeysPath)

	r := remote.New(rc, s.panel)
	if err := r.Start(ctx); err != nil {
		return err
	}
	s.remote = r
	return nil
}

// Stop closes the listeners and terminates every supervised process
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.remote != nil {
		s.remote.Stop()
	}
	s.socket.Stop()

	if err := errors.Join(s.casting.Shutdown(), s.recorder.Shutdown(), s.mirrors.Shutdown()); err != nil {
		logger.Warnf("Some sessions did not stop cleanly: %v", err)
	}

	logger.Info("Daemon stopped")
}

// SocketPath returns the control socket path
func (s *Server) SocketPath() string {
	return s.socket.SocketPath()
}

// RemoteAddr returns the remote panel address, empty when it is off
func (s *Server) RemoteAddr() string {
	if s.remote == nil {
		return ""
	}
	return s.remote.Addr()
}

// Config returns the configuration in effect
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig swaps in a reloaded configuration. Running sessions keep the
// settings they were started with; the socket path is fixed at startup.
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()

	if cfg.Logging.LogLevel != "" {
		logger.SetLevel(cfg.Logging.LogLevel)
	}
	logger.Info("Configuration reloaded")
}

// StartCast fills in configured defaults and starts a casting session
func (s *Server) StartCast(ctx context.Context, key supervisor.Key, port uint16, extra string) error {
	cfg := s.Config()
	if port == 0 {
		switch key.Protocol {
		case supervisor.VNC:
			port = cfg.Casting.VNCPort
		case supervisor.Browser:
			port = cfg.Casting.BrowserPort
		}
	}
	if strings.TrimSpace(extra) == "" && key.Role == supervisor.Sender &&
		(key.Protocol == supervisor.AirPlay || key.Protocol == supervisor.Miracast) {
		extra = cfg.Casting.DefaultTarget
	}

	logger.Debug("Starting cast", "key", key, "port", port, "target", extra)
	return s.casting.Start(ctx, key, port, extra)
}

// StopCast stops a casting session
func (s *Server) StopCast(key supervisor.Key) error {
	return s.casting.Stop(key)
}

// CastStatus returns the status of one casting session
func (s *Server) CastStatus(key supervisor.Key) supervisor.Status {
	return s.casting.Status(key)
}

// CastStatuses returns the status of every casting session
func (s *Server) CastStatuses() []supervisor.KeyStatus {
	return s.casting.Statuses()
}

// StartRecording starts the recorder with the configured encode settings,
// overridden by any field set in opts
func (s *Server) StartRecording(ctx context.Context, opts *supervisor.RecorderOptions) (string, error) {
	merged := RecorderOptions(s.Config().Recorder, opts)
	return s.recorder.Start(ctx, merged)
}

// StopRecording ends the recording
func (s *Server) StopRecording() error { return s.recorder.Stop() }

// PauseRecording pauses the recording
func (s *Server) PauseRecording() error { return s.recorder.Pause() }

// ResumeRecording resumes a paused recording
func (s *Server) ResumeRecording() error { return s.recorder.Resume() }

// RecorderStatus reports the recorder state
func (s *Server) RecorderStatus() supervisor.RecorderStatus { return s.recorder.Status() }

// StartMirror opens a mirror window for an Android device
func (s *Server) StartMirror(ctx context.Context, serial string) error {
	return s.mirrors.Start(ctx, serial)
}

// StopMirror closes a mirror window
func (s *Server) StopMirror(serial string) error { return s.mirrors.Stop(serial) }

// MirrorStatuses lists every mirrored device
func (s *Server) MirrorStatuses() []supervisor.Status { return s.mirrors.Statuses() }

// RecorderOptions converts the recorder config section to recorder options
// and overlays every non-zero field of override
func RecorderOptions(rc config.RecorderConfig, override *supervisor.RecorderOptions) supervisor.RecorderOptions {
	o := supervisor.RecorderOptions{
		Dir:            config.ExpandPath(rc.Dir),
		FilenameFormat: rc.FilenameFormat,
		Container:      rc.Container,
		Codec:          rc.Codec,
		Framerate:      rc.Framerate,
		Resolution:     rc.Resolution,
		HardwareAccel:  rc.HardwareAccel,
		VAAPIDevice:    rc.VAAPIDevice,
		AudioSource:    rc.AudioSource,
		AudioDevice:    rc.AudioDevice,
		Bitrate:        rc.Bitrate,
		ExtraArgs:      rc.ExtraArgs,
	}
	if override == nil {
		return o
	}

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&o.Dir, config.ExpandPath(override.Dir))
	setString(&o.FilenameFormat, override.FilenameFormat)
	setString(&o.Container, override.Container)
	setString(&o.Codec, override.Codec)
	setString(&o.Resolution, override.Resolution)
	setString(&o.VAAPIDevice, override.VAAPIDevice)
	setString(&o.AudioSource, override.AudioSource)
	setString(&o.AudioDevice, override.AudioDevice)
	setString(&o.Bitrate, override.Bitrate)
	setString(&o.ExtraArgs, override.ExtraArgs)
	if override.Framerate > 0 {
		o.Framerate = override.Framerate
	}
	if override.HardwareAccel {
		o.HardwareAccel = true
	}
	return o
}
