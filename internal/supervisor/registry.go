package supervisor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"golang.org/x/sys/unix"
)

const (
	startFailedHint = "Check if required dependencies are installed and not already running."
	stopFailedHint  = "Process may not have been running."

	defaultKillTimeout = 5 * time.Second
)

// Status is the last known state of one session
type Status struct {
	Running   bool      `json:"running"`
	Paused    bool      `json:"paused,omitempty"`
	Port      uint16    `json:"port,omitempty"`
	Target    string    `json:"target,omitempty"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// SessionSpec describes how to run and control one session
type SessionSpec struct {
	Command Command
	Label   string
	Port    uint16
	Target  string

	// StopSignal defaults to SIGTERM
	StopSignal os.Signal

	Pausable     bool
	PauseSignal  os.Signal
	ResumeSignal os.Signal
}

func (s SessionSpec) stopSignal() os.Signal {
	if s.StopSignal == nil {
		return unix.SIGTERM
	}
	return s.StopSignal
}

type session struct {
	proc Process
	spec SessionSpec

	startedAt   time.Time
	paused      bool
	pausedAt    time.Time
	pausedTotal time.Duration

	// closed by the exit watcher once Wait returns
	done chan struct{}
}

func (s *session) elapsed(now time.Time) time.Duration {
	end := now
	if s.paused {
		end = s.pausedAt
	}
	d := end.Sub(s.startedAt) - s.pausedTotal
	if d < 0 {
		return 0
	}
	return d
}

type slot struct {
	mu      sync.Mutex
	session *session
	status  Status
	known   bool
}

// Registry holds the process and status tables for one family of sessions.
// Each key has its own lock, so operations on distinct keys never wait on
// each other.
type Registry[K comparable] struct {
	slots sync.Map // K -> *slot

	launcher    Launcher
	now         func() time.Time
	killTimeout time.Duration
}

// NewRegistry creates an empty registry
func NewRegistry[K comparable](opts ...Option) *Registry[K] {
	o := applyOptions(opts)
	return &Registry[K]{
		launcher:    o.launcher,
		now:         o.now,
		killTimeout: o.killTimeout,
	}
}

func (r *Registry[K]) slotFor(key K) *slot {
	if s, ok := r.slots.Load(key); ok {
		return s.(*slot)
	}
	s, _ := r.slots.LoadOrStore(key, &slot{})
	return s.(*slot)
}

func (r *Registry[K]) lookup(key K) (*slot, bool) {
	s, ok := r.slots.Load(key)
	if !ok {
		return nil, false
	}
	return s.(*slot), true
}

// Start spawns the session for key unless one is already running. build is
// only called when a spawn is actually needed.
func (r *Registry[K]) Start(ctx context.Context, key K, build func() (SessionSpec, error)) error {
	s := r.slotFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	spec, err := build()
	if err != nil {
		s.setStatus(failedStart(spec, err))
		return &StartError{Key: fmt.Sprint(key), Err: err}
	}

	proc, err := r.launcher.Launch(spec.Command)
	if err != nil {
		logger.Error("Failed to spawn process", "key", fmt.Sprint(key), "command", spec.Command.Name, "error", err)
		s.setStatus(failedStart(spec, err))
		return &StartError{Key: fmt.Sprint(key), Err: err}
	}

	sess := &session{
		proc:      proc,
		spec:      spec,
		startedAt: r.now(),
		done:      make(chan struct{}),
	}
	s.session = sess
	s.setStatus(Status{
		Running:   true,
		Port:      spec.Port,
		Target:    spec.Target,
		Message:   spec.Label + " started successfully.",
		PID:       proc.Pid(),
		StartedAt: sess.startedAt,
	})
	logger.Info("Session started", "key", fmt.Sprint(key), "pid", proc.Pid(), "command", spec.Command.String())

	go r.watch(key, s, sess)
	return nil
}

func failedStart(spec SessionSpec, err error) Status {
	return Status{
		Running: false,
		Port:    spec.Port,
		Target:  spec.Target,
		Error:   "Failed to start: " + err.Error(),
		Message: startFailedHint,
	}
}

// watch reaps the process and forgets the session if it exited on its own.
// A session that was stopped or replaced is left alone.
func (r *Registry[K]) watch(key K, s *slot, sess *session) {
	err := sess.proc.Wait()
	close(sess.done)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != sess {
		return
	}
	s.session = nil

	st := Status{
		Running: false,
		Port:    sess.spec.Port,
		Target:  sess.spec.Target,
		Message: sess.spec.Label + " exited.",
	}
	if err != nil {
		st.Error = "Process exited: " + err.Error()
	}
	s.setStatus(st)
	logger.Warn("Session exited on its own", "key", fmt.Sprint(key), "error", err)
}

// Stop terminates the session for key. Stopping a key with no session is a
// no-op. The session is forgotten even if signalling fails.
func (r *Registry[K]) Stop(key K) error {
	s, ok := r.lookup(key)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session
	if sess == nil {
		return nil
	}
	s.session = nil

	if err := sess.proc.Signal(sess.spec.stopSignal()); err != nil {
		logger.Warn("Failed to signal process", "key", fmt.Sprint(key), "pid", sess.proc.Pid(), "error", err)
		s.setStatus(Status{
			Running: false,
			Port:    sess.spec.Port,
			Target:  sess.spec.Target,
			Error:   "Failed to stop: " + err.Error(),
			Message: stopFailedHint,
		})
		return &StopError{Key: fmt.Sprint(key), Err: err}
	}

	s.setStatus(Status{
		Running: false,
		Port:    sess.spec.Port,
		Target:  sess.spec.Target,
		Message: sess.spec.Label + " stopped.",
	})
	logger.Info("Session stopped", "key", fmt.Sprint(key), "pid", sess.proc.Pid())

	go r.reap(sess)
	return nil
}

// reap escalates to SIGKILL when a stopped process ignores its stop signal
func (r *Registry[K]) reap(sess *session) {
	select {
	case <-sess.done:
	case <-time.After(r.killTimeout):
		logger.Warn("Process ignored stop signal, killing", "pid", sess.proc.Pid())
		_ = sess.proc.Signal(unix.SIGKILL)
	}
}

// Pause sends the session's pause signal
func (r *Registry[K]) Pause(key K) error {
	return r.togglePause(key, true)
}

// Resume sends the session's resume signal
func (r *Registry[K]) Resume(key K) error {
	return r.togglePause(key, false)
}

func (r *Registry[K]) togglePause(key K, pause bool) error {
	s, ok := r.lookup(key)
	if !ok {
		return ErrNotRunning
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session
	if sess == nil {
		return ErrNotRunning
	}
	if !sess.spec.Pausable {
		return ErrPauseUnsupported
	}
	if sess.paused == pause {
		return nil
	}

	sig := sess.spec.ResumeSignal
	if pause {
		sig = sess.spec.PauseSignal
	}
	if err := sess.proc.Signal(sig); err != nil {
		return fmt.Errorf("failed to signal %s: %w", fmt.Sprint(key), err)
	}

	now := r.now()
	if pause {
		sess.pausedAt = now
	} else {
		sess.pausedTotal += now.Sub(sess.pausedAt)
	}
	sess.paused = pause
	s.status.Paused = pause
	return nil
}

// Status returns the last recorded status for key. Keys never started
// report a zero Status.
func (r *Registry[K]) Status(key K) Status {
	s, ok := r.lookup(key)
	if !ok {
		return Status{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Elapsed returns how long the session for key has been active, excluding
// time spent paused
func (r *Registry[K]) Elapsed(key K) (time.Duration, bool) {
	s, ok := r.lookup(key)
	if !ok {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return 0, false
	}
	return s.session.elapsed(r.now()), true
}

// Snapshot returns the status of every key that has ever been started
func (r *Registry[K]) Snapshot() map[K]Status {
	out := make(map[K]Status)
	r.slots.Range(func(k, v any) bool {
		s := v.(*slot)
		s.mu.Lock()
		if s.known {
			out[k.(K)] = s.status
		}
		s.mu.Unlock()
		return true
	})
	return out
}

// StopAll stops every live session and returns the first error seen
func (r *Registry[K]) StopAll() error {
	var first error
	r.slots.Range(func(k, _ any) bool {
		if err := r.Stop(k.(K)); err != nil && first == nil {
			first = err
		}
		return true
	})
	return first
}

func (s *slot) setStatus(st Status) {
	s.status = st
	s.known = true
}
