package display

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
)

// Runner executes one external command and collects its output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands on the host. Cancelling ctx stops the wait but
// leaves the child running; it is reaped in the background.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return stdout.Bytes(), stderr.Bytes(), err
	case <-ctx.Done():
		logger.Debugf("Stopped waiting for %s (pid %d): %v", name, cmd.Process.Pid, ctx.Err())
		return nil, nil, ctx.Err()
	}
}

// Engine talks to Hyprland through hyprctl and to monitor hardware
// through ddcutil. It holds no monitor state of its own.
type Engine struct {
	runner  Runner
	hyprctl string
	ddcutil string
}

// Option configures an Engine
type Option func(*Engine)

// WithRunner swaps the command runner
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithHyprctl overrides the hyprctl binary
func WithHyprctl(path string) Option {
	return func(e *Engine) { e.hyprctl = path }
}

// NewEngine creates a layout engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		runner:  ExecRunner{},
		hyprctl: "hyprctl",
		ddcutil: "ddcutil",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Monitors queries the compositor for its current outputs. Output that
// does not decode into the monitor shape is an error, never a partial list.
func (e *Engine) Monitors(ctx context.Context) ([]Monitor, error) {
	stdout, stderr, err := e.runner.Run(ctx, e.hyprctl, "monitors", "-j")
	if err != nil {
		return nil, &QueryError{Stderr: trimOutput(stderr), Err: err}
	}

	monitors, err := ParseMonitors(stdout)
	if err != nil {
		return nil, &QueryError{Err: err}
	}

	logger.Debugf("Compositor reported %d monitor(s)", len(monitors))
	return monitors, nil
}

// ParseMonitors decodes the JSON array printed by "hyprctl monitors -j".
// Outputs reported by the compositor are physical unless marked otherwise.
func ParseMonitors(data []byte) ([]Monitor, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("unexpected monitor output: not a JSON array")
	}

	var monitors []Monitor
	if err := json.Unmarshal(trimmed, &monitors); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl output: %w", err)
	}

	for i := range monitors {
		if monitors[i].Name == "" {
			return nil, fmt.Errorf("monitor %d has no name", i)
		}
		if monitors[i].DeviceType == "" {
			monitors[i].DeviceType = DevicePhysical
		}
	}
	return monitors, nil
}
