// Package capture takes screenshots with grim, using slurp or the focused
// Hyprland window to pick the area
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Kyle6012/hypr-xdisplay/internal/display"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/lestrrat-go/strftime"
)

// ErrSelectionCancelled is returned when the region picker exits without a
// selection, usually because the user pressed Escape
var ErrSelectionCancelled = errors.New("region selection cancelled")

// Capturer writes screenshots into a directory
type Capturer struct {
	runner  display.Runner
	dir     string
	pattern string
	now     func() time.Time
}

// Option configures a Capturer
type Option func(*Capturer)

// WithRunner swaps the command runner
func WithRunner(r display.Runner) Option {
	return func(c *Capturer) { c.runner = r }
}

// WithClock replaces the time source used for filenames
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) { c.now = now }
}

// New creates a Capturer saving into dir with a strftime filename pattern
func New(dir, pattern string, opts ...Option) *Capturer {
	if pattern == "" {
		pattern = "screenshot_%Y-%m-%d_%H-%M-%S.png"
	}
	c := &Capturer{
		runner:  display.ExecRunner{},
		dir:     dir,
		pattern: pattern,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns where a screenshot taken now would be written
func (c *Capturer) Path() (string, error) {
	name, err := strftime.Format(c.pattern, c.now())
	if err != nil {
		return "", fmt.Errorf("invalid filename format %q: %w", c.pattern, err)
	}
	return filepath.Join(c.dir, name), nil
}

// Fullscreen captures every output
func (c *Capturer) Fullscreen(ctx context.Context) (string, error) {
	return c.grim(ctx, "")
}

// Region lets the user drag out a rectangle with slurp and captures it
func (c *Capturer) Region(ctx context.Context) (string, error) {
	stdout, stderr, err := c.runner.Run(ctx, "slurp")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if strings.Contains(string(stderr), "cancelled") || len(strings.TrimSpace(string(stdout))) == 0 {
			return "", ErrSelectionCancelled
		}
		return "", fmt.Errorf("slurp failed: %w", err)
	}

	region := strings.TrimSpace(string(stdout))
	if region == "" {
		return "", ErrSelectionCancelled
	}
	return c.grim(ctx, region)
}

type activeWindow struct {
	Address string `json:"address"`
	At      []int  `json:"at"`
	Size    []int  `json:"size"`
	Title   string `json:"title"`
}

// FocusedWindow captures the window that currently has focus
func (c *Capturer) FocusedWindow(ctx context.Context) (string, error) {
	stdout, stderr, err := c.runner.Run(ctx, "hyprctl", "activewindow", "-j")
	if err != nil {
		return "", &display.QueryError{Command: "activewindow", Stderr: strings.TrimSpace(string(stderr)), Err: err}
	}

	geometry, err := WindowGeometry(stdout)
	if err != nil {
		return "", err
	}
	return c.grim(ctx, geometry)
}

// WindowGeometry turns `hyprctl activewindow -j` output into a grim
// geometry string "X,Y WxH"
func WindowGeometry(data []byte) (string, error) {
	var w activeWindow
	if err := json.Unmarshal(data, &w); err != nil {
		return "", fmt.Errorf("could not determine focused window geometry: %w", err)
	}
	if len(w.At) != 2 || len(w.Size) != 2 || w.Size[0] <= 0 || w.Size[1] <= 0 {
		return "", errors.New("could not determine focused window geometry: no window has focus")
	}
	return fmt.Sprintf("%d,%d %dx%d", w.At[0], w.At[1], w.Size[0], w.Size[1]), nil
}

func (c *Capturer) grim(ctx context.Context, geometry string) (string, error) {
	path, err := c.Path()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	args := []string{path}
	if geometry != "" {
		args = []string{"-g", geometry, path}
	}

	logger.Info("Capturing screenshot", "path", path, "geometry", geometry)
	if _, stderr, err := c.runner.Run(ctx, "grim", args...); err != nil {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return "", fmt.Errorf("grim failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("grim failed: %w", err)
	}
	return path, nil
}
