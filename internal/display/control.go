package display

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
)

// VCP feature code for luminance
const vcpBrightness = "10"

// SetBrightness sets the backlight of a physical monitor over DDC/CI.
// value is clamped to 0.0-1.0. Non-physical outputs are left alone.
func (e *Engine) SetBrightness(ctx context.Context, m *Monitor, value float64) error {
	if m == nil || !m.IsPhysical() {
		return nil
	}
	if m.Serial == "" {
		return &ControlError{Op: "brightness", Monitor: m.Name, Err: errors.New("monitor reports no serial number")}
	}

	value = math.Max(0, math.Min(1, value))
	pct := int(math.Round(value * 100))

	_, stderr, err := e.runner.Run(ctx, e.ddcutil, "setvcp", vcpBrightness, strconv.Itoa(pct), "--sn", m.Serial)
	if err != nil {
		return &ControlError{Op: "brightness", Monitor: m.Name, Stderr: trimOutput(stderr), Err: err}
	}

	m.Brightness = &value
	logger.Debug("Set brightness", "monitor", m.Name, "percent", pct)
	return nil
}

// SetRotation sends a transform directive for one physical monitor
func (e *Engine) SetRotation(ctx context.Context, m *Monitor, orientation Orientation) error {
	if m == nil || !m.IsPhysical() {
		return nil
	}

	transform := orientation.Transform()
	directive := m.Name + " transform " + strconv.Itoa(transform)

	_, stderr, err := e.runner.Run(ctx, e.hyprctl, "keyword", "monitor", directive)
	if err != nil {
		return &ControlError{Op: "rotation", Monitor: m.Name, Stderr: trimOutput(stderr), Err: err}
	}

	m.Orientation = orientation
	m.Transform = transform
	logger.Debug("Set rotation", "monitor", m.Name, "transform", transform)
	return nil
}
