// Package ui provides consistent styling and the terminal control panel
package ui

import (
	"fmt"
	"time"

	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
	"github.com/charmbracelet/lipgloss"
)

// Color palette - consistent across the application
var (
	ColorPrimary   = lipgloss.Color("39")  // Bright blue
	ColorSecondary = lipgloss.Color("205") // Pink/magenta
	ColorSuccess   = lipgloss.Color("82")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorInfo      = lipgloss.Color("86")  // Cyan

	ColorText      = lipgloss.Color("252") // Light gray
	ColorSubtle    = lipgloss.Color("241") // Medium gray
	ColorMuted     = lipgloss.Color("238") // Dark gray
	ColorHighlight = lipgloss.Color("255") // White

	ColorRunning = ColorSuccess
	ColorStopped = ColorSubtle
	ColorPaused  = ColorWarning
)

// Base styles
var (
	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	SubheaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Background(ColorMuted).
			Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)

	FocusedBoxStyle = BoxStyle.
			BorderForeground(ColorPrimary)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHighlight)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)
)

// Control help styles
var (
	ControlKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	ControlDescStyle = lipgloss.NewStyle().
				Foreground(ColorText)

	RunningIndicator = lipgloss.NewStyle().
				Foreground(ColorRunning).
				Render("●")

	StoppedIndicator = lipgloss.NewStyle().
				Foreground(ColorStopped).
				Render("○")

	PausedIndicator = lipgloss.NewStyle().
			Foreground(ColorPaused).
			Render("◐")
)

// Icons
var (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconMirror  = "⇆"
)

// FormatControl renders a key binding hint
func FormatControl(key, desc string) string {
	return ControlKeyStyle.Render(key) + " " + ControlDescStyle.Render(desc)
}

// FormatSession renders one supervised session on a single line
func FormatSession(label string, st supervisor.Status) string {
	indicator := StoppedIndicator
	state := SubtleStyle.Render("stopped")
	switch {
	case st.Paused:
		indicator = PausedIndicator
		state = WarningStyle.Render("paused")
	case st.Running:
		indicator = RunningIndicator
		state = SuccessStyle.Render("running")
	}

	line := fmt.Sprintf("%s %-18s %s", indicator, label, state)
	if st.Port != 0 {
		line += SubtleStyle.Render(fmt.Sprintf("  port %d", st.Port))
	}
	if st.Target != "" {
		line += SubtleStyle.Render("  → " + st.Target)
	}
	if st.PID != 0 {
		line += MutedStyle.Render(fmt.Sprintf("  pid %d", st.PID))
	}
	if st.Error != "" {
		line += "  " + ErrorStyle.Render(st.Error)
	}
	return line
}

// FormatMessage renders a status message with its icon
func FormatMessage(st supervisor.Status) string {
	switch {
	case st.Error != "":
		text := ErrorStyle.Render(IconError + " " + st.Error)
		if st.Message != "" {
			text += "\n  " + SubtleStyle.Render(st.Message)
		}
		return text
	case st.Message != "":
		return SuccessStyle.Render(IconSuccess + " " + st.Message)
	}
	return ""
}

// FormatDuration renders an elapsed time as HH:MM:SS
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}
