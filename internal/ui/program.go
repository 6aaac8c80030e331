package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	tea "github.com/charmbracelet/bubbletea"
)

// RunPanel runs the panel full screen until the user quits or ctx ends.
// Log output goes to logOut while the panel owns the terminal.
func RunPanel(ctx context.Context, p *Panel, logOut io.Writer) error {
	if logOut == nil {
		logOut = io.Discard
	}
	logger.SetOutput(logOut)

	prog := tea.NewProgram(p, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("panel exited with error: %w", err)
	}
	return nil
}
