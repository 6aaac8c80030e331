package ui

import (
	"errors"
	"fmt"

	"github.com/Kyle6012/hypr-xdisplay/internal/discovery"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/charmbracelet/huh"
)

// ErrNoTargets is returned when discovery found nothing to pick from
var ErrNoTargets = errors.New("no casting targets found")

// PickTarget asks the user to choose a casting target. A single target is
// selected without asking.
func PickTarget(title string, targets []discovery.Target) (discovery.Target, error) {
	switch len(targets) {
	case 0:
		return discovery.Target{}, ErrNoTargets
	case 1:
		logger.Infof("Auto-selected target: %s", targets[0].Name)
		return targets[0], nil
	}

	options := make([]huh.Option[int], len(targets))
	for i, t := range targets {
		options[i] = huh.NewOption(t.Name, i)
	}

	var selected int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(title).
				Description("Choose where to send the stream").
				Options(options...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return discovery.Target{}, fmt.Errorf("target selection cancelled: %w", err)
	}
	return targets[selected], nil
}
