package display

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
)

// Placement is the geometry computed for one monitor
type Placement struct {
	Name        string
	Mode        Mode
	Width       int
	Height      int
	RefreshRate float64
	X           int
	Y           int
	Scale       float64
	Transform   int
	MirrorOf    string // source output for Copy monitors, empty otherwise
}

type geometry struct {
	name        string
	index       int
	width       int
	height      int
	refreshRate float64
	x, y        int
}

// Plan computes the placement of every monitor in list order.
//
// Extended monitors are laid out left to right: x is the sum of the widths
// of the Extended monitors before it, y is kept. Copy monitors take the
// geometry of the first Extended monitor in the list. A Copy monitor with
// no Extended monitor ahead of it keeps its own geometry.
func Plan(monitors []Monitor) []Placement {
	// Only Copy monitors can precede the first Extended one, so it sits at x=0
	var source *geometry
	for i := range monitors {
		m := &monitors[i]
		if m.EffectiveMode() != ModeExtended {
			continue
		}
		source = &geometry{
			index:       i,
			name:        m.Name,
			width:       m.Width,
			height:      m.Height,
			refreshRate: m.RefreshRate,
			x:           0,
			y:           m.Y,
		}
		break
	}

	placements := make([]Placement, 0, len(monitors))
	offset := 0
	for i := range monitors {
		m := &monitors[i]
		p := Placement{
			Name:      m.Name,
			Mode:      m.EffectiveMode(),
			Scale:     m.EffectiveScale(),
			Transform: m.EffectiveOrientation().Transform(),
		}

		switch {
		case p.Mode == ModeCopy && source != nil && source.index < i:
			p.Width, p.Height, p.RefreshRate = source.width, source.height, source.refreshRate
			p.X, p.Y = source.x, source.y
			p.MirrorOf = source.name
		case p.Mode == ModeCopy:
			p.Width, p.Height, p.RefreshRate = m.Width, m.Height, m.RefreshRate
			p.X, p.Y = m.X, m.Y
		default:
			p.Width, p.Height, p.RefreshRate = m.Width, m.Height, m.RefreshRate
			p.X, p.Y = offset, m.Y
			offset += m.Width
		}

		placements = append(placements, p)
	}
	return placements
}

// DesktopSize returns the size of the box enclosing every placement
func DesktopSize(placements []Placement) (width, height int) {
	if len(placements) == 0 {
		return 0, 0
	}
	minX, minY := placements[0].X, placements[0].Y
	maxX, maxY := minX+placements[0].Width, minY+placements[0].Height
	for _, p := range placements[1:] {
		minX, minY = min(minX, p.X), min(minY, p.Y)
		maxX, maxY = max(maxX, p.X+p.Width), max(maxY, p.Y+p.Height)
	}
	return maxX - minX, maxY - minY
}

// BatchCommand renders placements as one hyprctl batch: a geometry
// directive and a scale directive per monitor
func BatchCommand(placements []Placement) string {
	var b strings.Builder
	for _, p := range placements {
		scale := formatFloat(p.Scale)
		fmt.Fprintf(&b, "keyword monitor %s,%dx%d@%s,%dx%d,%s; ",
			p.Name, p.Width, p.Height, formatFloat(p.RefreshRate), p.X, p.Y, scale)
		fmt.Fprintf(&b, "keyword monitor %s scale %s; ", p.Name, scale)
	}
	return strings.TrimSuffix(b.String(), " ")
}

// ApplyLayout submits the computed layout to the compositor in one atomic
// batch. An empty list is accepted without calling the compositor.
func (e *Engine) ApplyLayout(ctx context.Context, monitors []Monitor) error {
	if len(monitors) == 0 {
		return nil
	}

	batch := BatchCommand(Plan(monitors))
	logger.Debug("Applying monitor layout", "monitors", len(monitors), "batch", batch)

	_, stderr, err := e.runner.Run(ctx, e.hyprctl, "--batch", batch)
	if err != nil {
		return &ApplyError{Batch: batch, Stderr: trimOutput(stderr), Err: err}
	}

	logger.Infof("Applied layout for %d monitor(s)", len(monitors))
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
