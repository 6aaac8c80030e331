package display

import (
	"fmt"
	"strings"
)

// Preference is the saved arrangement for one output
type Preference struct {
	Name        string
	Mode        Mode
	Orientation Orientation
	Scaling     float64 // 0 keeps the compositor scale
}

// ParseMode accepts "extended" or "copy" in any case
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "extended", "extend":
		return ModeExtended, nil
	case "copy", "mirror":
		return ModeCopy, nil
	}
	return "", fmt.Errorf("unknown monitor mode %q (want Extended or Copy)", s)
}

// ParseOrientation accepts "landscape" or "portrait" in any case
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "landscape":
		return Landscape, nil
	case "portrait":
		return Portrait, nil
	}
	return "", fmt.Errorf("unknown orientation %q (want Landscape or Portrait)", s)
}

// ApplyPreferences fills the desired fields of every monitor that has a
// saved preference. Monitors are modified in place.
func ApplyPreferences(monitors []Monitor, prefs []Preference) {
	for _, p := range prefs {
		m, ok := FindMonitor(monitors, p.Name)
		if !ok {
			continue
		}
		if p.Mode != "" {
			m.Mode = p.Mode
		}
		if p.Orientation != "" {
			m.Orientation = p.Orientation
		}
		if p.Scaling > 0 {
			scaling := p.Scaling
			m.Scaling = &scaling
		}
	}
}

// PreferenceOf captures the desired arrangement of a monitor
func PreferenceOf(m *Monitor) Preference {
	p := Preference{
		Name:        m.Name,
		Mode:        m.EffectiveMode(),
		Orientation: m.EffectiveOrientation(),
	}
	if m.Scaling != nil {
		p.Scaling = *m.Scaling
	}
	return p
}
