// Package display queries Hyprland for its outputs and applies monitor layouts
package display

// Mode says whether a monitor extends the desktop or mirrors another output
type Mode string

const (
	ModeExtended Mode = "Extended"
	ModeCopy     Mode = "Copy"
)

// Orientation of an output
type Orientation string

const (
	Landscape Orientation = "Landscape"
	Portrait  Orientation = "Portrait"
)

// Transform returns the compositor transform value for the orientation
func (o Orientation) Transform() int {
	if o == Portrait {
		return 1
	}
	return 0
}

// DeviceType tells physical outputs apart from cast and bridged targets
type DeviceType string

const (
	DevicePhysical DeviceType = "Physical"
	DeviceWireless DeviceType = "Wireless"
	DeviceAndroid  DeviceType = "Android"
	DeviceAirPlay  DeviceType = "AirPlay"
	DeviceVNC      DeviceType = "VNC"
)

// Workspace as reported by hyprctl
type Workspace struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Monitor is one output as reported by the compositor plus the arrangement
// the user wants for it. The desired fields (Mode through DeviceType) are
// never reported by hyprctl and are filled by callers before ApplyLayout.
type Monitor struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Make             string    `json:"make"`
	Model            string    `json:"model"`
	Serial           string    `json:"serial"`
	Width            int       `json:"width"`
	Height           int       `json:"height"`
	RefreshRate      float64   `json:"refreshRate"`
	X                int       `json:"x"`
	Y                int       `json:"y"`
	ActiveWorkspace  Workspace `json:"activeWorkspace"`
	SpecialWorkspace Workspace `json:"specialWorkspace"`
	Reserved         [4]int    `json:"reserved"`
	Scale            float64   `json:"scale"`
	Transform        int       `json:"transform"` // 0=landscape, 1=portrait
	Focused          bool      `json:"focused"`
	DPMSStatus       bool      `json:"dpmsStatus"`
	VRR              bool      `json:"vrr"`

	Mode        Mode        `json:"mode,omitempty"`
	Orientation Orientation `json:"orientation,omitempty"`
	Scaling     *float64    `json:"scaling,omitempty"`
	Brightness  *float64    `json:"brightness,omitempty"` // 0.0-1.0, physical only
	DeviceType  DeviceType  `json:"deviceType,omitempty"`
}

// EffectiveMode returns the desired mode, Extended when unset
func (m *Monitor) EffectiveMode() Mode {
	if m.Mode == ModeCopy {
		return ModeCopy
	}
	return ModeExtended
}

// EffectiveOrientation returns the desired orientation, falling back to
// what the compositor transform says
func (m *Monitor) EffectiveOrientation() Orientation {
	switch m.Orientation {
	case Portrait, Landscape:
		return m.Orientation
	}
	if m.Transform == 1 {
		return Portrait
	}
	return Landscape
}

// EffectiveScale returns the scaling override if set, else the current scale
func (m *Monitor) EffectiveScale() float64 {
	if m.Scaling != nil {
		return *m.Scaling
	}
	return m.Scale
}

// IsPhysical reports whether hardware controls apply to this output
func (m *Monitor) IsPhysical() bool {
	return m.DeviceType == DevicePhysical
}

// FindMonitor returns the monitor with the given connector name
func FindMonitor(monitors []Monitor, name string) (*Monitor, bool) {
	for i := range monitors {
		if monitors[i].Name == name {
			return &monitors[i], true
		}
	}
	return nil, false
}

// FocusedMonitor returns the focused monitor, falling back to the first one
func FocusedMonitor(monitors []Monitor) *Monitor {
	for i := range monitors {
		if monitors[i].Focused {
			return &monitors[i]
		}
	}
	if len(monitors) > 0 {
		return &monitors[0]
	}
	return nil
}

