package xrandr

import (
	"fmt"
	"strings"
)

// ModeID is the server assigned identifier of a mode.
type ModeID uint32

func (id ModeID) String() string {
	return fmt.Sprintf("%#x", uint32(id))
}

// Mode is a video timing as known to the server. Modes are shared by all
// outputs that list them and must not be modified after parsing.
type Mode struct {
	ID   ModeID `json:"id"`
	Name string `json:"name"`

	// PixelClock in MHz
	PixelClock float64 `json:"pixel_clock"`

	HDisplay   int `json:"h_display"`
	HSyncStart int `json:"h_sync_start"`
	HSyncEnd   int `json:"h_sync_end"`
	HTotal     int `json:"h_total"`
	HSkew      int `json:"h_skew"`

	VDisplay   int `json:"v_display"`
	VSyncStart int `json:"v_sync_start"`
	VSyncEnd   int `json:"v_sync_end"`
	VTotal     int `json:"v_total"`

	Flags []ModeFlag `json:"flags"`
}

// HSync is the horizontal sync frequency in kHz.
func (m *Mode) HSync() float64 {
	if m.HTotal == 0 {
		return 0
	}
	return m.PixelClock * 1000 / float64(m.HTotal)
}

// VSync is the vertical sync frequency in Hz.
func (m *Mode) VSync() float64 {
	if m.VTotal == 0 {
		return 0
	}
	return m.HSync() * 1000 / float64(m.VTotal)
}

// RefreshRate is the same as VSync.
func (m *Mode) RefreshRate() float64 {
	return m.VSync()
}

func (m *Mode) Width() int  { return m.HDisplay }
func (m *Mode) Height() int { return m.VDisplay }

func (m *Mode) Size() Size {
	return Size{Width: m.HDisplay, Height: m.VDisplay}
}

// Equal compares the identity and the timing data of two modes. The derived
// clocks xrandr prints are rounded and not taken into account.
func (m *Mode) Equal(o *Mode) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil {
		return false
	}
	if m.ID != o.ID || m.Name != o.Name || m.PixelClock != o.PixelClock ||
		m.HDisplay != o.HDisplay || m.HSyncStart != o.HSyncStart || m.HSyncEnd != o.HSyncEnd ||
		m.HTotal != o.HTotal || m.HSkew != o.HSkew ||
		m.VDisplay != o.VDisplay || m.VSyncStart != o.VSyncStart || m.VSyncEnd != o.VSyncEnd ||
		m.VTotal != o.VTotal || len(m.Flags) != len(o.Flags) {
		return false
	}
	for i := range m.Flags {
		if m.Flags[i] != o.Flags[i] {
			return false
		}
	}
	return true
}

func (m *Mode) String() string {
	flags := make([]string, len(m.Flags))
	for i, f := range m.Flags {
		flags[i] = string(f)
	}
	return fmt.Sprintf("%s (%s) %.2fHz %s", m.Name, m.ID, m.RefreshRate(), strings.Join(flags, " "))
}

// AssignedMode is a mode as listed for a specific output. Whether a mode is
// preferred or current depends on the output, so those flags live here.
type AssignedMode struct {
	*Mode
	Preferred bool `json:"preferred"`
	Current   bool `json:"current"`
}
