package transition

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/cmdline"
)

const (
	labelPrecise = "--mode <id>"
	labelNamed   = "--mode <name>"
	labelRate    = "--rate"
	labelAuto    = "--auto"
	labelOff     = "--off"
)

// Mode is the mode aspect of an output. At most one of a mode (precise, or
// named with an optional rate), Auto and Off may be set.
type Mode struct {
	Named   *string        `json:"named,omitempty"`
	Precise *xrandr.ModeID `json:"precise,omitempty"`
	Rate    *float64       `json:"rate,omitempty"`
	Auto    bool           `json:"auto,omitempty"`
	Off     bool           `json:"off,omitempty"`
}

func (m *Mode) SetNamed(name string) { m.Named = &name }

func (m *Mode) SetPrecise(id xrandr.ModeID) { m.Precise = &id }

func (m *Mode) SetRate(rate float64) { m.Rate = &rate }

func (m *Mode) SetAuto() { m.Auto = true }

func (m *Mode) SetOff() { m.Off = true }

// Clear drops every pending mode change.
func (m *Mode) Clear() { *m = Mode{} }

// SetAny configures some mode if none is configured yet: the current one
// if the output is active, else the preferred mode with the largest area.
// Auto and Off are cleared.
func (m *Mode) SetAny(o *xrandr.Output) error {
	if m.Named != nil || m.Precise != nil {
		return nil
	}
	if len(o.AssignedModes) == 0 {
		return &xrandr.InadequateConfiguration{Output: o.Name, Msg: "output has no modes"}
	}

	m.Auto = false
	m.Off = false

	if o.Active {
		if current := o.Mode(); current != nil {
			m.SetNamed(current.Name)
			return nil
		}
	}

	best := o.AssignedModes[0]
	for _, candidate := range o.AssignedModes[1:] {
		if candidate.Preferred != best.Preferred {
			if candidate.Preferred {
				best = candidate
			}
			continue
		}
		if candidate.Width()*candidate.Height() > best.Width()*best.Height() {
			best = candidate
		}
	}
	m.SetNamed(best.Name)
	return nil
}

func (m *Mode) hasMode() bool {
	return m.Named != nil || m.Precise != nil || m.Rate != nil
}

func (m *Mode) empty(env) bool {
	return !m.hasMode() && !m.Auto && !m.Off
}

func conflict(output, a, b, msg string) error {
	return &xrandr.InadequateConfiguration{Output: output, Conflicting: []string{a, b}, Msg: msg}
}

func (m *Mode) validate(e env) error {
	if m.Precise != nil {
		if m.Named != nil {
			return conflict(e.name, labelPrecise, labelNamed, "named modes can not be used together with precise mode settings")
		}
		if m.Rate != nil {
			return conflict(e.name, labelPrecise, labelRate, "refresh rates can not be used together with precise mode settings")
		}
	}

	if m.Auto {
		switch {
		case m.Precise != nil:
			return conflict(e.name, labelAuto, labelPrecise, "switching an output to auto is mutually exclusive with setting a mode")
		case m.Named != nil:
			return conflict(e.name, labelAuto, labelNamed, "switching an output to auto is mutually exclusive with setting a mode")
		case m.Rate != nil:
			return conflict(e.name, labelAuto, labelRate, "switching an output to auto is mutually exclusive with setting a mode")
		}
	}

	if m.Off {
		switch {
		case m.Precise != nil:
			return conflict(e.name, labelOff, labelPrecise, "switching an output off is mutually exclusive with setting a mode")
		case m.Named != nil:
			return conflict(e.name, labelOff, labelNamed, "switching an output off is mutually exclusive with setting a mode")
		case m.Rate != nil:
			return conflict(e.name, labelOff, labelRate, "switching an output off is mutually exclusive with setting a mode")
		case m.Auto:
			return conflict(e.name, labelOff, labelAuto, "switching an output off is mutually exclusive with switching it to auto")
		}
	}

	o := e.output()
	if m.Precise != nil {
		if _, ok := o.AssignedMode(*m.Precise); !ok {
			return &xrandr.InadequateConfiguration{Output: e.name, Msg: fmt.Sprintf("mode %s is not available", *m.Precise)}
		}
	}
	if m.Named != nil && len(o.ModesNamed(*m.Named)) == 0 {
		return &xrandr.InadequateConfiguration{Output: e.name, Msg: fmt.Sprintf("mode %q is not available", *m.Named)}
	}
	if m.Rate != nil && m.Named == nil && o.Mode() == nil {
		return &xrandr.InadequateConfiguration{Output: e.name, Msg: "a refresh rate needs a mode"}
	}

	return nil
}

func (m *Mode) serialize(env) []string {
	var args []string
	if m.Off {
		args = append(args, "--off")
	}
	if m.Auto {
		args = append(args, "--auto")
	}
	if m.Precise != nil {
		args = append(args, "--mode", m.Precise.String())
	}
	if m.Named != nil {
		args = append(args, "--mode", *m.Named)
	}
	if m.Rate != nil {
		args = append(args, "--rate", strconv.FormatFloat(*m.Rate, 'g', -1, 64))
	}
	return args
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	return strings.Trim(s, "0123456789abcdefABCDEF") == ""
}

func (m *Mode) unserialize(e env, bag cmdline.Bag) error {
	o := e.output()

	if mode, ok := bag.Take("mode"); ok {
		precise := false
		if strings.HasPrefix(mode, "0x") && isHex(mode[2:]) {
			if id, err := strconv.ParseUint(mode[2:], 16, 32); err == nil {
				if _, ok := o.AssignedMode(xrandr.ModeID(id)); ok {
					m.SetPrecise(xrandr.ModeID(id))
					precise = true
				}
			}
		}
		if !precise {
			if len(o.ModesNamed(mode)) == 0 {
				return xrandr.FileSyntaxErrorf("unknown mode %q for output %s", mode, e.name)
			}
			m.SetNamed(mode)
		}
	}

	if rate, ok := bag.Take("rate"); ok {
		r, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return xrandr.FileSyntaxErrorf("invalid rate %q for output %s", rate, e.name)
		}
		m.SetRate(r)
	}

	if _, ok := bag.Take("auto"); ok {
		m.SetAuto()
	}
	if _, ok := bag.Take("off"); ok {
		m.SetOff()
	}

	return nil
}

// resolve finds the mode xrandr would pick for the configured name and
// rate. A given rate picks the closest one among the modes of that name.
// Without a rate the current mode wins if it has the name, then the
// preferred one, then the first listed.
func (m *Mode) resolve(o *xrandr.Output) *xrandr.Mode {
	current := o.Mode()

	var name string
	switch {
	case m.Named != nil:
		name = *m.Named
	case current != nil:
		name = current.Name
	default:
		return nil
	}

	candidates := o.ModesNamed(name)
	if len(candidates) == 0 {
		return nil
	}

	if m.Rate != nil {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if math.Abs(c.RefreshRate()-*m.Rate) < math.Abs(best.RefreshRate()-*m.Rate) {
				best = c
			}
		}
		return best.Mode
	}

	if current != nil && current.Name == name {
		return current
	}
	for _, c := range candidates {
		if c.Preferred {
			return c.Mode
		}
	}
	return candidates[0].Mode
}

func autoMode(o *xrandr.Output) *xrandr.Mode {
	if p := o.PreferredMode(); p != nil {
		return p
	}
	if len(o.AssignedModes) != 0 {
		return o.AssignedModes[0].Mode
	}
	return nil
}

func (m *Mode) predict(e env, p *PredictedOutput) {
	o := e.output()

	switch {
	case m.Off:
		p.deactivate()
	case m.Auto:
		if o.Connection == xrandr.Disconnected {
			p.deactivate()
			return
		}
		if o.Active {
			// already running outputs are left alone by --auto
			return
		}
		if mode := autoMode(o); mode != nil {
			p.activate(mode)
		}
	case m.Precise != nil:
		if a, ok := o.AssignedMode(*m.Precise); ok {
			p.activate(a.Mode)
		}
	case m.Named != nil || m.Rate != nil:
		if mode := m.resolve(o); mode != nil {
			p.activate(mode)
		}
	}
}
