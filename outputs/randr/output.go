package randr

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/flokli/randr-agent/outputs"
	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/transition"
	log "github.com/sirupsen/logrus"
)

type Output struct {
	// A handle to the watcher, for the lock and the xrandr client
	watcher *Watcher

	// last observed state, replaced on every refresh. The getters run
	// without outputsMu, so it is only ever swapped atomically.
	output atomic.Pointer[xrandr.Output]
}

func newOutput(w *Watcher, xo *xrandr.Output) *Output {
	o := &Output{watcher: w}
	o.output.Store(xo)
	return o
}

func newMode(m xrandr.AssignedMode) *outputs.Mode {
	return &outputs.Mode{
		Width:     int64(m.Width()),
		Height:    int64(m.Height()),
		Refresh:   m.RefreshRate(),
		Name:      m.Name,
		ID:        m.ID.String(),
		Preferred: m.Preferred,
	}
}

// GetInfo implements Output.
func (o *Output) GetInfo() *outputs.Info {
	xo := o.output.Load()

	name := xo.Name
	connection := string(xo.Connection)
	modes := make([]*outputs.Mode, len(xo.AssignedModes))
	for i, m := range xo.AssignedModes {
		modes[i] = newMode(m)
	}
	rotations := make([]string, len(xo.SupportedRotations))
	for i, r := range xo.SupportedRotations {
		rotations[i] = r.String()
	}
	reflections := make([]string, len(xo.SupportedReflections))
	for i, r := range xo.SupportedReflections {
		reflections[i] = r.String()
	}

	info := &outputs.Info{
		Name:        &name,
		Connection:  &connection,
		Modes:       &modes,
		Rotations:   &rotations,
		Reflections: &reflections,
	}
	if xo.PhysicalSize != nil {
		width, height := xo.PhysicalSize.Width, xo.PhysicalSize.Height
		info.WidthMM, info.HeightMM = &width, &height
	}
	return info
}

// GetState implements Output.
func (o *Output) GetState() *outputs.State {
	xo := o.output.Load()

	enabled := xo.Active
	primary := xo.Primary
	state := &outputs.State{
		Enabled: &enabled,
		Primary: &primary,
	}
	if !xo.Active {
		return state
	}

	if xo.ModeID != nil {
		if m, ok := xo.AssignedMode(*xo.ModeID); ok {
			state.Mode = newMode(m)
		}
	}
	state.Position = &outputs.Position{X: xo.Geometry.Left, Y: xo.Geometry.Top}
	rotation := xo.Rotation.String()
	reflection := xo.Reflection.String()
	state.Rotation = &rotation
	state.Reflection = &reflection

	return state
}

// findMode returns the name of the first assigned mode matching m.
func findMode(xo *xrandr.Output, m *outputs.Mode) (string, bool) {
	for _, am := range xo.AssignedModes {
		if newMode(am).Matches(m) {
			return am.Name, true
		}
	}
	return "", false
}

// SetState implements Output. The requested changes are collected into a
// single transition, shoved to fit and applied in one xrandr call.
func (o *Output) SetState(ctx context.Context, newState *outputs.State) (*outputs.State, error) {
	w := o.watcher
	w.outputsMu.Lock()
	defer w.outputsMu.Unlock()

	name := o.output.Load().Name
	l := log.WithField("outputName", name)

	t, err := o.transition(newState)
	if err != nil {
		return o.GetState(), err
	}
	l.WithField("transition", t.String()).Debug("built transition")

	if err := w.apply(ctx, t, true); err != nil {
		return o.GetState(), fmt.Errorf("failed to apply state: %w", err)
	}

	// refreshing replaced the snapshot if the output is still around
	return o.GetState(), nil
}

func (o *Output) transition(newState *outputs.State) (*transition.Transition, error) {
	w := o.watcher
	xo := o.output.Load()
	t := transition.New(w.server)
	to, err := t.Output(xo.Name)
	if err != nil {
		return nil, err
	}

	if newState.Enabled != nil {
		if *newState.Enabled {
			if !xo.Active {
				if err := to.Mode.SetAny(xo); err != nil {
					return nil, fmt.Errorf("failed to enable: %w", err)
				}
				to.Position.SetAny(xo)
			}
		} else {
			to.Mode.SetOff()
		}
	}

	if newState.Mode != nil {
		modeName, ok := findMode(xo, newState.Mode)
		if !ok {
			return nil, fmt.Errorf("failed to set mode: no mode %v", newState.Mode)
		}
		// replaces a mode picked for enabling, but not --off
		to.Mode.Named, to.Mode.Precise, to.Mode.Rate = nil, nil, nil
		to.Mode.SetNamed(modeName)
		if newState.Mode.Refresh != 0 {
			to.Mode.SetRate(newState.Mode.Refresh)
		}
		if !xo.Active && to.Position.Position == nil {
			to.Position.SetAny(xo)
		}
	}

	if newState.Rotation != nil {
		r, err := xrandr.ParseRotation(*newState.Rotation)
		if err != nil {
			return nil, fmt.Errorf("failed to set rotation: %w", err)
		}
		to.Rotation.SetRotation(r)
	}
	if newState.Reflection != nil {
		r, err := xrandr.ParseReflection(*newState.Reflection)
		if err != nil {
			return nil, fmt.Errorf("failed to set reflection: %w", err)
		}
		to.Rotation.SetReflection(r)
	}

	if newState.Position != nil {
		x, y := newState.Position.X, newState.Position.Y
		if w.SnapTolerance > 0 {
			x, y = t.Predict().Snap(xo.Name, w.SnapTolerance).Suggest(x, y)
		}
		to.Position.Set(xrandr.Position{Left: x, Top: y})
	}

	if newState.Primary != nil {
		if *newState.Primary {
			if err := t.SetPrimary(xo.Name); err != nil {
				return nil, err
			}
		} else if xo.Primary {
			t.SetNoPrimary()
		}
	}

	return t, nil
}
