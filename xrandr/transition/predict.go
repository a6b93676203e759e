package transition

import (
	"math"

	"github.com/flokli/randr-agent/geometry"
	"github.com/flokli/randr-agent/xrandr"
)

// PredictedOutput is a best effort guess of how an output will look once
// the transition is applied.
type PredictedOutput struct {
	Name       string                  `json:"name"`
	Connection xrandr.ConnectionStatus `json:"connection"`
	Active     bool                    `json:"active"`
	// Mode is nil if the output is inactive or its mode is unknown.
	Mode *xrandr.Mode `json:"mode,omitempty"`
	// ModeSize is the unrotated size of the output.
	ModeSize   xrandr.Size       `json:"mode_size"`
	Position   xrandr.Position   `json:"position"`
	Rotation   xrandr.Rotation   `json:"rotation"`
	Reflection xrandr.Reflection `json:"reflection"`
	Primary    bool              `json:"primary"`
}

func (p *PredictedOutput) activate(mode *xrandr.Mode) {
	if !p.Active {
		p.Active = true
		p.Position = xrandr.Position{}
		p.Rotation = xrandr.RotationNormal
		p.Reflection = xrandr.ReflectionNone
	}
	p.Mode = mode
	p.ModeSize = mode.Size()
}

func (p *PredictedOutput) deactivate() {
	p.Active = false
	p.Mode = nil
	p.ModeSize = xrandr.Size{}
}

// Size is the size the output takes on the virtual screen, with the
// rotation applied.
func (p *PredictedOutput) Size() xrandr.Size {
	if p.Rotation.IsOdd() {
		return p.ModeSize.Swapped()
	}
	return p.ModeSize
}

// Geometry returns the area the output covers. It is false for inactive
// outputs.
func (p *PredictedOutput) Geometry() (xrandr.Geometry, bool) {
	if !p.Active || p.ModeSize == (xrandr.Size{}) {
		return xrandr.Geometry{}, false
	}
	size := p.Size()
	return xrandr.Geometry{
		Left:   p.Position.Left,
		Top:    p.Position.Top,
		Width:  size.Width,
		Height: size.Height,
	}, true
}

func (t *Transition) predictOutput(name string) *PredictedOutput {
	o := t.server.Outputs[name]
	p := &PredictedOutput{
		Name:       name,
		Connection: o.Connection,
		Active:     o.Active,
		Mode:       o.Mode(),
		Primary:    t.server.Primary == name,
	}
	if o.Active {
		p.Position = o.Geometry.Position()
		p.Rotation = *o.Rotation
		p.Reflection = *o.Reflection
		if p.Mode != nil {
			p.ModeSize = p.Mode.Size()
		} else {
			// the geometry is rotated already
			p.ModeSize = o.Geometry.Size()
			if p.Rotation.IsOdd() {
				p.ModeSize = p.ModeSize.Swapped()
			}
		}
	}

	for _, a := range t.outputs[name].aspects() {
		a.predict(t.env(name), p)
	}
	return p
}

// PredictedServer is a throwaway view of the server as it will be after
// the transition. It is not updated when the transition changes.
type PredictedServer struct {
	Virtual xrandr.Virtual              `json:"virtual"`
	Outputs map[string]*PredictedOutput `json:"outputs"`
	Primary string                      `json:"primary"`

	order []string
}

// Predict returns what the server will look like once the transition is
// applied.
func (t *Transition) Predict() *PredictedServer {
	s := &PredictedServer{
		Virtual: t.server.Virtual,
		Outputs: map[string]*PredictedOutput{},
		order:   append([]string(nil), t.order...),
	}
	for _, name := range t.order {
		p := t.predictOutput(name)
		s.Outputs[name] = p
		if p.Primary {
			s.Primary = name
		}
	}
	return s
}

func (s *PredictedServer) OutputNames() []string {
	return append([]string(nil), s.order...)
}

// Active returns the active outputs in server order.
func (s *PredictedServer) Active() []*PredictedOutput {
	var active []*PredictedOutput
	for _, name := range s.order {
		if _, ok := s.Outputs[name].Geometry(); ok {
			active = append(active, s.Outputs[name])
		}
	}
	return active
}

// BoundingBox returns the smallest geometry containing all active outputs.
func (s *PredictedServer) BoundingBox() (xrandr.Geometry, bool) {
	active := s.Active()
	if len(active) == 0 {
		return xrandr.Geometry{}, false
	}
	left, top := math.MaxInt, math.MaxInt
	right, bottom := math.MinInt, math.MinInt
	for _, o := range active {
		g, _ := o.Geometry()
		left = min(left, g.Left)
		top = min(top, g.Top)
		right = max(right, g.Left+g.Width)
		bottom = max(bottom, g.Top+g.Height)
	}
	return xrandr.Geometry{Left: left, Top: top, Width: right - left, Height: bottom - top}, true
}

// OutputAt returns the active output closest to (x, y), as long as it is
// not further away than tolerance. Later outputs win ties, as they are
// drawn on top.
func (s *PredictedServer) OutputAt(x, y, tolerance float64) (*PredictedOutput, bool) {
	var found *PredictedOutput
	best := math.Inf(1)
	for _, o := range s.Active() {
		g, _ := o.Geometry()
		d := g.Polygon().PointDistance(x, y)
		if d <= tolerance && d <= best {
			found, best = o, d
		}
	}
	return found, found != nil
}

// Snap returns the snapping helper for dragging the named output around
// the other active outputs.
func (s *PredictedServer) Snap(name string, tolerance int) *geometry.Snap {
	var size xrandr.Size
	if o, ok := s.Outputs[name]; ok {
		size = o.Size()
	}
	var obstacles []geometry.Rect
	for _, o := range s.Active() {
		if o.Name == name {
			continue
		}
		g, _ := o.Geometry()
		obstacles = append(obstacles, g.Rect())
	}
	return geometry.NewSnap(size.Width, size.Height, tolerance, obstacles)
}
