package transition

import (
	"fmt"

	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/cmdline"
)

// Position is the position aspect of an output.
type Position struct {
	Position *xrandr.Position `json:"position,omitempty"`
}

func (p *Position) Set(pos xrandr.Position) { p.Position = &pos }

func (p *Position) Clear() { p.Position = nil }

// SetAny keeps the current position of an active output, or puts an
// inactive one at the origin.
func (p *Position) SetAny(o *xrandr.Output) {
	if o.Active && o.Geometry != nil {
		p.Set(o.Geometry.Position())
		return
	}
	p.Set(xrandr.Position{})
}

func (p *Position) empty(env) bool { return p.Position == nil }

// validate checks the predicted geometry of every output whose position,
// mode or rotation changes. Untouched outputs are never checked.
func (p *Position) validate(e env) error {
	if p.Position == nil {
		o := e.transition.outputs[e.name]
		if o.Mode.empty(e) && o.Rotation.empty(e) {
			return nil
		}
	} else if p.Position.Left < 0 || p.Position.Top < 0 {
		return &xrandr.InadequateConfiguration{
			Output: e.name,
			Msg:    fmt.Sprintf("position %s is negative", p.Position),
		}
	}

	predicted := e.transition.predictOutput(e.name)
	g, ok := predicted.Geometry()
	if !ok {
		return nil
	}
	bounds := e.server().Virtual.Max
	if g.Left+g.Width > bounds.Width || g.Top+g.Height > bounds.Height {
		return &xrandr.InadequateConfiguration{
			Output: e.name,
			Msg:    fmt.Sprintf("geometry %s exceeds the maximum virtual screen size %s", g, bounds),
		}
	}
	return nil
}

func (p *Position) serialize(env) []string {
	if p.Position == nil {
		return nil
	}
	return []string{"--pos", p.Position.String()}
}

func (p *Position) unserialize(e env, bag cmdline.Bag) error {
	pos, ok := bag.Take("pos")
	if !ok {
		return nil
	}
	parsed, err := xrandr.ParsePosition(pos)
	if err != nil {
		return xrandr.FileSyntaxErrorf("invalid position for output %s: %v", e.name, err)
	}
	p.Set(parsed)
	return nil
}

func (p *Position) predict(e env, out *PredictedOutput) {
	if p.Position != nil {
		out.Position = *p.Position
	}
}
