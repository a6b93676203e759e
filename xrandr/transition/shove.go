package transition

import (
	"fmt"

	"github.com/flokli/randr-agent/xrandr"
	log "github.com/sirupsen/logrus"
)

// shoveToFit moves an explicitly positioned output back inside the maximum
// virtual screen size, by no more than needed.
func (p *Position) shoveToFit(e env) {
	if p.Position == nil {
		return
	}
	g, ok := e.transition.predictOutput(e.name).Geometry()
	if !ok {
		return
	}
	bounds := e.server().Virtual.Max
	pos := *p.Position
	if overflow := g.Left + g.Width - bounds.Width; overflow > 0 {
		pos.Left -= overflow
	}
	if overflow := g.Top + g.Height - bounds.Height; overflow > 0 {
		pos.Top -= overflow
	}
	if pos != *p.Position {
		log.WithFields(log.Fields{
			"output": e.name,
			"from":   p.Position.String(),
			"to":     pos.String(),
		}).Debug("shoving output into the virtual screen")
		p.Set(pos)
	}
}

// ShoveToFit repositions explicitly positioned outputs so the transition
// passes the bounds checks of Validate. Every output is first moved back
// inside the maximum screen size; then, if any of them sits at a negative
// offset, all explicitly positioned outputs are moved by the same amount
// until the smallest offset is 0. Outputs without an explicit position are
// never moved.
//
// If the outputs can not fit, an *xrandr.InadequateConfiguration is
// returned and the positions are left shoved as far as possible.
func (t *Transition) ShoveToFit() error {
	for _, name := range t.order {
		t.outputs[name].Position.shoveToFit(t.env(name))
	}

	minLeft, minTop := 0, 0
	for _, name := range t.order {
		if pos := t.outputs[name].Position.Position; pos != nil {
			minLeft = min(minLeft, pos.Left)
			minTop = min(minTop, pos.Top)
		}
	}
	if minLeft < 0 || minTop < 0 {
		log.WithFields(log.Fields{
			"left": -minLeft,
			"top":  -minTop,
		}).Debug("moving positioned outputs off negative offsets")
		for _, name := range t.order {
			p := &t.outputs[name].Position
			if p.Position == nil {
				continue
			}
			p.Set(xrandr.Position{Left: p.Position.Left - minLeft, Top: p.Position.Top - minTop})
		}
	}

	for _, name := range t.order {
		if err := t.outputs[name].Position.validate(t.env(name)); err != nil {
			return &xrandr.InadequateConfiguration{
				Output: name,
				Msg:    fmt.Sprintf("outputs do not fit into the virtual screen: %v", err),
			}
		}
	}
	return nil
}
