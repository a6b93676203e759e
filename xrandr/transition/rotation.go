package transition

import (
	"fmt"

	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/cmdline"
)

// Rotation is the rotation and reflection aspect of an output.
type Rotation struct {
	Rotation   *xrandr.Rotation   `json:"rotation,omitempty"`
	Reflection *xrandr.Reflection `json:"reflection,omitempty"`
}

func (r *Rotation) SetRotation(rotation xrandr.Rotation) { r.Rotation = &rotation }

func (r *Rotation) SetReflection(reflection xrandr.Reflection) { r.Reflection = &reflection }

func (r *Rotation) Clear() { *r = Rotation{} }

func (r *Rotation) empty(env) bool { return r.Rotation == nil && r.Reflection == nil }

func (r *Rotation) validate(e env) error {
	o := e.output()
	if r.Rotation != nil && !o.SupportsRotation(*r.Rotation) {
		return &xrandr.InadequateConfiguration{
			Output: e.name,
			Msg:    fmt.Sprintf("rotation %s is not supported", *r.Rotation),
		}
	}
	if r.Reflection != nil && !o.SupportsReflection(*r.Reflection) {
		return &xrandr.InadequateConfiguration{
			Output: e.name,
			Msg:    fmt.Sprintf("reflection %s is not supported", *r.Reflection),
		}
	}
	return nil
}

func (r *Rotation) serialize(env) []string {
	var args []string
	if r.Rotation != nil {
		args = append(args, "--rotate", r.Rotation.String())
	}
	if r.Reflection != nil {
		args = append(args, "--reflect", r.Reflection.Arg())
	}
	return args
}

func (r *Rotation) unserialize(e env, bag cmdline.Bag) error {
	if s, ok := bag.Take("rotate"); ok {
		rotation, err := xrandr.ParseRotation(s)
		if err != nil {
			return xrandr.FileSyntaxErrorf("output %s: %v", e.name, err)
		}
		r.SetRotation(rotation)
	}
	if s, ok := bag.Take("reflect"); ok {
		reflection, err := xrandr.ParseReflection(s)
		if err != nil {
			return xrandr.FileSyntaxErrorf("output %s: %v", e.name, err)
		}
		r.SetReflection(reflection)
	}
	return nil
}

func (r *Rotation) predict(e env, p *PredictedOutput) {
	if r.Rotation != nil {
		p.Rotation = *r.Rotation
	}
	if r.Reflection != nil {
		p.Reflection = *r.Reflection
	}
}
