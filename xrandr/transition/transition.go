// Package transition holds pending changes to a Server and turns them into
// xrandr arguments.
//
// Every Output of a Transition is a fixed pipeline of aspects (mode,
// position, rotation, primary). Each aspect validates, serializes,
// unserializes and predicts only its own part; the pipeline order is the
// order arguments are emitted in.
package transition

import (
	"context"
	"fmt"
	"strings"

	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/cmdline"
	log "github.com/sirupsen/logrus"
)

// env is what an aspect gets to see of the world: the name of the output it
// belongs to, resolved through the transition and its server.
type env struct {
	name       string
	transition *Transition
}

func (e env) server() *xrandr.Server { return e.transition.server }

func (e env) output() *xrandr.Output { return e.transition.server.Outputs[e.name] }

type aspect interface {
	validate(e env) error
	serialize(e env) []string
	unserialize(e env, bag cmdline.Bag) error
	predict(e env, p *PredictedOutput)
	empty(e env) bool
}

// Output is the pending change of a single output.
type Output struct {
	Name     string
	Mode     Mode
	Position Position
	Rotation Rotation
	primary  primary
}

func (o *Output) aspects() []aspect {
	return []aspect{&o.Mode, &o.Position, &o.Rotation, &o.primary}
}

// Transition is a set of pending changes relative to a Server snapshot. The
// server is only read. A Transition is not safe for concurrent use.
type Transition struct {
	server  *xrandr.Server
	outputs map[string]*Output
	order   []string

	primary   string
	noPrimary bool
}

// New returns an empty transition for every output of server.
func New(server *xrandr.Server) *Transition {
	t := &Transition{
		server:  server,
		outputs: map[string]*Output{},
		order:   server.OutputNames(),
	}
	for _, name := range t.order {
		t.outputs[name] = &Output{Name: name}
	}
	return t
}

func (t *Transition) Server() *xrandr.Server { return t.server }

// Output returns the pending change of the named output.
func (t *Transition) Output(name string) (*Output, error) {
	o, ok := t.outputs[name]
	if !ok {
		return nil, fmt.Errorf("no such output: %s", name)
	}
	return o, nil
}

// Outputs returns all outputs in server order.
func (t *Transition) Outputs() []*Output {
	out := make([]*Output, len(t.order))
	for i, name := range t.order {
		out[i] = t.outputs[name]
	}
	return out
}

func (t *Transition) env(name string) env {
	return env{name: name, transition: t}
}

// SetPrimary makes the named output primary.
func (t *Transition) SetPrimary(name string) error {
	if _, ok := t.outputs[name]; !ok {
		return fmt.Errorf("no such output: %s", name)
	}
	t.primary = name
	t.noPrimary = false
	return nil
}

// SetNoPrimary requests that no output is primary.
func (t *Transition) SetNoPrimary() {
	t.primary = ""
	t.noPrimary = true
}

// ClearPrimary leaves the primary output as it is on the server.
func (t *Transition) ClearPrimary() {
	t.primary = ""
	t.noPrimary = false
}

// Primary returns the name of the output requested to be primary, and
// whether "no primary" was requested. Both empty means unchanged.
func (t *Transition) Primary() (string, bool) {
	return t.primary, t.noPrimary
}

// SetAnyMode configures some mode on the named output, see Mode.SetAny.
func (t *Transition) SetAnyMode(name string) error {
	o, err := t.Output(name)
	if err != nil {
		return err
	}
	return o.Mode.SetAny(t.server.Outputs[name])
}

// SetAnyPosition configures some position on the named output, see
// Position.SetAny.
func (t *Transition) SetAnyPosition(name string) error {
	o, err := t.Output(name)
	if err != nil {
		return err
	}
	o.Position.SetAny(t.server.Outputs[name])
	return nil
}

// Empty tells whether applying the transition would not change anything.
func (t *Transition) Empty() bool {
	if t.primary != "" || t.noPrimary {
		return false
	}
	for _, name := range t.order {
		for _, a := range t.outputs[name].aspects() {
			if !a.empty(t.env(name)) {
				return false
			}
		}
	}
	return true
}

// Validate checks the transition against the server. It does not modify
// anything, so it can be called any number of times. Problems are reported
// as *xrandr.InadequateConfiguration.
func (t *Transition) Validate() error {
	if t.primary != "" && t.noPrimary {
		return &xrandr.InadequateConfiguration{
			Output:      t.primary,
			Conflicting: []string{"--primary", "--noprimary"},
			Msg:         "an output can not be primary when no primary output is requested",
		}
	}
	for _, name := range t.order {
		for _, a := range t.outputs[name].aspects() {
			if err := a.validate(t.env(name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Serialize validates the transition and returns the xrandr arguments that
// apply it. An empty transition serializes to no arguments.
func (t *Transition) Serialize() ([]string, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	var args []string
	if t.noPrimary {
		args = append(args, "--noprimary")
	}
	for _, name := range t.order {
		var fragment []string
		for _, a := range t.outputs[name].aspects() {
			fragment = append(fragment, a.serialize(t.env(name))...)
		}
		if len(fragment) != 0 {
			args = append(args, "--output", name)
			args = append(args, fragment...)
		}
	}
	return args, nil
}

// Unserialize loads parsed xrandr arguments into the transition. The
// values are consumed from opts; anything no aspect handles is an
// *xrandr.FileSyntaxError.
func (t *Transition) Unserialize(opts *cmdline.Options) error {
	if _, ok := opts.Screen.Take("noprimary"); ok {
		t.SetNoPrimary()
	}
	if len(opts.Screen) != 0 {
		return xrandr.FileSyntaxErrorf("unhandled arguments remain: %s", strings.Join(opts.Screen.Keys(), ", "))
	}

	for _, g := range opts.Outputs {
		o, ok := t.outputs[g.Name]
		if !ok {
			return xrandr.FileSyntaxErrorf("xrandr command mentions unknown output %q", g.Name)
		}
		for _, a := range o.aspects() {
			if err := a.unserialize(t.env(g.Name), g.Bag); err != nil {
				return err
			}
		}
		if len(g.Bag) != 0 {
			return xrandr.FileSyntaxErrorf("unserialized arguments remain for output %s: %s",
				g.Name, strings.Join(g.Bag.Keys(), ", "))
		}
	}
	return nil
}

// Load parses an xrandr argument vector and unserializes it into a new
// transition for server.
func Load(server *xrandr.Server, args []string) (*Transition, error) {
	opts, err := cmdline.Parse(args)
	if err != nil {
		return nil, err
	}
	t := New(server)
	if err := t.Unserialize(opts); err != nil {
		return nil, err
	}
	return t, nil
}

// Apply serializes the transition and runs xrandr with the result.
func (t *Transition) Apply(ctx context.Context, c *xrandr.Client) error {
	args, err := t.Serialize()
	if err != nil {
		return err
	}
	log.WithField("args", args).Info("applying transition")
	return c.Apply(ctx, args)
}

func (t *Transition) String() string {
	args, err := t.Serialize()
	if err != nil {
		return fmt.Sprintf("invalid transition: %v", err)
	}
	if len(args) == 0 {
		return "no changes"
	}
	return strings.Join(args, " ")
}
