package transition

import (
	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/cmdline"
)

// primary is the per output side of the primary setting, which itself
// lives on the Transition.
type primary struct{}

func (primary) empty(env) bool { return true }

func (primary) validate(env) error { return nil }

func (primary) serialize(e env) []string {
	if e.transition.primary == e.name {
		return []string{"--primary"}
	}
	return nil
}

func (primary) unserialize(e env, bag cmdline.Bag) error {
	if _, ok := bag.Take("primary"); !ok {
		return nil
	}
	t := e.transition
	if t.noPrimary {
		return xrandr.FileSyntaxErrorf("--primary for output %s conflicts with --noprimary", e.name)
	}
	if t.primary != "" && t.primary != e.name {
		return xrandr.FileSyntaxErrorf("--primary given for both %s and %s", t.primary, e.name)
	}
	t.primary = e.name
	return nil
}

func (primary) predict(e env, p *PredictedOutput) {
	t := e.transition
	switch {
	case t.noPrimary:
		p.Primary = false
	case t.primary != "":
		p.Primary = t.primary == e.name
	}
}
