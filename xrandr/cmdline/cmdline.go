// Package cmdline reads xrandr argument vectors into a bag of options,
// grouped by the output they follow.
package cmdline

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/flokli/randr-agent/xrandr"
	"rsc.io/getopt"
)

// Bag holds the values of the flags given for one scope. Boolean flags
// that were given have the value "true".
type Bag map[string]string

// Take returns the value of key and removes it from the bag.
func (b Bag) Take(key string) (string, bool) {
	v, ok := b[key]
	if ok {
		delete(b, key)
	}
	return v, ok
}

// Keys returns the keys left in the bag, sorted.
func (b Bag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Group is the set of flags following one --output.
type Group struct {
	Name string
	Bag  Bag
}

// Options is a parsed command line. Outputs are kept in the order they
// were first mentioned; mentioning an output again adds to its group.
type Options struct {
	Screen  Bag
	Outputs []*Group
}

// Output returns the group of the named output, if it was mentioned.
func (o *Options) Output(name string) (*Group, bool) {
	for _, g := range o.Outputs {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

type recorder struct {
	opts    *Options
	current *Group
}

func (r *recorder) selectOutput(name string) error {
	if name == "" {
		return fmt.Errorf("output name is empty")
	}
	if g, ok := r.opts.Output(name); ok {
		r.current = g
		return nil
	}
	r.current = &Group{Name: name, Bag: Bag{}}
	r.opts.Outputs = append(r.opts.Outputs, r.current)
	return nil
}

// outputValue records a per output flag into the group of the last
// --output. check, if set, validates the value.
type outputValue struct {
	r       *recorder
	name    string
	boolean bool
	check   func(string) error
}

func (v *outputValue) String() string { return "" }

func (v *outputValue) IsBoolFlag() bool { return v.boolean }

func (v *outputValue) Set(s string) error {
	if v.r.current == nil {
		return fmt.Errorf("--%s given before any --output", v.name)
	}
	if v.boolean {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		if !b {
			delete(v.r.current.Bag, v.name)
			return nil
		}
		s = "true"
	}
	if v.check != nil {
		if err := v.check(s); err != nil {
			return err
		}
	}
	v.r.current.Bag[v.name] = s
	return nil
}

type screenValue struct {
	bag  Bag
	name string
}

func (v *screenValue) String() string { return "" }

func (v *screenValue) IsBoolFlag() bool { return true }

func (v *screenValue) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if b {
		v.bag[v.name] = "true"
	} else {
		delete(v.bag, v.name)
	}
	return nil
}

type outputSelector struct {
	r *recorder
}

func (v *outputSelector) String() string { return "" }

func (v *outputSelector) Set(s string) error { return v.r.selectOutput(s) }

func oneOf(values ...string) func(string) error {
	return func(s string) error {
		for _, v := range values {
			if s == v {
				return nil
			}
		}
		return fmt.Errorf("expected one of %s", strings.Join(values, ", "))
	}
}

func checkFloat(s string) error {
	_, err := strconv.ParseFloat(s, 64)
	return err
}

func checkPosition(s string) error {
	_, err := xrandr.ParsePosition(s)
	return err
}

func checkSize(s string) error {
	_, err := xrandr.ParseSize(s)
	return err
}

func checkTransform(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 9 {
		return fmt.Errorf("expected 9 comma separated values")
	}
	for _, p := range parts {
		if err := checkFloat(p); err != nil {
			return err
		}
	}
	return nil
}

func newFlagSet(opts *Options) *getopt.FlagSet {
	r := &recorder{opts: opts}

	fs := getopt.NewFlagSet("xrandr", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.Var(&outputSelector{r: r}, "output", "select the output following flags apply to")
	fs.Var(&screenValue{bag: opts.Screen, name: "noprimary"}, "noprimary", "unset the primary output")

	for _, v := range []*outputValue{
		{name: "auto", boolean: true},
		{name: "off", boolean: true},
		{name: "primary", boolean: true},
		{name: "mode"},
		{name: "pos", check: checkPosition},
		{name: "rate", check: checkFloat},
		{name: "reflect", check: oneOf("normal", "x", "y", "xy")},
		{name: "rotate", check: oneOf("normal", "left", "right", "inverted")},
		{name: "scale", check: checkSize},
		{name: "transform", check: checkTransform},
		{name: "panning"},
		{name: "set"},
	} {
		v.r = r
		fs.Var(v, v.name, "per output "+v.name)
	}

	return fs
}

// joinSetArgs folds the two arguments of --set into one, since flag values
// take a single argument.
func joinSetArgs(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] != "--set" {
			out = append(out, args[i])
			continue
		}
		if i+2 >= len(args) {
			return nil, fmt.Errorf("--set takes a property and a value")
		}
		out = append(out, "--set="+args[i+1]+" "+args[i+2])
		i += 2
	}
	return out, nil
}

// Parse reads an xrandr argument vector. A leading "xrandr" is skipped.
// Malformed or unknown arguments are an *xrandr.FileSyntaxError.
func Parse(args []string) (*Options, error) {
	if len(args) > 0 && args[0] == "xrandr" {
		args = args[1:]
	}

	args, err := joinSetArgs(args)
	if err != nil {
		return nil, xrandr.FileSyntaxErrorf("%v", err)
	}

	opts := &Options{Screen: Bag{}}
	fs := newFlagSet(opts)
	if err := fs.Parse(args); err != nil {
		return nil, xrandr.FileSyntaxErrorf("%v", err)
	}
	if fs.NArg() != 0 {
		return nil, xrandr.FileSyntaxErrorf("unexpected arguments: %q", fs.Args())
	}

	return opts, nil
}

// ParseLine splits a shell style line like the ones in saved layout
// scripts on whitespace and parses it. Quoting is not supported.
func ParseLine(line string) (*Options, error) {
	return Parse(strings.Fields(line))
}
