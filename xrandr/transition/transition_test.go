package transition

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/xrandrtest"
)

func mustOutput(t *testing.T, tr *Transition, name string) *Output {
	t.Helper()
	o, err := tr.Output(name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return o
}

func mustSerialize(t *testing.T, tr *Transition) []string {
	t.Helper()
	args, err := tr.Serialize()
	if err != nil {
		t.Fatalf("unexpected error serializing: %v", err)
	}
	return args
}

func TestEmpty(t *testing.T) {
	tr := New(xrandrtest.MustParse(t, xrandrtest.Verbose))

	if !tr.Empty() {
		t.Error("expected new transition to be empty")
	}
	if args := mustSerialize(t, tr); len(args) != 0 {
		t.Errorf("expected no arguments, got %q", args)
	}
	if tr.String() != "no changes" {
		t.Errorf("unexpected string %q", tr.String())
	}
}

func TestSerializeOrder(t *testing.T) {
	tr := New(xrandrtest.MustParse(t, xrandrtest.Verbose))

	hdmi := mustOutput(t, tr, "HDMI1")
	hdmi.Rotation.SetReflection(xrandr.ReflectionX)
	hdmi.Rotation.SetRotation(xrandr.RotationLeft)
	hdmi.Position.Set(xrandr.Position{Left: 1366, Top: 0})
	hdmi.Mode.SetRate(60)
	hdmi.Mode.SetNamed("1920x1080")
	if err := tr.SetPrimary("HDMI1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustOutput(t, tr, "LVDS1").Mode.SetOff()

	expected := "--output LVDS1 --off " +
		"--output HDMI1 --mode 1920x1080 --rate 60 --pos 1366x0 --rotate left --reflect x --primary"
	if got := strings.Join(mustSerialize(t, tr), " "); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
	if tr.String() != expected {
		t.Errorf("unexpected string %q", tr.String())
	}
}

func TestSerializeNoPrimary(t *testing.T) {
	tr := New(xrandrtest.MustParse(t, xrandrtest.Verbose))
	tr.SetNoPrimary()
	mustOutput(t, tr, "HDMI1").Mode.SetAuto()

	expected := "--noprimary --output HDMI1 --auto"
	if got := strings.Join(mustSerialize(t, tr), " "); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}

	p := tr.Predict()
	if p.Primary != "" || p.Outputs["LVDS1"].Primary {
		t.Errorf("expected no primary output, got %q", p.Primary)
	}

	if err := tr.SetPrimary("HDMI1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name, none := tr.Primary(); name != "HDMI1" || none {
		t.Errorf("expected primary to replace noprimary, got %q %v", name, none)
	}
	if tr.Predict().Primary != "HDMI1" {
		t.Error("expected HDMI1 to be predicted primary")
	}
}

func TestRoundTrip(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.Verbose)

	tests := []struct {
		name  string
		setup func(t *testing.T, tr *Transition)
	}{
		{
			name: "precise mode",
			setup: func(t *testing.T, tr *Transition) {
				mustOutput(t, tr, "HDMI1").Mode.SetPrecise(0x4b)
				mustOutput(t, tr, "HDMI1").Position.Set(xrandr.Position{Left: 1366, Top: 0})
			},
		},
		{
			name: "named mode with rate",
			setup: func(t *testing.T, tr *Transition) {
				o := mustOutput(t, tr, "HDMI1")
				o.Mode.SetNamed("1920x1080")
				o.Mode.SetRate(59.94)
				o.Rotation.SetRotation(xrandr.RotationRight)
				o.Rotation.SetReflection(xrandr.ReflectionXY)
			},
		},
		{
			name: "off and auto",
			setup: func(t *testing.T, tr *Transition) {
				mustOutput(t, tr, "LVDS1").Mode.SetOff()
				mustOutput(t, tr, "HDMI1").Mode.SetAuto()
				if err := tr.SetPrimary("HDMI1"); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "no primary",
			setup: func(t *testing.T, tr *Transition) {
				tr.SetNoPrimary()
				if err := tr.SetAnyPosition("LVDS1"); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "any mode",
			setup: func(t *testing.T, tr *Transition) {
				for _, name := range []string{"LVDS1", "HDMI1"} {
					if err := tr.SetAnyMode(name); err != nil {
						t.Fatal(err)
					}
				}
				mustOutput(t, tr, "HDMI1").Position.Set(xrandr.Position{Left: 0, Top: 768})
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := New(server)
			tc.setup(t, tr)
			args := mustSerialize(t, tr)

			loaded, err := Load(server, append([]string{"xrandr"}, args...))
			if err != nil {
				t.Fatalf("unable to load %q: %v", args, err)
			}

			for _, o := range tr.Outputs() {
				l := mustOutput(t, loaded, o.Name)
				if !reflect.DeepEqual(o, l) {
					t.Errorf("output %s differs after round trip: expected %+v, got %+v", o.Name, o, l)
				}
			}
			name, none := tr.Primary()
			lname, lnone := loaded.Primary()
			if name != lname || none != lnone {
				t.Errorf("primary differs after round trip: expected %q %v, got %q %v", name, none, lname, lnone)
			}
			if again := mustSerialize(t, loaded); strings.Join(again, " ") != strings.Join(args, " ") {
				t.Errorf("expected %q, got %q", args, again)
			}
		})
	}
}

func TestValidateIdempotent(t *testing.T) {
	tr := New(xrandrtest.MustParse(t, xrandrtest.Verbose))
	o := mustOutput(t, tr, "HDMI1")
	o.Mode.SetAuto()
	o.Mode.SetNamed("1920x1080")

	first := tr.Validate()
	if first == nil {
		t.Fatal("expected validation to fail")
	}
	for i := 0; i < 3; i++ {
		if err := tr.Validate(); err == nil || err.Error() != first.Error() {
			t.Fatalf("expected %v, got %v", first, err)
		}
	}
	if !o.Mode.Auto || o.Mode.Named == nil || *o.Mode.Named != "1920x1080" {
		t.Errorf("validation modified the transition: %+v", o.Mode)
	}
}

func TestModeMutualExclusion(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.Verbose)

	set := map[string]func(m *Mode){
		labelPrecise: func(m *Mode) { m.SetPrecise(0x4a) },
		labelNamed:   func(m *Mode) { m.SetNamed("1920x1080") },
		labelRate:    func(m *Mode) { m.SetRate(60) },
		labelAuto:    func(m *Mode) { m.SetAuto() },
		labelOff:     func(m *Mode) { m.SetOff() },
	}

	tests := [][2]string{
		{labelPrecise, labelNamed},
		{labelPrecise, labelRate},
		{labelAuto, labelPrecise},
		{labelAuto, labelNamed},
		{labelAuto, labelRate},
		{labelOff, labelPrecise},
		{labelOff, labelNamed},
		{labelOff, labelRate},
		{labelOff, labelAuto},
	}

	for _, tc := range tests {
		t.Run(tc[0]+" "+tc[1], func(t *testing.T) {
			tr := New(server)
			m := &mustOutput(t, tr, "HDMI1").Mode
			set[tc[0]](m)
			set[tc[1]](m)

			err := tr.Validate()
			var inadequate *xrandr.InadequateConfiguration
			if !errors.As(err, &inadequate) {
				t.Fatalf("expected *InadequateConfiguration, got %v", err)
			}
			if inadequate.Output != "HDMI1" {
				t.Errorf("expected output HDMI1, got %q", inadequate.Output)
			}
			if !reflect.DeepEqual(inadequate.Conflicting, []string{tc[0], tc[1]}) {
				t.Errorf("expected conflict %v, got %v", tc, inadequate.Conflicting)
			}
			if _, err := tr.Serialize(); err == nil {
				t.Error("expected serialize to fail as well")
			}
		})
	}

	// named mode and rate go together
	tr := New(server)
	m := &mustOutput(t, tr, "HDMI1").Mode
	m.SetNamed("1920x1080")
	m.SetRate(25)
	if err := tr.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateUnavailable(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.Verbose)

	tests := []struct {
		name  string
		setup func(tr *Transition)
	}{
		{name: "precise mode of other output", setup: func(tr *Transition) { tr.outputs["LVDS1"].Mode.SetPrecise(0x4a) }},
		{name: "unknown mode name", setup: func(tr *Transition) { tr.outputs["HDMI1"].Mode.SetNamed("640x480") }},
		{name: "rate without mode", setup: func(tr *Transition) { tr.outputs["HDMI1"].Mode.SetRate(60) }},
		{name: "negative position", setup: func(tr *Transition) { tr.outputs["LVDS1"].Position.Set(xrandr.Position{Left: -1}) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := New(server)
			tc.setup(tr)
			var inadequate *xrandr.InadequateConfiguration
			if err := tr.Validate(); !errors.As(err, &inadequate) {
				t.Fatalf("expected *InadequateConfiguration, got %v", err)
			}
		})
	}
}

const restricted = "Screen 0: minimum 320 x 200, current 1024 x 768, maximum 4096 x 4096\n" +
	"VGA1 connected 1024x768+0+0 (0x49) normal (normal inverted) 300mm x 220mm\n" +
	"  1024x768 (0x49) 65.000MHz -HSync -VSync *current +preferred\n" +
	"        h: width  1024 start 1048 end 1184 total 1344 skew    0 clock  48.36KHz\n" +
	"        v: height  768 start  771 end  777 total  806           clock  60.00Hz\n"

func TestValidateRotation(t *testing.T) {
	server := xrandrtest.MustParse(t, restricted)

	tr := New(server)
	o := mustOutput(t, tr, "VGA1")
	o.Rotation.SetRotation(xrandr.RotationInverted)
	if err := tr.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o.Rotation.SetRotation(xrandr.RotationLeft)
	var inadequate *xrandr.InadequateConfiguration
	if err := tr.Validate(); !errors.As(err, &inadequate) {
		t.Fatalf("expected *InadequateConfiguration for rotation, got %v", err)
	}

	o.Rotation.Clear()
	o.Rotation.SetReflection(xrandr.ReflectionX)
	if err := tr.Validate(); !errors.As(err, &inadequate) {
		t.Fatalf("expected *InadequateConfiguration for reflection, got %v", err)
	}
}

func TestBoundsAndShove(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.WithMaximum(3000, 2000))
	tr := New(server)

	o := mustOutput(t, tr, "HDMI1")
	o.Mode.SetNamed("1920x1080")
	o.Position.Set(xrandr.Position{Left: 2000, Top: 1000})

	var inadequate *xrandr.InadequateConfiguration
	if err := tr.Validate(); !errors.As(err, &inadequate) {
		t.Fatalf("expected *InadequateConfiguration, got %v", err)
	}

	if err := tr.ShoveToFit(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *o.Position.Position != (xrandr.Position{Left: 1080, Top: 920}) {
		t.Errorf("unexpected position after shove %v", *o.Position.Position)
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("expected shoved transition to validate, got %v", err)
	}
}

func TestBoundsRotated(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.WithMaximum(2000, 2000))
	tr := New(server)

	o := mustOutput(t, tr, "HDMI1")
	o.Mode.SetNamed("1920x1080")
	o.Position.Set(xrandr.Position{Left: 50, Top: 0})
	if err := tr.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1080 wide once rotated
	o.Position.Set(xrandr.Position{Left: 900, Top: 0})
	o.Rotation.SetRotation(xrandr.RotationLeft)
	if err := tr.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o.Position.Set(xrandr.Position{Left: 0, Top: 100})
	var inadequate *xrandr.InadequateConfiguration
	if err := tr.Validate(); !errors.As(err, &inadequate) {
		t.Fatalf("expected *InadequateConfiguration, got %v", err)
	}
}

func TestBoundsModeOnly(t *testing.T) {
	tr := New(xrandrtest.MustParse(t, xrandrtest.WithMaximum(1500, 1500)))

	// HDMI1 is inactive, its predicted position is 0x0
	mustOutput(t, tr, "HDMI1").Mode.SetNamed("1920x1080")
	var inadequate *xrandr.InadequateConfiguration
	if err := tr.Validate(); !errors.As(err, &inadequate) {
		t.Fatalf("expected *InadequateConfiguration, got %v", err)
	}

	// untouched outputs are not checked against the new maximum
	tr = New(xrandrtest.MustParse(t, xrandrtest.WithMaximum(1000, 1000)))
	mustOutput(t, tr, "HDMI1").Mode.SetOff()
	if err := tr.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadNegativePositionShoved(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.Verbose)

	tr, err := Load(server, []string{"--output", "HDMI1", "--mode", "1920x1080", "--pos", "-100x0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := mustOutput(t, tr, "HDMI1").Position.Position; p == nil || *p != (xrandr.Position{Left: -100, Top: 0}) {
		t.Fatalf("expected HDMI1 at -100x0, got %v", p)
	}

	if err := tr.ShoveToFit(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(mustSerialize(t, tr), " "); got != "--output HDMI1 --mode 1920x1080 --pos 0x0" {
		t.Errorf("unexpected transition %q", got)
	}
}

func TestShoveNormalizesNegativeOffsets(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.Verbose)

	tr := New(server)
	hdmi := mustOutput(t, tr, "HDMI1")
	hdmi.Mode.SetNamed("1920x1080")
	hdmi.Position.Set(xrandr.Position{Left: -100, Top: 0})

	if err := tr.ShoveToFit(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *hdmi.Position.Position != (xrandr.Position{Left: 0, Top: 0}) {
		t.Errorf("expected HDMI1 at 0x0, got %v", *hdmi.Position.Position)
	}
	if mustOutput(t, tr, "LVDS1").Position.Position != nil {
		t.Error("expected LVDS1 without explicit position to stay untouched")
	}

	// with an explicit position, LVDS1 moves along
	tr = New(server)
	hdmi = mustOutput(t, tr, "HDMI1")
	hdmi.Mode.SetNamed("1920x1080")
	hdmi.Position.Set(xrandr.Position{Left: -100, Top: 0})
	if err := tr.SetAnyPosition("LVDS1"); err != nil {
		t.Fatal(err)
	}

	if err := tr.ShoveToFit(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *hdmi.Position.Position != (xrandr.Position{Left: 0, Top: 0}) {
		t.Errorf("expected HDMI1 at 0x0, got %v", *hdmi.Position.Position)
	}
	if lvds := mustOutput(t, tr, "LVDS1").Position.Position; *lvds != (xrandr.Position{Left: 100, Top: 0}) {
		t.Errorf("expected LVDS1 at 100x0, got %v", *lvds)
	}
}

func TestShoveUnfit(t *testing.T) {
	tests := []struct {
		name  string
		max   [2]int
		setup func(t *testing.T, tr *Transition)
	}{
		{
			name: "output larger than screen",
			max:  [2]int{1000, 1000},
			setup: func(t *testing.T, tr *Transition) {
				o := mustOutput(t, tr, "HDMI1")
				o.Mode.SetNamed("1920x1080")
				o.Position.Set(xrandr.Position{})
			},
		},
		{
			name: "combined span too wide",
			max:  [2]int{2000, 2000},
			setup: func(t *testing.T, tr *Transition) {
				o := mustOutput(t, tr, "HDMI1")
				o.Mode.SetNamed("1920x1080")
				o.Position.Set(xrandr.Position{Left: -1000, Top: 0})
				mustOutput(t, tr, "LVDS1").Position.Set(xrandr.Position{})
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := New(xrandrtest.MustParse(t, xrandrtest.WithMaximum(tc.max[0], tc.max[1])))
			tc.setup(t, tr)

			var inadequate *xrandr.InadequateConfiguration
			if err := tr.ShoveToFit(); !errors.As(err, &inadequate) {
				t.Fatalf("expected *InadequateConfiguration, got %v", err)
			}
		})
	}
}

func TestSetAnyMode(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.Verbose)
	tr := New(server)

	if err := tr.SetAnyMode("LVDS1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m := mustOutput(t, tr, "LVDS1").Mode; m.Named == nil || *m.Named != "1366x768" {
		t.Errorf("expected current mode for active output, got %+v", m)
	}

	hdmi := mustOutput(t, tr, "HDMI1")
	hdmi.Mode.SetOff()
	hdmi.Mode.SetAuto()
	if err := tr.SetAnyMode("HDMI1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hdmi.Mode.Named == nil || *hdmi.Mode.Named != "1920x1080" || hdmi.Mode.Off || hdmi.Mode.Auto {
		t.Errorf("expected preferred mode and no off/auto, got %+v", hdmi.Mode)
	}

	// an existing choice is kept
	hdmi.Mode.Clear()
	hdmi.Mode.SetPrecise(0x4c)
	if err := tr.SetAnyMode("HDMI1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hdmi.Mode.Named != nil || *hdmi.Mode.Precise != 0x4c {
		t.Errorf("expected precise mode to be kept, got %+v", hdmi.Mode)
	}

	var inadequate *xrandr.InadequateConfiguration
	if err := tr.SetAnyMode("VGA1"); !errors.As(err, &inadequate) {
		t.Errorf("expected *InadequateConfiguration for output without modes, got %v", err)
	}
	if err := tr.SetAnyMode("eDP-1"); err == nil {
		t.Error("expected error for unknown output")
	}
}

func TestSetAnyPosition(t *testing.T) {
	server := xrandrtest.MustParse(t, strings.Replace(xrandrtest.Verbose, "1366x768+0+0", "1366x768+10+20", 1))
	tr := New(server)

	for name, expected := range map[string]xrandr.Position{
		"LVDS1": {Left: 10, Top: 20},
		"HDMI1": {},
	} {
		if err := tr.SetAnyPosition(name); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := *mustOutput(t, tr, name).Position.Position; got != expected {
			t.Errorf("expected %s at %v, got %v", name, expected, got)
		}
	}
}

func TestPredict(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.Verbose)

	tests := []struct {
		name     string
		setup    func(tr *Transition)
		output   string
		active   bool
		mode     xrandr.ModeID
		geometry xrandr.Geometry
	}{
		{
			name:     "unchanged",
			setup:    func(tr *Transition) {},
			output:   "LVDS1",
			active:   true,
			mode:     0x48,
			geometry: xrandr.Geometry{Width: 1366, Height: 768},
		},
		{
			name:   "off",
			setup:  func(tr *Transition) { tr.outputs["LVDS1"].Mode.SetOff() },
			output: "LVDS1",
		},
		{
			name:     "auto picks preferred",
			setup:    func(tr *Transition) { tr.outputs["HDMI1"].Mode.SetAuto() },
			output:   "HDMI1",
			active:   true,
			mode:     0x4a,
			geometry: xrandr.Geometry{Width: 1920, Height: 1080},
		},
		{
			name:   "auto on disconnected",
			setup:  func(tr *Transition) { tr.outputs["VGA1"].Mode.SetAuto() },
			output: "VGA1",
		},
		{
			name: "named with rate",
			setup: func(tr *Transition) {
				tr.outputs["HDMI1"].Mode.SetNamed("1920x1080")
				tr.outputs["HDMI1"].Mode.SetRate(24)
				tr.outputs["HDMI1"].Position.Set(xrandr.Position{Left: 1366})
			},
			output:   "HDMI1",
			active:   true,
			mode:     0x4b,
			geometry: xrandr.Geometry{Left: 1366, Width: 1920, Height: 1080},
		},
		{
			name: "precise and rotated",
			setup: func(tr *Transition) {
				tr.outputs["HDMI1"].Mode.SetPrecise(0x4c)
				tr.outputs["HDMI1"].Rotation.SetRotation(xrandr.RotationRight)
				tr.outputs["HDMI1"].Position.Set(xrandr.Position{Top: 768})
			},
			output:   "HDMI1",
			active:   true,
			mode:     0x4c,
			geometry: xrandr.Geometry{Top: 768, Width: 1024, Height: 1280},
		},
		{
			name:     "named mode of active output",
			setup:    func(tr *Transition) { tr.outputs["LVDS1"].Mode.SetNamed("1024x768") },
			output:   "LVDS1",
			active:   true,
			mode:     0x49,
			geometry: xrandr.Geometry{Width: 1024, Height: 768},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := New(server)
			tc.setup(tr)
			p := tr.Predict().Outputs[tc.output]

			g, ok := p.Geometry()
			if ok != tc.active || p.Active != tc.active {
				t.Fatalf("expected active=%v, got %v", tc.active, p.Active)
			}
			if !tc.active {
				return
			}
			if p.Mode == nil || p.Mode.ID != tc.mode {
				t.Errorf("expected mode %s, got %v", tc.mode, p.Mode)
			}
			if g != tc.geometry {
				t.Errorf("expected geometry %v, got %v", tc.geometry, g)
			}
		})
	}

	// the server snapshot is left alone
	if server.Outputs["HDMI1"].Active || server.Outputs["LVDS1"].Geometry.Width != 1366 {
		t.Error("prediction modified the server")
	}
}

func TestPredictedServerQueries(t *testing.T) {
	tr := New(xrandrtest.MustParse(t, xrandrtest.Verbose))
	hdmi := mustOutput(t, tr, "HDMI1")
	hdmi.Mode.SetAuto()
	hdmi.Position.Set(xrandr.Position{Left: 1366, Top: 0})
	p := tr.Predict()

	if p.Primary != "LVDS1" {
		t.Errorf("expected LVDS1 to stay primary, got %q", p.Primary)
	}

	box, ok := p.BoundingBox()
	if !ok || box != (xrandr.Geometry{Width: 3286, Height: 1080}) {
		t.Errorf("unexpected bounding box %v", box)
	}

	if o, ok := p.OutputAt(1500, 100, 0); !ok || o.Name != "HDMI1" {
		t.Errorf("expected HDMI1 at (1500, 100), got %v", o)
	}
	if o, ok := p.OutputAt(1000, 770, 5); !ok || o.Name != "LVDS1" {
		t.Errorf("expected LVDS1 near (1000, 770), got %v", o)
	}
	if _, ok := p.OutputAt(1000, 900, 5); ok {
		t.Error("expected no output at (1000, 900)")
	}

	left, top := p.Snap("HDMI1", 10).Suggest(1360, 5)
	if left != 1366 || top != 0 {
		t.Errorf("expected snap to 1366x0, got %dx%d", left, top)
	}
}

func TestUnserialize(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.Verbose)

	tr, err := Load(server, []string{"--output", "HDMI1", "--mode", "0x4b", "--output", "LVDS1", "--mode", "1024x768", "--primary"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m := mustOutput(t, tr, "HDMI1").Mode; m.Precise == nil || *m.Precise != 0x4b {
		t.Errorf("expected precise mode 0x4b, got %+v", m)
	}
	if m := mustOutput(t, tr, "LVDS1").Mode; m.Named == nil || *m.Named != "1024x768" {
		t.Errorf("expected named mode, got %+v", m)
	}
	if name, _ := tr.Primary(); name != "LVDS1" {
		t.Errorf("expected LVDS1 primary, got %q", name)
	}
}

func TestUnserializeErrors(t *testing.T) {
	server := xrandrtest.MustParse(t, xrandrtest.Verbose)

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown output", args: []string{"--output", "eDP-1", "--auto"}},
		{name: "unknown mode", args: []string{"--output", "HDMI1", "--mode", "640x480"}},
		{name: "precise mode of other output", args: []string{"--output", "LVDS1", "--mode", "0x4c"}},
		{name: "scale not handled", args: []string{"--output", "HDMI1", "--scale", "2x2"}},
		{name: "set not handled", args: []string{"--output", "LVDS1", "--set", "BACKLIGHT", "10"}},
		{name: "primary and noprimary", args: []string{"--noprimary", "--output", "LVDS1", "--primary"}},
		{name: "two primaries", args: []string{"--output", "LVDS1", "--primary", "--output", "HDMI1", "--primary"}},
		{name: "malformed", args: []string{"--output", "HDMI1", "--pos"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(server, tc.args)
			var syntaxErr *xrandr.FileSyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("expected *FileSyntaxError, got %v", err)
			}
		})
	}
}

func TestApply(t *testing.T) {
	r := xrandrtest.Runner(xrandrtest.Verbose).
		SetOutput("", "xrandr", "--output", "HDMI1", "--auto", "--pos", "1366x0")
	c := xrandr.NewClient(r, false)

	server, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr := New(server)
	hdmi := mustOutput(t, tr, "HDMI1")
	hdmi.Mode.SetAuto()
	hdmi.Position.Set(xrandr.Position{Left: 1366})

	if err := tr.Apply(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := r.Calls[len(r.Calls)-1].Argv
	if strings.Join(last, " ") != "xrandr --output HDMI1 --auto --pos 1366x0" {
		t.Errorf("unexpected invocation %q", last)
	}

	// invalid transitions never reach xrandr
	calls := len(r.Calls)
	hdmi.Mode.SetOff()
	if err := tr.Apply(context.Background(), c); err == nil {
		t.Error("expected invalid transition to fail")
	}
	if len(r.Calls) != calls {
		t.Error("expected no xrandr call for an invalid transition")
	}
}
