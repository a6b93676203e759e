package randr

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/flokli/randr-agent/executions"
	"github.com/flokli/randr-agent/outputs"
	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/xrandrtest"
)

type recorded struct {
	added, updated, removed []string
	screens                 int
	outputs                 map[string]outputs.Output
}

func newWatcher(t *testing.T, r *executions.Static) (*Watcher, *recorded) {
	t.Helper()
	w := New(xrandr.NewClient(r, false))
	rec := &recorded{outputs: map[string]outputs.Output{}}
	w.RegisterOutputAdd(func(o outputs.Output) {
		name := *o.GetInfo().Name
		rec.added = append(rec.added, name)
		rec.outputs[name] = o
	})
	w.RegisterOutputUpdate(func(o outputs.Output) {
		rec.updated = append(rec.updated, *o.GetInfo().Name)
	})
	w.RegisterOutputRemove(func(o outputs.Output) {
		rec.removed = append(rec.removed, *o.GetInfo().Name)
	})
	w.RegisterScreenUpdate(func(*xrandr.Server) { rec.screens++ })

	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return w, rec
}

func setVerbose(r *executions.Static, verbose string) {
	r.SetOutput(verbose, "xrandr", "--query", "--verbose")
}

func TestRefreshCallbacks(t *testing.T) {
	r := xrandrtest.Runner(xrandrtest.Verbose)
	w, rec := newWatcher(t, r)

	if strings.Join(rec.added, ",") != "LVDS1,HDMI1,DP1" {
		t.Errorf("unexpected added outputs %v", rec.added)
	}
	if rec.screens != 1 {
		t.Errorf("expected one screen update, got %d", rec.screens)
	}

	// nothing changed
	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.updated) != 0 || rec.screens != 1 {
		t.Errorf("expected no updates, got %v and %d screen updates", rec.updated, rec.screens)
	}

	setVerbose(r, strings.Replace(xrandrtest.Verbose, "1366x768+0+0", "1366x768+10+0", 1))
	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(rec.updated, ",") != "LVDS1" || rec.screens != 2 {
		t.Errorf("expected an update of LVDS1, got %v and %d screen updates", rec.updated, rec.screens)
	}
	if pos := rec.outputs["LVDS1"].GetState().Position; pos == nil || pos.X != 10 {
		t.Errorf("expected updated position, got %v", pos)
	}

	setVerbose(r, strings.Replace(xrandrtest.Verbose, "HDMI1 connected (", "HDMI1 disconnected (", 1))
	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(rec.removed, ",") != "HDMI1" {
		t.Errorf("expected HDMI1 to be removed, got %v", rec.removed)
	}
}

func TestRefreshFailure(t *testing.T) {
	r := xrandrtest.Runner(xrandrtest.Verbose)
	w, _ := newWatcher(t, r)

	setVerbose(r, "garbage\n")
	if err := w.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh of garbage to fail")
	}
	if w.Server() == nil {
		t.Error("expected the previous snapshot to be kept")
	}
}

// run with -race
func TestGettersDuringRefresh(t *testing.T) {
	r := xrandrtest.Runner(xrandrtest.Verbose)
	w, rec := newWatcher(t, r)
	lvds := rec.outputs["LVDS1"]

	done := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(done)
		wg.Wait()
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if state := lvds.GetState(); state.Enabled == nil {
				t.Error("expected enabled to be set")
			}
			if info := lvds.GetInfo(); *info.Name != "LVDS1" {
				t.Errorf("unexpected name %q", *info.Name)
			}
		}
	}()

	moved := strings.Replace(xrandrtest.Verbose, "1366x768+0+0", "1366x768+10+0", 1)
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			setVerbose(r, moved)
		} else {
			setVerbose(r, xrandrtest.Verbose)
		}
		if err := w.Refresh(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestGetInfoAndState(t *testing.T) {
	_, rec := newWatcher(t, xrandrtest.Runner(xrandrtest.Verbose))

	lvds := rec.outputs["LVDS1"]
	info := lvds.GetInfo()
	if *info.Connection != "connected" || len(*info.Modes) != 2 || *info.WidthMM != 309 {
		t.Errorf("unexpected info %+v", info)
	}
	if (*info.Modes)[0].ID != "0x48" || !(*info.Modes)[0].Preferred {
		t.Errorf("unexpected first mode %+v", (*info.Modes)[0])
	}

	state := lvds.GetState()
	if !*state.Enabled || !*state.Primary || *state.Rotation != "normal" || *state.Reflection != "noaxis" {
		t.Errorf("unexpected state %+v", state)
	}
	if state.Mode == nil || state.Mode.Width != 1366 || state.Mode.Name != "1366x768" {
		t.Errorf("unexpected mode %+v", state.Mode)
	}

	hdmi := rec.outputs["HDMI1"].GetState()
	if *hdmi.Enabled || hdmi.Mode != nil || hdmi.Position != nil {
		t.Errorf("expected inactive HDMI1 without mode and position, got %+v", hdmi)
	}
}

func lastApply(r *executions.Static) string {
	for i := len(r.Calls) - 1; i >= 0; i-- {
		argv := r.Calls[i].Argv
		if len(argv) > 1 && argv[1] != "--help" && argv[1] != "--version" && argv[1] != "--query" {
			return strings.Join(argv, " ")
		}
	}
	return ""
}

func TestSetState(t *testing.T) {
	enabled := true
	tests := []struct {
		name     string
		output   string
		snap     int
		state    outputs.State
		expected string
	}{
		{
			name:     "enable at position",
			output:   "HDMI1",
			state:    outputs.State{Enabled: &enabled, Position: &outputs.Position{X: 1366, Y: 0}},
			expected: "xrandr --output HDMI1 --mode 1920x1080 --pos 1366x0",
		},
		{
			name:     "snapped position",
			output:   "HDMI1",
			snap:     10,
			state:    outputs.State{Enabled: &enabled, Position: &outputs.Position{X: 1360, Y: 4}},
			expected: "xrandr --output HDMI1 --mode 1920x1080 --pos 1366x0",
		},
		{
			name:     "mode with rate",
			output:   "HDMI1",
			state:    outputs.State{Mode: &outputs.Mode{Width: 1920, Height: 1080, Refresh: 25}},
			expected: "xrandr --output HDMI1 --mode 1920x1080 --rate 25 --pos 0x0",
		},
		{
			name:     "shoved",
			output:   "HDMI1",
			state:    outputs.State{Enabled: &enabled, Position: &outputs.Position{X: -100, Y: 0}},
			expected: "xrandr --output HDMI1 --mode 1920x1080 --pos 0x0",
		},
		{
			name:     "rotate and drop primary",
			output:   "LVDS1",
			state:    outputs.State{Rotation: strPtr("left"), Primary: boolPtr(false)},
			expected: "xrandr --noprimary --output LVDS1 --rotate left",
		},
		{
			name:     "disable",
			output:   "LVDS1",
			state:    outputs.State{Enabled: boolPtr(false)},
			expected: "xrandr --output LVDS1 --off",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := xrandrtest.Runner(xrandrtest.Verbose)
			r.SetOutput("", strings.Fields(tc.expected)...)
			w, rec := newWatcher(t, r)
			w.SnapTolerance = tc.snap

			if _, err := rec.outputs[tc.output].SetState(context.Background(), &tc.state); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := lastApply(r); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestSetStateInvalid(t *testing.T) {
	r := xrandrtest.Runner(xrandrtest.Verbose)
	_, rec := newWatcher(t, r)
	hdmi := rec.outputs["HDMI1"]

	for _, state := range []outputs.State{
		{Mode: &outputs.Mode{Width: 640, Height: 480}},
		{Rotation: strPtr("sideways")},
		{Enabled: boolPtr(false), Mode: &outputs.Mode{Width: 1920, Height: 1080}},
	} {
		if _, err := hdmi.SetState(context.Background(), &state); err == nil {
			t.Errorf("expected error for %+v", state)
		}
	}
	if got := lastApply(r); got != "" {
		t.Errorf("expected xrandr not to be invoked, got %q", got)
	}
}

func TestWatcherApply(t *testing.T) {
	r := xrandrtest.Runner(xrandrtest.Verbose)
	r.SetOutput("", "xrandr", "--output", "HDMI1", "--auto", "--pos", "1366x0")
	w, _ := newWatcher(t, r)

	tr, err := w.Apply(context.Background(), []string{"xrandr", "--output", "HDMI1", "--auto", "--pos", "1366x0"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.String() != "--output HDMI1 --auto --pos 1366x0" {
		t.Errorf("unexpected transition %s", tr)
	}
	if got := lastApply(r); got != "xrandr --output HDMI1 --auto --pos 1366x0" {
		t.Errorf("unexpected invocation %q", got)
	}

	if _, err := w.Apply(context.Background(), []string{"--output", "HDMI9", "--auto"}, false); err == nil {
		t.Error("expected unknown output to fail")
	}
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
