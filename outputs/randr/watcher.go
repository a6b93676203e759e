// Package randr exposes the outputs of an X server, as seen by xrandr, as
// outputs.Output.
package randr

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/flokli/randr-agent/outputs"
	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/transition"
	log "github.com/sirupsen/logrus"
)

// Watcher contains all screen-wide state
type Watcher struct {
	client *xrandr.Client
	// SnapTolerance, if positive, snaps requested positions to the edges of
	// other outputs closer than this many pixels.
	SnapTolerance int

	outputs   map[string]*Output
	server    *xrandr.Server
	outputsMu sync.Mutex

	// Called when the output appeared
	onAddFns []func(outputs.Output)
	// Called when the output was updated
	onUpdateFns []func(outputs.Output)
	// Called when the output was removed
	onRemoveFns []func(outputs.Output)
	// Called after every refresh that changed anything
	onScreenFns []func(*xrandr.Server)
}

func New(client *xrandr.Client) *Watcher {
	return &Watcher{
		client:  client,
		outputs: make(map[string]*Output),
	}
}

// Run refreshes the outputs every refreshInterval, until ctx is done.
// Afterwards, the remove handlers are called for all outputs.
func (w *Watcher) Run(ctx context.Context, refreshInterval time.Duration) {
	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	if err := w.Refresh(ctx); err != nil {
		log.WithError(err).Error("Failed to refresh outputs")
	}

	for {
		select {
		case <-refreshTicker.C:
			if err := w.Refresh(ctx); err != nil {
				log.WithError(err).Error("Failed to refresh outputs")
			}
		case <-ctx.Done():
			w.outputsMu.Lock()
			defer w.outputsMu.Unlock()
			for outputName, output := range w.outputs {
				log.WithField("outputName", outputName).Debug("calling cleanup handlers")
				for _, removeFn := range w.onRemoveFns {
					removeFn(output)
				}
			}
			w.outputs = make(map[string]*Output)
			return
		}
	}
}

// Register a new handler for when an output was added
func (w *Watcher) RegisterOutputAdd(fn func(outputs.Output)) {
	w.onAddFns = append(w.onAddFns, fn)
}

// Register a new handler for when an output was updated
func (w *Watcher) RegisterOutputUpdate(fn func(outputs.Output)) {
	w.onUpdateFns = append(w.onUpdateFns, fn)
}

// Register a new handler for when an output was removed
func (w *Watcher) RegisterOutputRemove(fn func(outputs.Output)) {
	w.onRemoveFns = append(w.onRemoveFns, fn)
}

// Register a new handler for when the screen changed
func (w *Watcher) RegisterScreenUpdate(fn func(*xrandr.Server)) {
	w.onScreenFns = append(w.onScreenFns, fn)
}

// Server returns the last loaded snapshot, or nil.
func (w *Watcher) Server() *xrandr.Server {
	w.outputsMu.Lock()
	defer w.outputsMu.Unlock()
	return w.server
}

// Refresh invokes `xrandr --query --verbose` and syncs the state observed
// from there with the internal state in all outputs.
func (w *Watcher) Refresh(ctx context.Context) error {
	w.outputsMu.Lock()
	defer w.outputsMu.Unlock()
	return w.refresh(ctx)
}

func (w *Watcher) refresh(ctx context.Context) error {
	l := log.WithField("f", "refresh")
	l.Debug("refreshing outputs")

	server, err := w.client.Load(ctx)
	if err != nil {
		return fmt.Errorf("Failed to load xrandr state: %w", err)
	}
	changed := w.server == nil || !sameServer(w.server, server)
	w.server = server

	// loop over all outputs returned
	seenOutputNames := make(map[string]interface{}, len(server.Outputs))

	for _, outputName := range server.OutputNames() {
		xo := server.Outputs[outputName]
		// empty ports are not outputs anyone can use
		if xo.Connection == xrandr.Disconnected && !xo.Active {
			continue
		}
		l := log.WithField("outputName", outputName)

		seenOutputNames[outputName] = nil

		// the output already exists…
		if oldOutput, old := w.outputs[outputName]; old {
			prevState, prevInfo := oldOutput.GetState(), oldOutput.GetInfo()
			oldOutput.output.Store(xo)

			if reflect.DeepEqual(prevState, oldOutput.GetState()) && reflect.DeepEqual(prevInfo, oldOutput.GetInfo()) {
				continue
			}
			l.Debug("calling update fns")
			for _, updateFn := range w.onUpdateFns {
				updateFn(oldOutput)
			}
		} else {
			added := newOutput(w, xo)
			w.outputs[outputName] = added

			l.Debug("calling add fns")
			for _, addFn := range w.onAddFns {
				addFn(added)
			}
		}
	}

	// loop over all outputs in our global state, remove these that we didn't see.
	for prevOutputName, prevOutput := range w.outputs {
		if _, found := seenOutputNames[prevOutputName]; !found {
			delete(w.outputs, prevOutputName)

			log.WithField("outputName", prevOutputName).Debug("calling remove fns")
			for _, removeFn := range w.onRemoveFns {
				removeFn(prevOutput)
			}
		}
	}

	if changed {
		for _, screenFn := range w.onScreenFns {
			screenFn(server)
		}
	}

	return nil
}

// sameServer compares two snapshots, ignoring the timestamps xrandr bumps
// on every configuration change.
func sameServer(a, b *xrandr.Server) bool {
	if a.Virtual != b.Virtual || a.Primary != b.Primary || !reflect.DeepEqual(a.OutputNames(), b.OutputNames()) {
		return false
	}
	for name, ao := range a.Outputs {
		bo := b.Outputs[name]
		if ao.Connection != bo.Connection || ao.Active != bo.Active ||
			!reflect.DeepEqual(ao.Geometry, bo.Geometry) || !reflect.DeepEqual(ao.ModeID, bo.ModeID) ||
			!reflect.DeepEqual(ao.Rotation, bo.Rotation) || !reflect.DeepEqual(ao.Reflection, bo.Reflection) ||
			len(ao.AssignedModes) != len(bo.AssignedModes) {
			return false
		}
	}
	return true
}

// Apply loads an xrandr argument vector into a transition against the
// current snapshot, optionally shoves it to fit and applies it. The
// outputs are refreshed afterwards.
func (w *Watcher) Apply(ctx context.Context, args []string, shove bool) (*transition.Transition, error) {
	w.outputsMu.Lock()
	defer w.outputsMu.Unlock()

	if w.server == nil {
		if err := w.refresh(ctx); err != nil {
			return nil, err
		}
	}

	t, err := transition.Load(w.server, args)
	if err != nil {
		return nil, err
	}
	return t, w.apply(ctx, t, shove)
}

// apply must be called with outputsMu held.
func (w *Watcher) apply(ctx context.Context, t *transition.Transition, shove bool) error {
	if shove {
		if err := t.ShoveToFit(); err != nil {
			return err
		}
	}
	if t.Empty() {
		log.Debug("transition is empty, not applying")
		return nil
	}
	if err := t.Apply(ctx, w.client); err != nil {
		return err
	}
	return w.refresh(ctx)
}
