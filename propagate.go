package geoman

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-geoman/pkg/activity"
)

// GlobalOptions returns a copy of the committed options.
func (pm *PM) GlobalOptions() GlobalOptions {
	return pm.store.snapshot()
}

// SetGlobalOptions merges patch onto the committed options and fans the
// result out, in this order: paused draw sessions are suspended, every draw
// handler receives the merged options, paused sessions resume, every editable
// layer handle receives them, enabled handles re-apply, and the merge is
// committed. Consumer failures are collected into the returned error but
// never stop the fan-out or the commit.
//
// Updates are not re-entrant: a call made while another update is fanning out
// returns ErrUpdateInFlight and changes nothing.
func (pm *PM) SetGlobalOptions(ctx context.Context, patch GlobalOptions) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if !pm.updating.CompareAndSwap(false, true) {
		return ErrUpdateInFlight
	}
	defer pm.updating.Store(false)

	start := time.Now()
	previous := pm.store.snapshot()
	next := previous.Merge(patch)

	paused, errs := pm.pause(next)
	for _, kind := range Shapes() {
		handler := pm.draw.handler(kind)
		if handler == nil {
			continue
		}
		if err := pm.callSafely("setOptions", kind.String(), kind, func() error {
			return handler.SetOptions(next.Clone())
		}); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, pm.resume(paused)...)

	layers := pm.FindLayers()
	for _, layer := range layers {
		if err := pm.callSafely("setOptions", layer.ID(), layer.Kind(), func() error {
			return layer.Handle().SetOptions(next.Clone())
		}); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, pm.applyTo(layers)...)

	pm.store.commit(next)
	pm.log(LogEvent{Op: "setGlobalOptions", Target: pm.mapID, Duration: time.Since(start)})
	pm.fire(ctx, activity.BuildOptionsUpdatedEvent(activity.OptionsUpdate{
		MapID:    pm.mapID,
		Changed:  changedKeys(previous, next),
		Failures: len(errs),
	}))
	return errors.Join(errs...)
}

// ApplyGlobalOptions asks every enabled layer handle to re-apply its options
// so the visible state reflects them immediately. Disabled handles pick the
// options up on their next enable.
func (pm *PM) ApplyGlobalOptions() error {
	return errors.Join(pm.applyTo(pm.FindLayers())...)
}

func (pm *PM) applyTo(layers []EditableLayer) []error {
	var errs []error
	for _, layer := range layers {
		handle := layer.Handle()
		if err := pm.callSafely("applyOptions", layer.ID(), layer.Kind(), func() error {
			if !handle.Enabled() {
				return nil
			}
			return handle.ApplyOptions()
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// SetPathOptions styles every draw handler except the ignored shapes.
func (pm *PM) SetPathOptions(options PathOptions, ignoreShapes ...ShapeKind) error {
	ignored := make(map[ShapeKind]struct{}, len(ignoreShapes))
	for _, kind := range ignoreShapes {
		ignored[normalizeShape(kind)] = struct{}{}
	}
	var errs []error
	for _, kind := range Shapes() {
		if _, skip := ignored[kind]; skip {
			continue
		}
		handler := pm.draw.handler(kind)
		if handler == nil {
			continue
		}
		if err := pm.callSafely("setPathOptions", kind.String(), kind, func() error {
			return handler.SetPathOptions(options.Clone())
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// callSafely runs one consumer call of a fan-out. A returned error or a panic
// comes back as a *FanoutError so the caller can move on to the next consumer.
func (pm *PM) callSafely(op, target string, kind ShapeKind, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pm.fanoutFailure(op, target, kind, fmt.Errorf("%w: %v", ErrConsumerPanic, r))
		}
	}()
	if callErr := fn(); callErr != nil {
		return pm.fanoutFailure(op, target, kind, callErr)
	}
	return nil
}

func (pm *PM) fanoutFailure(op, target string, kind ShapeKind, err error) error {
	pm.log(LogEvent{Op: op, Target: target, Shape: kind, Err: err})
	return &FanoutError{Op: op, Target: target, Err: err}
}
