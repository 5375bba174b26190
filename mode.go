package geoman

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-geoman/pkg/activity"
)

// ModeKind identifies a global interaction mode.
type ModeKind int

const (
	ModeIdle ModeKind = iota
	ModeDraw
	ModeEdit
	ModeDrag
	ModeRemoval
	ModeCut
)

func (k ModeKind) String() string {
	switch k {
	case ModeDraw:
		return "draw"
	case ModeEdit:
		return "edit"
	case ModeDrag:
		return "drag"
	case ModeRemoval:
		return "removal"
	case ModeCut:
		return "cut"
	default:
		return "idle"
	}
}

// Mode is the interaction state of a map. Shape is set for ModeDraw.
type Mode struct {
	Kind  ModeKind
	Shape ShapeKind
}

// RemovalOptions configures removal mode.
type RemovalOptions struct {
	// KeepEnabled leaves removal mode on after a layer was removed.
	KeepEnabled bool
}

// globalMode is one map-wide toggle. The per-layer work is delegated to
// enableLayer and disableLayer so edit, drag and removal share the
// bookkeeping. Removal has no per-layer work.
type globalMode struct {
	kind ModeKind
	verb string

	mu      sync.Mutex
	enabled bool

	enableLayer  func(layer EditableLayer) error
	disableLayer func(layer EditableLayer) error
}

func (m *globalMode) isEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// swap sets the flag and reports whether it changed.
func (m *globalMode) swap(enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enabled == enabled {
		return false
	}
	m.enabled = enabled
	return true
}

func (m *globalMode) apply(layers []EditableLayer, enabled bool) []error {
	fn := m.disableLayer
	if enabled {
		fn = m.enableLayer
	}
	if fn == nil {
		return nil
	}
	var errs []error
	for _, layer := range layers {
		if err := fn(layer); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (pm *PM) setMode(ctx context.Context, mode *globalMode, enabled bool) error {
	if !mode.swap(enabled) {
		return nil
	}
	err := errors.Join(mode.apply(pm.FindLayers(), enabled)...)
	pm.log(LogEvent{Op: "toggleMode", Target: mode.kind.String(), Err: err})
	pm.fire(ctx, activity.BuildModeToggledEvent(activity.ModeToggle{
		MapID:   pm.mapID,
		Verb:    mode.verb,
		Enabled: enabled,
	}))
	return err
}

func (pm *PM) newEditMode() *globalMode {
	return &globalMode{
		kind: ModeEdit,
		verb: activity.VerbEditModeToggled,
		enableLayer: func(layer EditableLayer) error {
			options := pm.store.snapshot()
			return pm.callSafely("enableEdit", layer.ID(), layer.Kind(), func() error {
				return layer.Handle().Enable(options.Clone())
			})
		},
		disableLayer: func(layer EditableLayer) error {
			return pm.callSafely("disableEdit", layer.ID(), layer.Kind(), func() error {
				if !layer.Handle().Enabled() {
					return nil
				}
				return layer.Handle().Disable()
			})
		},
	}
}

func (pm *PM) newDragMode() *globalMode {
	return &globalMode{
		kind: ModeDrag,
		verb: activity.VerbDragModeToggled,
		enableLayer: func(layer EditableLayer) error {
			drag, ok := layer.Handle().(DragHandle)
			if !ok {
				return nil
			}
			return pm.callSafely("enableDrag", layer.ID(), layer.Kind(), drag.EnableLayerDrag)
		},
		disableLayer: func(layer EditableLayer) error {
			drag, ok := layer.Handle().(DragHandle)
			if !ok {
				return nil
			}
			return pm.callSafely("disableDrag", layer.ID(), layer.Kind(), func() error {
				if !drag.LayerDragEnabled() {
					return nil
				}
				return drag.DisableLayerDrag()
			})
		},
	}
}

// layerAdded brings a layer that joined the map up to date with the global
// modes that are currently on.
func (pm *PM) layerAdded(layer EditableLayer) error {
	var errs []error
	for _, mode := range []*globalMode{pm.edit, pm.drag} {
		if mode.isEnabled() {
			errs = append(errs, mode.apply([]EditableLayer{layer}, true)...)
		}
	}
	return errors.Join(errs...)
}

func newRemovalMode() *globalMode {
	return &globalMode{kind: ModeRemoval, verb: activity.VerbRemovalModeToggled}
}

// Mode returns the current interaction state. When removal or cut run next
// to each other, cut is reported.
func (pm *PM) Mode() Mode {
	if kind, ok := pm.draw.active(); ok {
		return Mode{Kind: ModeDraw, Shape: kind}
	}
	switch {
	case pm.edit.isEnabled():
		return Mode{Kind: ModeEdit}
	case pm.drag.isEnabled():
		return Mode{Kind: ModeDrag}
	case pm.GlobalCutModeEnabled():
		return Mode{Kind: ModeCut}
	case pm.removal.isEnabled():
		return Mode{Kind: ModeRemoval}
	}
	return Mode{Kind: ModeIdle}
}

// EnableGlobalEditMode enables editing on every editable layer. Draw, drag,
// cut and removal are switched off first.
func (pm *PM) EnableGlobalEditMode(ctx context.Context) error {
	errs := []error{
		pm.DisableAllDraw(ctx),
		pm.disableDrag(ctx),
		pm.disableCut(ctx),
		pm.disableRemoval(ctx),
	}
	errs = append(errs, pm.setMode(ctx, pm.edit, true))
	return errors.Join(errs...)
}

// DisableGlobalEditMode disables editing on every editable layer.
func (pm *PM) DisableGlobalEditMode(ctx context.Context) error {
	return pm.disableEdit(ctx)
}

// ToggleGlobalEditMode flips global edit mode.
func (pm *PM) ToggleGlobalEditMode(ctx context.Context) error {
	if pm.edit.isEnabled() {
		return pm.DisableGlobalEditMode(ctx)
	}
	return pm.EnableGlobalEditMode(ctx)
}

// GlobalEditModeEnabled reports whether global edit mode is on.
func (pm *PM) GlobalEditModeEnabled() bool {
	return pm.edit.isEnabled()
}

// EnableGlobalDragMode enables dragging on every editable layer. Draw, edit,
// cut and removal are switched off first.
func (pm *PM) EnableGlobalDragMode(ctx context.Context) error {
	errs := []error{
		pm.DisableAllDraw(ctx),
		pm.disableEdit(ctx),
		pm.disableCut(ctx),
		pm.disableRemoval(ctx),
	}
	errs = append(errs, pm.setMode(ctx, pm.drag, true))
	return errors.Join(errs...)
}

// DisableGlobalDragMode disables dragging on every editable layer.
func (pm *PM) DisableGlobalDragMode(ctx context.Context) error {
	return pm.disableDrag(ctx)
}

// ToggleGlobalDragMode flips global drag mode.
func (pm *PM) ToggleGlobalDragMode(ctx context.Context) error {
	if pm.drag.isEnabled() {
		return pm.DisableGlobalDragMode(ctx)
	}
	return pm.EnableGlobalDragMode(ctx)
}

// GlobalDragModeEnabled reports whether global drag mode is on.
func (pm *PM) GlobalDragModeEnabled() bool {
	return pm.drag.isEnabled()
}

// EnableGlobalRemovalMode arms click-to-remove. Draw, edit and drag are
// switched off first; cut is left alone.
func (pm *PM) EnableGlobalRemovalMode(ctx context.Context, opts RemovalOptions) error {
	errs := []error{
		pm.DisableAllDraw(ctx),
		pm.disableEdit(ctx),
		pm.disableDrag(ctx),
	}
	pm.keepRemoval.Store(opts.KeepEnabled)
	errs = append(errs, pm.setMode(ctx, pm.removal, true))
	return errors.Join(errs...)
}

// DisableGlobalRemovalMode disarms click-to-remove.
func (pm *PM) DisableGlobalRemovalMode(ctx context.Context) error {
	return pm.disableRemoval(ctx)
}

// ToggleGlobalRemovalMode flips removal mode.
func (pm *PM) ToggleGlobalRemovalMode(ctx context.Context, opts RemovalOptions) error {
	if pm.removal.isEnabled() {
		return pm.DisableGlobalRemovalMode(ctx)
	}
	return pm.EnableGlobalRemovalMode(ctx, opts)
}

// GlobalRemovalModeEnabled reports whether removal mode is on.
func (pm *PM) GlobalRemovalModeEnabled() bool {
	return pm.removal.isEnabled()
}

// EnableGlobalCutMode hands control to the cut handler. Draw, edit and drag
// are switched off first; removal is left alone.
func (pm *PM) EnableGlobalCutMode(ctx context.Context, opts CutOptions) error {
	if pm.cut == nil {
		return ErrNoCutHandler
	}
	errs := []error{
		pm.DisableAllDraw(ctx),
		pm.disableEdit(ctx),
		pm.disableDrag(ctx),
	}
	was := pm.cut.Enabled()
	if err := pm.callSafely("enableCut", "cut", "", func() error { return pm.cut.Enable(opts) }); err != nil {
		errs = append(errs, err)
		return errors.Join(errs...)
	}
	pm.fireCutToggled(ctx, was)
	return errors.Join(errs...)
}

// ToggleGlobalCutMode flips cut mode through the cut handler.
func (pm *PM) ToggleGlobalCutMode(ctx context.Context, opts CutOptions) error {
	if pm.cut == nil {
		return ErrNoCutHandler
	}
	var errs []error
	was := pm.cut.Enabled()
	if !was {
		errs = append(errs,
			pm.DisableAllDraw(ctx),
			pm.disableEdit(ctx),
			pm.disableDrag(ctx),
		)
	}
	if err := pm.callSafely("toggleCut", "cut", "", func() error { return pm.cut.Toggle(opts) }); err != nil {
		errs = append(errs, err)
		return errors.Join(errs...)
	}
	pm.fireCutToggled(ctx, was)
	return errors.Join(errs...)
}

// DisableGlobalCutMode stops cutting. It is a no-op when cut mode is off or
// no cut handler is configured.
func (pm *PM) DisableGlobalCutMode(ctx context.Context) error {
	return pm.disableCut(ctx)
}

// GlobalCutModeEnabled reports whether the cut handler is active.
func (pm *PM) GlobalCutModeEnabled() bool {
	return pm.cut != nil && pm.cut.Enabled()
}

func (pm *PM) disableEdit(ctx context.Context) error {
	return pm.setMode(ctx, pm.edit, false)
}

func (pm *PM) disableDrag(ctx context.Context) error {
	return pm.setMode(ctx, pm.drag, false)
}

func (pm *PM) disableRemoval(ctx context.Context) error {
	return pm.setMode(ctx, pm.removal, false)
}

func (pm *PM) disableCut(ctx context.Context) error {
	if pm.cut == nil || !pm.cut.Enabled() {
		return nil
	}
	if err := pm.callSafely("disableCut", "cut", "", pm.cut.Disable); err != nil {
		return err
	}
	pm.fireCutToggled(ctx, true)
	return nil
}

func (pm *PM) fireCutToggled(ctx context.Context, was bool) {
	now := pm.cut.Enabled()
	if now == was {
		return
	}
	pm.fire(ctx, activity.BuildModeToggledEvent(activity.ModeToggle{
		MapID:   pm.mapID,
		Verb:    activity.VerbCutModeToggled,
		Enabled: now,
	}))
}
