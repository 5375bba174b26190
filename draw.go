package geoman

import (
	"context"
	"errors"

	"github.com/goliatone/go-geoman/pkg/activity"
)

// drawDispatcher maps each ShapeKind to its handler. The set is fixed at
// construction. Which shape is active is read from the handlers themselves so
// a handler finishing its own session is observed without bookkeeping.
type drawDispatcher struct {
	handlers map[ShapeKind]ShapeHandler
}

func newDrawDispatcher(handlers map[ShapeKind]ShapeHandler) *drawDispatcher {
	copied := make(map[ShapeKind]ShapeHandler, len(handlers))
	for kind, handler := range handlers {
		copied[kind] = handler
	}
	return &drawDispatcher{handlers: copied}
}

func (d *drawDispatcher) handler(kind ShapeKind) ShapeHandler {
	return d.handlers[kind]
}

// active returns the first enabled shape in Shapes order.
func (d *drawDispatcher) active() (ShapeKind, bool) {
	for _, kind := range Shapes() {
		if handler := d.handlers[kind]; handler != nil && handler.Enabled() {
			return kind, true
		}
	}
	return "", false
}

func (d *drawDispatcher) enabledKinds() []ShapeKind {
	var kinds []ShapeKind
	for _, kind := range Shapes() {
		if handler := d.handlers[kind]; handler != nil && handler.Enabled() {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Handler returns the draw handler registered for shape.
func (pm *PM) Handler(shape ShapeKind) (ShapeHandler, error) {
	kind, err := ParseShapeKind(shape.String())
	if err != nil {
		return nil, err
	}
	handler := pm.draw.handler(kind)
	if handler == nil {
		return nil, ErrNoHandler
	}
	return handler, nil
}

// EnableDraw starts drawing shape, Polygon when empty. Any other draw
// session, global edit, drag, removal and cut are switched off first. opts
// are merged on top of the handler's options for this session only.
func (pm *PM) EnableDraw(ctx context.Context, shape ShapeKind, opts GlobalOptions) error {
	kind, err := drawShape(shape)
	if err != nil {
		return err
	}
	handler := pm.draw.handler(kind)
	if handler == nil {
		return ErrNoHandler
	}

	var errs []error
	for _, other := range pm.draw.enabledKinds() {
		errs = append(errs, pm.disableDrawKind(ctx, other))
	}
	errs = append(errs,
		pm.disableEdit(ctx),
		pm.disableDrag(ctx),
		pm.disableCut(ctx),
		pm.disableRemoval(ctx),
	)
	if err := errors.Join(errs...); err != nil {
		pm.log(LogEvent{Op: "enableDraw", Target: "conflicts", Shape: kind, Err: err})
	}

	if err := pm.callSafely("enableDraw", kind.String(), kind, func() error {
		return handler.Enable(opts.Clone())
	}); err != nil {
		return err
	}
	pm.fire(ctx, activity.BuildModeToggledEvent(activity.ModeToggle{
		MapID:   pm.mapID,
		Verb:    activity.VerbDrawModeToggled,
		Enabled: true,
		Shape:   kind.String(),
	}))
	return nil
}

// DisableDraw stops drawing shape, Polygon when empty. Disabling a shape that
// is not being drawn is a no-op.
func (pm *PM) DisableDraw(ctx context.Context, shape ShapeKind) error {
	kind, err := drawShape(shape)
	if err != nil {
		return err
	}
	return pm.disableDrawKind(ctx, kind)
}

// DisableAllDraw stops every active draw session.
func (pm *PM) DisableAllDraw(ctx context.Context) error {
	var errs []error
	for _, kind := range pm.draw.enabledKinds() {
		errs = append(errs, pm.disableDrawKind(ctx, kind))
	}
	return errors.Join(errs...)
}

func (pm *PM) disableDrawKind(ctx context.Context, kind ShapeKind) error {
	handler := pm.draw.handler(kind)
	if handler == nil || !handler.Enabled() {
		return nil
	}
	if err := pm.callSafely("disableDraw", kind.String(), kind, handler.Disable); err != nil {
		return err
	}
	pm.fire(ctx, activity.BuildModeToggledEvent(activity.ModeToggle{
		MapID:   pm.mapID,
		Verb:    activity.VerbDrawModeToggled,
		Enabled: false,
		Shape:   kind.String(),
	}))
	return nil
}

// ActiveShape returns the shape currently being drawn.
func (pm *PM) ActiveShape() (ShapeKind, bool) {
	return pm.draw.active()
}

// GlobalDrawModeEnabled reports whether any shape is being drawn.
func (pm *PM) GlobalDrawModeEnabled() bool {
	_, ok := pm.draw.active()
	return ok
}

func drawShape(shape ShapeKind) (ShapeKind, error) {
	if shape == "" {
		return Polygon, nil
	}
	return ParseShapeKind(shape.String())
}
