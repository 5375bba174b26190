package geoman

import (
	"context"

	"github.com/goliatone/go-geoman/pkg/activity"
)

// Layer is anything the host map can render.
type Layer interface {
	ID() string
}

// Container holds layers. Maps and layer groups are containers.
type Container interface {
	Layer
	// Layers returns the direct children in insertion order.
	Layers() []Layer
	AddLayer(Layer)
	RemoveLayer(Layer)
}

// LayerGroup is a container that can itself be placed on a map.
type LayerGroup interface {
	Container
}

// Temporary is implemented by layers that exist only to group query results
// and must never be treated as content.
type Temporary interface {
	Temporary() bool
}

// Map is the host map instance the toolkit is attached to.
type Map interface {
	Container
}

// EventTarget is implemented by maps that deliver events to listeners
// registered on them.
type EventTarget interface {
	Fire(ctx context.Context, event activity.Event) error
}

// EditableLayer is a rendered shape carrying its own editing handle.
type EditableLayer interface {
	Layer
	Kind() ShapeKind
	Handle() EditHandle
	// DrawnByTool reports whether the layer was created by a draw handler
	// rather than registered by the host.
	DrawnByTool() bool
}

// EditHandle is the per-layer editing state attached to an EditableLayer.
// Handles keep their own local overrides; SetOptions replaces only the
// global part they were derived from.
type EditHandle interface {
	SetOptions(GlobalOptions) error
	// ApplyOptions makes the currently visible state reflect the options.
	ApplyOptions() error
	Enable(GlobalOptions) error
	Disable() error
	Enabled() bool
}

// DragHandle is implemented by edit handles that support whole-layer dragging.
type DragHandle interface {
	EnableLayerDrag() error
	DisableLayerDrag() error
	LayerDragEnabled() bool
}

// ShapeHandler drives drawing of one shape kind.
type ShapeHandler interface {
	SetOptions(GlobalOptions) error
	SetPathOptions(PathOptions) error
	// Enable starts a draw session. opts are per-session overrides merged on
	// top of the handler's current options.
	Enable(opts GlobalOptions) error
	Disable() error
	Enabled() bool
	// Options returns the options the handler currently draws with.
	Options() GlobalOptions
}

// CutOptions configures a cut session.
type CutOptions struct {
	AllowSelfIntersection *bool
	PathOptions           *PathOptions
	Extra                 map[string]any
}

// CutHandler performs the cut operation. The orchestration core only tracks
// whether it is on or off.
type CutHandler interface {
	Enable(CutOptions) error
	Disable() error
	Toggle(CutOptions) error
	Enabled() bool
}

// ControlOptions configures the toolbar.
type ControlOptions struct {
	Position string
	// Buttons maps a button name to its visibility.
	Buttons map[string]bool
}

// Toolbar is the visual control surface. It never owns editing state.
type Toolbar interface {
	AddControls(ControlOptions)
	RemoveControls()
	ToggleControls()
	IsVisible() bool
	// Reinit rebuilds the controls, e.g. after a language switch.
	Reinit()
}
