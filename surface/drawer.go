package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	geoman "github.com/goliatone/go-geoman"
)

// ErrNotDrawing is returned by Finish when no session is active.
var ErrNotDrawing = errors.New("surface: draw session not active")

// LayerSink receives finished shapes. *geoman.PM implements it.
type LayerSink interface {
	AddDrawnLayer(ctx context.Context, layer geoman.EditableLayer) geoman.Container
}

// Drawer is the draw handler of one shape kind. It records every call so
// tests can assert the order of a fan-out.
type Drawer struct {
	kind geoman.ShapeKind

	mu       sync.Mutex
	options  geoman.GlobalOptions
	session  geoman.GlobalOptions
	path     geoman.PathOptions
	enabled  bool
	calls    []string
	failures map[string]error
}

// NewDrawer creates a disabled handler for kind.
func NewDrawer(kind geoman.ShapeKind) *Drawer {
	return &Drawer{kind: kind, failures: make(map[string]error)}
}

// Drawers creates one handler per shape kind.
func Drawers() map[geoman.ShapeKind]*Drawer {
	out := make(map[geoman.ShapeKind]*Drawer, len(geoman.Shapes()))
	for _, kind := range geoman.Shapes() {
		out[kind] = NewDrawer(kind)
	}
	return out
}

// HandlerOptions registers drawers with a PM.
func HandlerOptions(drawers map[geoman.ShapeKind]*Drawer) []geoman.Option {
	opts := make([]geoman.Option, 0, len(drawers))
	for _, kind := range geoman.Shapes() {
		if drawer, ok := drawers[kind]; ok {
			opts = append(opts, geoman.WithShapeHandler(kind, drawer))
		}
	}
	return opts
}

// Kind returns the shape kind drawn.
func (d *Drawer) Kind() geoman.ShapeKind { return d.kind }

// FailOn makes op return err until cleared with a nil err.
func (d *Drawer) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, op)
		return
	}
	d.failures[op] = err
}

// record must be called with mu held.
func (d *Drawer) record(op string) error {
	d.calls = append(d.calls, op)
	return d.failures[op]
}

func (d *Drawer) SetOptions(options geoman.GlobalOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("setOptions"); err != nil {
		return err
	}
	d.options = options.Clone()
	return nil
}

func (d *Drawer) SetPathOptions(path geoman.PathOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("setPathOptions"); err != nil {
		return err
	}
	d.path = path.Clone()
	return nil
}

func (d *Drawer) Enable(options geoman.GlobalOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("enable"); err != nil {
		return err
	}
	d.session = options.Clone()
	d.enabled = true
	return nil
}

func (d *Drawer) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("disable"); err != nil {
		return err
	}
	d.enabled = false
	d.session = geoman.GlobalOptions{}
	return nil
}

func (d *Drawer) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// Options returns the session overrides merged over the handler options.
func (d *Drawer) Options() geoman.GlobalOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.options.Merge(d.session)
}

// PathOptions returns the style applied to new shapes.
func (d *Drawer) PathOptions() geoman.PathOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path.Clone()
}

// Calls returns the recorded call names.
func (d *Drawer) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// ResetCalls clears the call log.
func (d *Drawer) ResetCalls() {
	d.mu.Lock()
	d.calls = nil
	d.mu.Unlock()
}

// Finish completes the active session with points and hands the new shape
// to sink. The session ends unless continueDrawing is set.
func (d *Drawer) Finish(ctx context.Context, sink LayerSink, points ...r2.Vec) (*Shape, error) {
	d.mu.Lock()
	if !d.enabled {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotDrawing, d.kind)
	}
	effective := d.options.Merge(d.session)
	path := d.path.Clone()
	d.mu.Unlock()

	local := geoman.GlobalOptions{}
	if path != (geoman.PathOptions{}) {
		local.PathOptions = &path
	}
	shape := NewShape(d.kind, DrawnByTool(), WithPoints(points...), WithLocalOptions(local))
	if err := shape.handle.SetOptions(effective); err != nil {
		return nil, err
	}
	if sink != nil {
		sink.AddDrawnLayer(ctx, shape)
	}

	if effective.ContinueDrawing == nil || !*effective.ContinueDrawing {
		if err := d.Disable(); err != nil {
			return shape, err
		}
	}
	return shape, nil
}

var _ geoman.ShapeHandler = (*Drawer)(nil)
