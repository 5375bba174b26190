package surface

import (
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	geoman "github.com/goliatone/go-geoman"
	"github.com/goliatone/go-geoman/layering"
)

// Shape is a rendered geometry with an edit handle.
type Shape struct {
	id     string
	kind   geoman.ShapeKind
	drawn  bool
	points []r2.Vec
	handle *Handle
}

// ShapeOption configures a Shape.
type ShapeOption func(*Shape)

// WithID sets the layer ID.
func WithID(id string) ShapeOption {
	return func(s *Shape) {
		if id != "" {
			s.id = id
		}
	}
}

// DrawnByTool marks the shape as created by a draw handler.
func DrawnByTool() ShapeOption {
	return func(s *Shape) {
		s.drawn = true
	}
}

// WithPoints sets the vertices.
func WithPoints(points ...r2.Vec) ShapeOption {
	return func(s *Shape) {
		s.points = append([]r2.Vec(nil), points...)
	}
}

// WithLocalOptions sets layer-level overrides that global updates never
// replace.
func WithLocalOptions(local geoman.GlobalOptions) ShapeOption {
	return func(s *Shape) {
		s.handle.SetLocal(local)
	}
}

// NewShape creates a shape of kind with a disabled edit handle.
func NewShape(kind geoman.ShapeKind, opts ...ShapeOption) *Shape {
	s := &Shape{
		id:     string(kind) + "-" + uuid.NewString(),
		kind:   kind,
		handle: newHandle(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Shape) ID() string { return s.id }

func (s *Shape) Kind() geoman.ShapeKind { return s.kind }

func (s *Shape) DrawnByTool() bool { return s.drawn }

func (s *Shape) Handle() geoman.EditHandle { return s.handle }

// EditHandle returns the concrete handle.
func (s *Shape) EditHandle() *Handle { return s.handle }

// Points returns a copy of the vertices.
func (s *Shape) Points() []r2.Vec { return append([]r2.Vec(nil), s.points...) }

// Handle keeps the options of one layer as a stack of global options below
// layer-local overrides. Only the global level is replaced by SetOptions.
type Handle struct {
	mu       sync.Mutex
	stack    *geoman.Stack[geoman.GlobalOptions]
	enabled  bool
	dragging bool
	visible  geoman.GlobalOptions
	received []geoman.GlobalOptions
	applied  int
	failures map[string]error
}

func newHandle() *Handle {
	stack, _ := geoman.NewStack(
		geoman.NewStackLayer(geoman.NewScope(layering.LevelGlobal), geoman.GlobalOptions{}, ""),
	)
	return &Handle{stack: stack, failures: make(map[string]error)}
}

// FailOn makes op ("setOptions", "applyOptions", "enable", "disable") return
// err until cleared with a nil err.
func (h *Handle) FailOn(op string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.failures, op)
		return
	}
	h.failures[op] = err
}

// SetLocal merges patch into the layer-level overrides.
func (h *Handle) SetLocal(patch geoman.GlobalOptions) {
	h.mu.Lock()
	defer h.mu.Unlock()
	local, _ := h.stack.Snapshot(layering.LevelLayer)
	if next, err := h.stack.With(geoman.NewScope(layering.LevelLayer), local.Merge(patch)); err == nil {
		h.stack = next
	}
}

func (h *Handle) SetOptions(options geoman.GlobalOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["setOptions"]; err != nil {
		return err
	}
	h.received = append(h.received, options.Clone())
	return h.setGlobal(options)
}

// seed sets the global level without recording a SetOptions call.
func (h *Handle) seed(options geoman.GlobalOptions) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.setGlobal(options)
}

// setGlobal must be called with mu held.
func (h *Handle) setGlobal(options geoman.GlobalOptions) error {
	next, err := h.stack.With(geoman.NewScope(layering.LevelGlobal), options)
	if err != nil {
		return err
	}
	h.stack = next
	return nil
}

func (h *Handle) ApplyOptions() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["applyOptions"]; err != nil {
		return err
	}
	h.visible = h.stack.Merge()
	h.applied++
	return nil
}

func (h *Handle) Enable(options geoman.GlobalOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["enable"]; err != nil {
		return err
	}
	if err := h.setGlobal(options); err != nil {
		return err
	}
	h.enabled = true
	h.visible = h.stack.Merge()
	return nil
}

func (h *Handle) Disable() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["disable"]; err != nil {
		return err
	}
	h.enabled = false
	return nil
}

func (h *Handle) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// Options returns the effective options: local overrides over global.
func (h *Handle) Options() geoman.GlobalOptions {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stack.Merge()
}

// Visible returns the options the layer currently renders with, as of the
// last enable or apply.
func (h *Handle) Visible() geoman.GlobalOptions {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible.Clone()
}

// Received returns every options value passed to SetOptions.
func (h *Handle) Received() []geoman.GlobalOptions {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]geoman.GlobalOptions, len(h.received))
	for i, options := range h.received {
		out[i] = options.Clone()
	}
	return out
}

// Applied returns how many times ApplyOptions succeeded.
func (h *Handle) Applied() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.applied
}

// Trace explains where the effective value at path comes from.
func (h *Handle) Trace(path string) (geoman.Trace, error) {
	h.mu.Lock()
	stack := h.stack
	h.mu.Unlock()
	_, trace, err := stack.ResolveWithTrace(path)
	return trace, err
}

func (h *Handle) EnableLayerDrag() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dragging = true
	return nil
}

func (h *Handle) DisableLayerDrag() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dragging = false
	return nil
}

func (h *Handle) LayerDragEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dragging
}

var (
	_ geoman.EditableLayer   = (*Shape)(nil)
	_ geoman.DragHandle      = (*Handle)(nil)
	_ geoman.OptionsReporter = (*Handle)(nil)
)
