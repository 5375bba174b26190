package surface

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	geoman "github.com/goliatone/go-geoman"
)

// Host wires a Map, one Drawer per shape, a Cutter and a Toolbar to a PM.
type Host struct {
	Map     *Map
	Drawers map[geoman.ShapeKind]*Drawer
	Cutter  *Cutter
	Toolbar *Toolbar
	PM      *geoman.PM
}

// NewHost builds a ready to use host. opts are applied after the surface
// collaborators, so they can replace any of them.
func NewHost(mapID string, opts ...geoman.Option) *Host {
	h := &Host{
		Map:     NewMap(mapID),
		Drawers: Drawers(),
		Cutter:  NewCutter(),
		Toolbar: NewToolbar(),
	}
	all := HandlerOptions(h.Drawers)
	all = append(all, geoman.WithCutHandler(h.Cutter), geoman.WithToolbar(h.Toolbar))
	all = append(all, opts...)
	h.PM = geoman.New(h.Map, all...)
	return h
}

// Finish completes the active draw session of kind.
func (h *Host) Finish(ctx context.Context, kind geoman.ShapeKind, points ...r2.Vec) (*Shape, error) {
	parsed, err := geoman.ParseShapeKind(kind.String())
	if err != nil {
		return nil, err
	}
	drawer, ok := h.Drawers[parsed]
	if !ok {
		return nil, fmt.Errorf("surface: no drawer for %s", parsed)
	}
	return drawer.Finish(ctx, h.PM, points...)
}

// AddShape registers a shape on the map the way a host application would,
// outside any draw session. The shape joins global edit or drag mode when
// one is on; handle failures are logged by the PM.
func (h *Host) AddShape(kind geoman.ShapeKind, opts ...ShapeOption) *Shape {
	shape := NewShape(kind, opts...)
	shape.handle.seed(h.PM.GlobalOptions())
	h.PM.AddLayer(h.Map, shape)
	return shape
}
