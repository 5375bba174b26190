package geoman

import (
	"context"
	"errors"
	"reflect"

	"github.com/google/uuid"

	"github.com/goliatone/go-geoman/pkg/activity"
)

// FindLayers walks root and its nested containers and returns every layer
// carrying an edit handle, in insertion order. Temporary groups and their
// contents are skipped. A layer reachable through several groups is
// returned once. The result is a fresh slice on every call.
func FindLayers(root Container) []EditableLayer {
	if isNilLayer(root) {
		return nil
	}
	var (
		out      []EditableLayer
		seen     = make(map[string]struct{})
		visiting = make(map[string]struct{})
	)
	var walk func(c Container)
	walk = func(c Container) {
		if _, ok := visiting[c.ID()]; ok {
			return
		}
		visiting[c.ID()] = struct{}{}
		for _, layer := range c.Layers() {
			if isNilLayer(layer) || isTemporary(layer) {
				continue
			}
			if editable, ok := layer.(EditableLayer); ok && editable.Handle() != nil {
				if _, dup := seen[editable.ID()]; !dup {
					seen[editable.ID()] = struct{}{}
					out = append(out, editable)
				}
			}
			if group, ok := layer.(Container); ok {
				walk(group)
			}
		}
	}
	walk(root)
	return out
}

// FindLayers returns the editable layers of the attached map.
func (pm *PM) FindLayers() []EditableLayer {
	return FindLayers(pm.m)
}

// GetGeomanLayers returns every editable layer on the map.
func (pm *PM) GetGeomanLayers() []EditableLayer {
	return pm.FindLayers()
}

// GetGeomanLayersGroup returns every editable layer wrapped in a temporary
// group.
func (pm *PM) GetGeomanLayersGroup() *TempGroup {
	return newTempGroup(pm.GetGeomanLayers())
}

// GetGeomanDrawLayers returns the editable layers created by a draw handler.
func (pm *PM) GetGeomanDrawLayers() []EditableLayer {
	var out []EditableLayer
	for _, layer := range pm.FindLayers() {
		if layer.DrawnByTool() {
			out = append(out, layer)
		}
	}
	return out
}

// GetGeomanDrawLayersGroup returns the tool-drawn layers wrapped in a
// temporary group.
func (pm *PM) GetGeomanDrawLayersGroup() *TempGroup {
	return newTempGroup(pm.GetGeomanDrawLayers())
}

// TempGroup is a transient grouping of query results. It only references its
// members: adding a layer does not move it off the map, and the group is
// skipped by FindLayers and by containing-layer resolution.
type TempGroup struct {
	id     string
	layers []Layer
}

func newTempGroup(layers []EditableLayer) *TempGroup {
	group := &TempGroup{id: "pm-temp-" + uuid.NewString()}
	for _, layer := range layers {
		group.layers = append(group.layers, layer)
	}
	return group
}

func (g *TempGroup) ID() string { return g.id }

// Temporary implements Temporary.
func (g *TempGroup) Temporary() bool { return true }

// Layers returns the members in insertion order.
func (g *TempGroup) Layers() []Layer {
	return append([]Layer(nil), g.layers...)
}

func (g *TempGroup) AddLayer(layer Layer) {
	if isNilLayer(layer) {
		return
	}
	for _, existing := range g.layers {
		if existing.ID() == layer.ID() {
			return
		}
	}
	g.layers = append(g.layers, layer)
}

func (g *TempGroup) RemoveLayer(layer Layer) {
	if isNilLayer(layer) {
		return
	}
	for i, existing := range g.layers {
		if existing.ID() == layer.ID() {
			g.layers = append(g.layers[:i:i], g.layers[i+1:]...)
			return
		}
	}
}

// Len returns the number of members.
func (g *TempGroup) Len() int { return len(g.layers) }

// ResolveContainingLayer returns the destination for newly drawn shapes: the
// configured layer group when it is a real group, the map otherwise.
func (pm *PM) ResolveContainingLayer() Container {
	ref := pm.store.snapshot().LayerGroup
	if ref == nil || isNilLayer(ref.Group) || isTemporary(ref.Group) {
		return pm.m
	}
	return ref.Group
}

// AddDrawnLayer places a freshly drawn layer into the containing layer and
// announces it. The layer joins any global edit or drag mode that is on;
// handle failures while doing so are logged.
func (pm *PM) AddDrawnLayer(ctx context.Context, layer EditableLayer) Container {
	dest := pm.ResolveContainingLayer()
	if err := pm.AddLayer(dest, layer); err != nil {
		pm.log(LogEvent{Op: "addDrawnLayer", Target: layer.ID(), Shape: layer.Kind(), Err: err})
	}
	pm.fire(ctx, activity.BuildLayerCreatedEvent(activity.LayerChange{
		MapID:     pm.mapID,
		LayerID:   layer.ID(),
		Shape:     layer.Kind().String(),
		Container: dest.ID(),
	}))
	return dest
}

// AddLayer adds a layer registered by the host to dest, the map when nil.
// Editable layers are enabled for global edit or drag mode when either is
// on, so late layers behave like the ones present when the mode started.
func (pm *PM) AddLayer(dest Container, layer Layer) error {
	if isNilLayer(layer) {
		return nil
	}
	if isNilLayer(dest) {
		dest = pm.m
	}
	dest.AddLayer(layer)
	if isTemporary(dest) {
		return nil
	}
	var errs []error
	for _, editable := range FindLayers(singleLayer{layer}) {
		errs = append(errs, pm.layerAdded(editable))
	}
	return errors.Join(errs...)
}

// singleLayer lets FindLayers walk one layer and, for groups, its members.
type singleLayer struct{ layer Layer }

func (s singleLayer) ID() string { return "pm-added-" + s.layer.ID() }

func (s singleLayer) Layers() []Layer { return []Layer{s.layer} }

func (s singleLayer) AddLayer(Layer) {}

func (s singleLayer) RemoveLayer(Layer) {}

// HandleRemovalClick removes layer while removal mode is on. It reports
// whether the layer was removed. Removal mode is consumed unless it was
// enabled with KeepEnabled.
func (pm *PM) HandleRemovalClick(ctx context.Context, layer EditableLayer) (bool, error) {
	if !pm.removal.isEnabled() || isNilLayer(layer) {
		return false, nil
	}
	parent := findParent(pm.m, layer.ID())
	if parent == nil {
		return false, nil
	}
	var err error
	if handle := layer.Handle(); handle != nil {
		err = pm.callSafely("disableEdit", layer.ID(), layer.Kind(), func() error {
			if !handle.Enabled() {
				return nil
			}
			return handle.Disable()
		})
	}
	parent.RemoveLayer(layer)
	pm.fire(ctx, activity.BuildLayerRemovedEvent(activity.LayerChange{
		MapID:     pm.mapID,
		LayerID:   layer.ID(),
		Shape:     layer.Kind().String(),
		Container: parent.ID(),
	}))
	if !pm.keepRemoval.Load() {
		if disableErr := pm.disableRemoval(ctx); disableErr != nil && err == nil {
			err = disableErr
		}
	}
	return true, err
}

func findParent(root Container, id string) Container {
	if isNilLayer(root) {
		return nil
	}
	visiting := make(map[string]struct{})
	var walk func(c Container) Container
	walk = func(c Container) Container {
		if _, ok := visiting[c.ID()]; ok {
			return nil
		}
		visiting[c.ID()] = struct{}{}
		for _, layer := range c.Layers() {
			if isNilLayer(layer) || isTemporary(layer) {
				continue
			}
			if layer.ID() == id {
				return c
			}
			if group, ok := layer.(Container); ok {
				if found := walk(group); found != nil {
					return found
				}
			}
		}
		return nil
	}
	return walk(root)
}

func isTemporary(layer Layer) bool {
	temp, ok := layer.(Temporary)
	return ok && temp.Temporary()
}

// isNilLayer also catches typed nil pointers stored in an interface.
func isNilLayer(layer Layer) bool {
	if layer == nil {
		return true
	}
	v := reflect.ValueOf(layer)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
