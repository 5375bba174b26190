package geoman

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/goliatone/go-geoman/layering"
)

// Pane names understood by GlobalOptions.Panes.
const (
	VertexPane = "vertexPane"
	LayerPane  = "layerPane"
	MarkerPane = "markerPane"
)

// GlobalOptions is the map-wide configuration for drawing, editing and
// snapping. Pointer fields left nil are "not set": the same type is used for
// full snapshots and for patches passed to SetGlobalOptions.
type GlobalOptions struct {
	Snappable    *bool    `json:"snappable,omitempty"`
	SnapDistance *float64 `json:"snapDistance,omitempty"`
	// SnappingOrder ranks shape kinds when several snap candidates are in
	// reach. It replaces the previous order on merge.
	SnappingOrder []ShapeKind `json:"snappingOrder,omitempty"`
	// LayerGroup receives newly drawn shapes. The map is used when unset.
	LayerGroup *GroupRef `json:"-"`
	// Panes maps logical pane names to render pane names.
	Panes map[string]string `json:"panes,omitempty"`

	Editable              *bool `json:"editable,omitempty"`
	ContinueDrawing       *bool `json:"continueDrawing,omitempty"`
	AllowSelfIntersection *bool `json:"allowSelfIntersection,omitempty"`

	PathOptions *PathOptions `json:"pathOptions,omitempty"`
	// Extra carries host-specific keys through merges untouched.
	Extra map[string]any `json:"extra,omitempty"`
}

// PathOptions is the style applied to drawn paths.
type PathOptions struct {
	Color       *string  `json:"color,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Opacity     *float64 `json:"opacity,omitempty"`
	FillColor   *string  `json:"fillColor,omitempty"`
	FillOpacity *float64 `json:"fillOpacity,omitempty"`
}

// Clone returns a deep copy of p.
func (p PathOptions) Clone() PathOptions {
	return layering.Clone(p)
}

// GroupRef points at the layer group that collects drawn shapes. It is
// carried through option merges by reference.
type GroupRef struct {
	Group LayerGroup
}

// SharedReference implements layering.Shared.
func (*GroupRef) SharedReference() {}

// InGroup wraps a layer group for GlobalOptions.LayerGroup.
func InGroup(group LayerGroup) *GroupRef {
	return &GroupRef{Group: group}
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// DefaultSnappingOrder is the snapping priority of a new map instance.
func DefaultSnappingOrder() []ShapeKind {
	return []ShapeKind{Marker, CircleMarker, Circle, Line, Polygon, Rectangle}
}

// DefaultGlobalOptions returns the documented defaults of a map instance.
func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Snappable:     Bool(true),
		SnapDistance:  Float(20),
		SnappingOrder: DefaultSnappingOrder(),
		Panes: map[string]string{
			VertexPane: "markerPane",
			LayerPane:  "overlayPane",
			MarkerPane: "markerPane",
		},
		Editable:              Bool(false),
		ContinueDrawing:       Bool(false),
		AllowSelfIntersection: Bool(true),
	}
}

// IsSnappable reports the effective snappable flag.
func (o GlobalOptions) IsSnappable() bool {
	return o.Snappable != nil && *o.Snappable
}

// IsEditable reports the effective editable flag.
func (o GlobalOptions) IsEditable() bool {
	return o.Editable != nil && *o.Editable
}

// SnapTolerance returns the snap distance, zero when unset.
func (o GlobalOptions) SnapTolerance() float64 {
	if o.SnapDistance == nil {
		return 0
	}
	return *o.SnapDistance
}

// Pane returns the render pane for a logical pane name.
func (o GlobalOptions) Pane(name string) string {
	return o.Panes[name]
}

// Merge returns o with patch applied on top. o and patch are left untouched.
func (o GlobalOptions) Merge(patch GlobalOptions) GlobalOptions {
	merged := layering.MergeLayers(patch, o)
	if patch.SnappingOrder != nil {
		merged.SnappingOrder = NormalizeOrder(merged.SnappingOrder)
	}
	return merged
}

// Clone returns a deep copy of o. The containing layer group is shared.
func (o GlobalOptions) Clone() GlobalOptions {
	return layering.Clone(o)
}

// Equal reports whether o and other describe the same configuration.
func (o GlobalOptions) Equal(other GlobalOptions) bool {
	return reflect.DeepEqual(o, other)
}

var errInvalidOptions = errors.New("geoman: invalid options")

// Validate rejects option values that no consumer can act on.
func (o GlobalOptions) Validate() error {
	var errs []error
	if o.SnapDistance != nil && *o.SnapDistance < 0 {
		errs = append(errs, fmt.Errorf("%w: snapDistance must be non-negative, got %v", errInvalidOptions, *o.SnapDistance))
	}
	if o.PathOptions != nil {
		for name, v := range map[string]*float64{"opacity": o.PathOptions.Opacity, "fillOpacity": o.PathOptions.FillOpacity} {
			if v != nil && (*v < 0 || *v > 1) {
				errs = append(errs, fmt.Errorf("%w: pathOptions.%s must be within [0,1], got %v", errInvalidOptions, name, *v))
			}
		}
	}
	return errors.Join(errs...)
}

// changedKeys lists the top-level JSON keys whose value differs between a and b.
func changedKeys(a, b GlobalOptions) []string {
	var keys []string
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	t := va.Type()
	for i := 0; i < t.NumField(); i++ {
		if reflect.DeepEqual(va.Field(i).Interface(), vb.Field(i).Interface()) {
			continue
		}
		keys = append(keys, jsonKey(t.Field(i)))
	}
	slices.Sort(keys)
	return keys
}

func jsonKey(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			tag = tag[:i]
			break
		}
	}
	if tag == "" || tag == "-" {
		return field.Name
	}
	return tag
}
