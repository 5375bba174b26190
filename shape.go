package geoman

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ShapeKind identifies one of the drawable shape kinds.
type ShapeKind string

const (
	Marker       ShapeKind = "Marker"
	CircleMarker ShapeKind = "CircleMarker"
	Circle       ShapeKind = "Circle"
	Line         ShapeKind = "Line"
	Polygon      ShapeKind = "Polygon"
	Rectangle    ShapeKind = "Rectangle"
)

// legacyPolygon is the deprecated name for Polygon. It is accepted at the
// public entry points until the next breaking release.
const legacyPolygon = "Poly"

var shapeKinds = []ShapeKind{Marker, CircleMarker, Circle, Line, Polygon, Rectangle}

// Shapes returns every known shape kind in registration order.
func Shapes() []ShapeKind {
	return append([]ShapeKind(nil), shapeKinds...)
}

// Valid reports whether k is a known shape kind.
func (k ShapeKind) Valid() bool {
	for _, known := range shapeKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k ShapeKind) String() string {
	return string(k)
}

// ParseShapeKind resolves a shape name, mapping the deprecated "Poly" alias
// to Polygon.
func ParseShapeKind(name string) (ShapeKind, error) {
	name = strings.TrimSpace(name)
	if name == legacyPolygon {
		return Polygon, nil
	}
	kind := ShapeKind(name)
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownShape, name)
	}
	return kind, nil
}

// normalizeShape applies the legacy alias without validating.
func normalizeShape(kind ShapeKind) ShapeKind {
	if kind == legacyPolygon {
		return Polygon
	}
	return kind
}

// UnmarshalJSON accepts the legacy alias as well.
func (k *ShapeKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*k = normalizeShape(ShapeKind(strings.TrimSpace(name)))
	return nil
}

// NormalizeOrder returns order with the legacy alias resolved, and unknown and
// duplicate entries removed. The relative order of the remaining kinds is kept.
func NormalizeOrder(order []ShapeKind) []ShapeKind {
	if order == nil {
		return nil
	}
	out := make([]ShapeKind, 0, len(order))
	seen := make(map[ShapeKind]struct{}, len(order))
	for _, kind := range order {
		kind = normalizeShape(kind)
		if !kind.Valid() {
			continue
		}
		if _, ok := seen[kind]; ok {
			continue
		}
		seen[kind] = struct{}{}
		out = append(out, kind)
	}
	return out
}
