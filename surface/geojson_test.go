package surface

import (
	"encoding/json"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	geoman "github.com/goliatone/go-geoman"
)

func TestFeatureCollectionGeometries(t *testing.T) {
	layers := []geoman.EditableLayer{
		NewShape(geoman.Marker, WithID("m"), WithPoints(r2.Vec{X: 1, Y: 2})),
		NewShape(geoman.Circle, WithID("c"), WithPoints(r2.Vec{}, r2.Vec{X: 3, Y: 4})),
		NewShape(geoman.Line, WithID("l"), WithPoints(r2.Vec{}, r2.Vec{X: 1})),
		NewShape(geoman.Polygon, WithID("p"), DrawnByTool(), WithPoints(r2.Vec{}, r2.Vec{X: 1}, r2.Vec{X: 1, Y: 1})),
		NewShape(geoman.Line, WithID("short"), WithPoints(r2.Vec{})),
		NewShape(geoman.Rectangle, WithID("empty")),
	}

	fc := FeatureCollection(layers)
	if len(fc.Features) != 4 {
		t.Fatalf("expected 4 features, got %d", len(fc.Features))
	}

	circle := fc.Features[1]
	if !circle.Geometry.IsPoint() || circle.Properties["radius"] != 5.0 {
		t.Fatalf("unexpected circle feature: %+v", circle.Properties)
	}
	polygon := fc.Features[3]
	if !polygon.Geometry.IsPolygon() {
		t.Fatalf("expected polygon geometry")
	}
	ring := polygon.Geometry.Polygon[0]
	if len(ring) != 4 || ring[0][0] != ring[3][0] || ring[0][1] != ring[3][1] {
		t.Fatalf("expected closed ring, got %v", ring)
	}
	if polygon.Properties["drawnByTool"] != true || polygon.ID != "p" {
		t.Fatalf("unexpected polygon properties: %v %v", polygon.ID, polygon.Properties)
	}

	raw, err := fc.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != "FeatureCollection" {
		t.Fatalf("unexpected type %v", decoded["type"])
	}
}
