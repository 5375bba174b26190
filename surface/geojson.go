package surface

import (
	"gonum.org/v1/gonum/spatial/r2"

	geojson "github.com/paulmach/go.geojson"

	geoman "github.com/goliatone/go-geoman"
)

// Pointed is implemented by layers that carry vertices.
type Pointed interface {
	Points() []r2.Vec
}

// FeatureCollection exports layers as GeoJSON with X as longitude and Y as
// latitude. Layers without vertices are skipped. Circles become a Point at
// their center with a "radius" property taken from the second vertex.
func FeatureCollection(layers []geoman.EditableLayer) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, layer := range layers {
		pointed, ok := layer.(Pointed)
		if !ok {
			continue
		}
		points := pointed.Points()
		if len(points) == 0 {
			continue
		}
		f := feature(layer.Kind(), points)
		if f == nil {
			continue
		}
		f.ID = layer.ID()
		f.SetProperty("shape", layer.Kind().String())
		f.SetProperty("drawnByTool", layer.DrawnByTool())
		fc.AddFeature(f)
	}
	return fc
}

func feature(kind geoman.ShapeKind, points []r2.Vec) *geojson.Feature {
	switch kind {
	case geoman.Marker, geoman.CircleMarker:
		return geojson.NewPointFeature(coord(points[0]))
	case geoman.Circle:
		f := geojson.NewPointFeature(coord(points[0]))
		radius := 0.0
		if len(points) > 1 {
			radius = r2.Norm(r2.Sub(points[1], points[0]))
		}
		f.SetProperty("radius", radius)
		return f
	case geoman.Line:
		if len(points) < 2 {
			return nil
		}
		return geojson.NewLineStringFeature(coords(points))
	case geoman.Polygon, geoman.Rectangle:
		if len(points) < 3 {
			return nil
		}
		ring := coords(points)
		if points[0] != points[len(points)-1] {
			ring = append(ring, coord(points[0]))
		}
		return geojson.NewPolygonFeature([][][]float64{ring})
	default:
		return nil
	}
}

func coord(p r2.Vec) []float64 {
	return []float64{p.X, p.Y}
}

func coords(points []r2.Vec) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = coord(p)
	}
	return out
}
