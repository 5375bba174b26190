package geoman

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/goliatone/go-geoman/snapping"
)

// ChooseSnap picks the snap target for cursor using the committed snapping
// order and distance. It returns false when snapping is off or nothing is in
// reach.
func (pm *PM) ChooseSnap(cursor r2.Vec, candidates []snapping.Candidate) (snapping.Match, bool) {
	options := pm.store.snapshot()
	if !options.IsSnappable() {
		return snapping.Match{}, false
	}
	order := make([]string, 0, len(options.SnappingOrder))
	for _, kind := range NormalizeOrder(options.SnappingOrder) {
		order = append(order, kind.String())
	}
	return snapping.Choose(cursor, candidates, order, options.SnapTolerance())
}
