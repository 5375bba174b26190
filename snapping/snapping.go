// Package snapping ranks snap candidates. The geometry that produces
// candidates lives with the draw handlers; this package only decides which
// candidate wins when several are within reach.
package snapping

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// Candidate is a vertex or guide point the cursor could snap to.
type Candidate struct {
	// Kind is the shape kind of the layer owning the point.
	Kind    string
	LayerID string
	Point   r2.Vec
}

// Match is a candidate within tolerance together with its ranking data.
type Match struct {
	Candidate
	Distance float64
	// Rank is the position of Kind in the snapping order, or len(order) when
	// the kind is not listed.
	Rank int
	// Index is the candidate's position in the input.
	Index int
}

// Rank returns every candidate within tolerance of cursor, best first:
// lower snapping order rank wins, then shorter distance, then input order.
// A negative or NaN tolerance matches nothing.
func Rank(cursor r2.Vec, candidates []Candidate, order []string, tolerance float64) []Match {
	if tolerance < 0 || math.IsNaN(tolerance) {
		return nil
	}
	ranks := make(map[string]int, len(order))
	for i, kind := range order {
		if _, seen := ranks[kind]; !seen {
			ranks[kind] = i
		}
	}

	var matches []Match
	for i, candidate := range candidates {
		distance := r2.Norm(r2.Sub(candidate.Point, cursor))
		if math.IsNaN(distance) || distance > tolerance {
			continue
		}
		rank, ok := ranks[candidate.Kind]
		if !ok {
			rank = len(order)
		}
		matches = append(matches, Match{Candidate: candidate, Distance: distance, Rank: rank, Index: i})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.Index < b.Index
	})
	return matches
}

// Choose returns the winning candidate, if any is within tolerance.
func Choose(cursor r2.Vec, candidates []Candidate, order []string, tolerance float64) (Match, bool) {
	matches := Rank(cursor, candidates, order, tolerance)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}
