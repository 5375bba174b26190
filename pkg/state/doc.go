// Package state persists option presets: named snapshots of geoman options
// stored per scope (defaults, one map, one shape kind or one layer) and
// resolved into a geoman.Stack so provenance stays observable.
//
// Store[T] only loads and saves a single snapshot for a single Ref. The
// Resolver loads the snapshots of several scopes, stacks them and, through
// Apply, pushes the merged result into a running map instance.
//
// Deterministic keys:
//
//	defaults/<preset>
//	map/<map_id>/<preset>
//	shape/<Shape>/<preset>
//	layer/<layer_id>/<preset>
//
// The shape segment uses the canonical shape name, so presets saved under the
// deprecated "Poly" name are found under "Polygon".
package state
