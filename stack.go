package geoman

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-geoman/layering"
)

// Scope names the precedence level a snapshot was captured at.
type Scope struct {
	Level    layering.Level    `json:"level"`
	Label    string            `json:"label,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithScopeLabel sets a human-friendly label.
func WithScopeLabel(label string) ScopeOption {
	return func(s *Scope) {
		s.Label = label
	}
}

// WithScopeMetadata attaches metadata. The map is copied.
func WithScopeMetadata(metadata map[string]string) ScopeOption {
	return func(s *Scope) {
		s.Metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope for level.
func NewScope(level layering.Level, opts ...ScopeOption) Scope {
	scope := Scope{Level: level}
	for _, opt := range opts {
		if opt != nil {
			opt(&scope)
		}
	}
	return scope
}

// Name returns the level name.
func (s Scope) Name() string {
	return s.Level.String()
}

func (s Scope) clone() Scope {
	return Scope{Level: s.Level, Label: s.Label, Metadata: copyMetadata(s.Metadata)}
}

// StackLayer pairs a scope with the snapshot captured for it.
type StackLayer[T any] struct {
	Scope      Scope
	Snapshot   T
	SnapshotID string
}

// NewStackLayer copies snapshot so later changes by the caller do not leak in.
func NewStackLayer[T any](scope Scope, snapshot T, snapshotID string) StackLayer[T] {
	return StackLayer[T]{
		Scope:      scope.clone(),
		Snapshot:   layering.Clone(snapshot),
		SnapshotID: snapshotID,
	}
}

func (l StackLayer[T]) clone() StackLayer[T] {
	return NewStackLayer(l.Scope, l.Snapshot, l.SnapshotID)
}

var (
	// ErrScopeLevel indicates a layer without a known level.
	ErrScopeLevel = errors.New("geoman: scope level must be known")
	// ErrDuplicateScope indicates two layers share a level.
	ErrDuplicateScope = errors.New("geoman: scope levels must be unique")
)

// Stack is an immutable set of option snapshots ordered strongest first, e.g.
// a layer's local overrides above the global options above the defaults.
type Stack[T any] struct {
	layers []StackLayer[T]
}

// NewStack validates and orders layers. Snapshots are copied.
func NewStack[T any](layers ...StackLayer[T]) (*Stack[T], error) {
	levels := make([]layering.Level, 0, len(layers))
	for _, layer := range layers {
		if layer.Scope.Level == layering.LevelUnknown {
			return nil, ErrScopeLevel
		}
		levels = append(levels, layer.Scope.Level)
	}
	if chain := layering.NewChain(levels...); len(chain.Ordered()) != len(layers) {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateScope, levels)
	}

	copied := make([]StackLayer[T], len(layers))
	for i, layer := range layers {
		copied[i] = layer.clone()
	}
	sort.Slice(copied, func(i, j int) bool {
		return copied[i].Scope.Level.Priority() > copied[j].Scope.Level.Priority()
	})
	return &Stack[T]{layers: copied}, nil
}

// Layers returns copies of the layers, strongest first.
func (s *Stack[T]) Layers() []StackLayer[T] {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]StackLayer[T], len(s.layers))
	for i := range s.layers {
		out[i] = s.layers[i].clone()
	}
	return out
}

// Len returns the number of layers.
func (s *Stack[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// With returns a new stack where the layer at scope.Level is replaced by
// snapshot, or added when absent.
func (s *Stack[T]) With(scope Scope, snapshot T) (*Stack[T], error) {
	layers := make([]StackLayer[T], 0, s.Len()+1)
	for _, layer := range s.Layers() {
		if layer.Scope.Level == scope.Level {
			continue
		}
		layers = append(layers, layer)
	}
	layers = append(layers, NewStackLayer(scope, snapshot, ""))
	return NewStack(layers...)
}

// Snapshot returns the snapshot stored for level.
func (s *Stack[T]) Snapshot(level layering.Level) (T, bool) {
	if s != nil {
		for _, layer := range s.layers {
			if layer.Scope.Level == level {
				return layering.Clone(layer.Snapshot), true
			}
		}
	}
	var zero T
	return zero, false
}

// Merge resolves the stack into one snapshot.
func (s *Stack[T]) Merge() T {
	if s == nil || len(s.layers) == 0 {
		var zero T
		return zero
	}
	snapshots := make([]T, len(s.layers))
	for i := range s.layers {
		snapshots[i] = s.layers[i].Snapshot
	}
	return layering.MergeLayers(snapshots...)
}

func copyMetadata(origin map[string]string) map[string]string {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]string, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
