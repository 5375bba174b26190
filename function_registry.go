package geoman

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrFunctionExists is returned when a query helper name is taken.
	ErrFunctionExists = errors.New("geoman: query function already registered")
	// ErrUnknownFunction is returned when a query calls an unregistered helper.
	ErrUnknownFunction = errors.New("geoman: query function not registered")
)

// Function is a helper callable from layer queries.
type Function func(args ...any) (any, error)

// FunctionRegistry holds the helpers exposed to query expressions. Names are
// case-insensitive and stored lowercased.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry returns a registry with no helpers.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// DefaultFunctions returns a registry holding the built-in helpers:
//
//	shape(name)        canonical shape name, "Poly" resolves to "Polygon"
//	rank(kind, order)  position of kind in a snapping order, -1 when absent
func DefaultFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("shape", shapeFunction)
	_ = r.Register("rank", rankFunction)
	return r
}

// Register adds fn under name.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := functionKey(name)
	if key == "" {
		return fmt.Errorf("geoman: query function name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("geoman: query function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %q", ErrFunctionExists, name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns an independent copy of r.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// withDefaults returns a copy of r where built-ins fill names r leaves free.
func (r *FunctionRegistry) withDefaults() *FunctionRegistry {
	out := DefaultFunctions()
	if r == nil {
		return out
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, fn := range r.functions {
		out.functions[name] = fn
	}
	return out
}

// Call runs the helper registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	r.mu.RLock()
	fn := r.functions[functionKey(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return fn(args...)
}

// Names returns the registered names in lexical order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func functionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func shapeFunction(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("shape: want 1 argument, got %d", len(args))
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("shape: want string, got %T", args[0])
	}
	kind, err := ParseShapeKind(name)
	if err != nil {
		return nil, err
	}
	return kind.String(), nil
}

func rankFunction(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("rank: want 2 arguments, got %d", len(args))
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("rank: want string kind, got %T", args[0])
	}
	kind := normalizeShape(ShapeKind(name))
	var order []ShapeKind
	switch list := args[1].(type) {
	case []any:
		for _, entry := range list {
			if s, ok := entry.(string); ok {
				order = append(order, ShapeKind(s))
			}
		}
	case []string:
		for _, s := range list {
			order = append(order, ShapeKind(s))
		}
	case []ShapeKind:
		order = list
	case nil:
	default:
		return nil, fmt.Errorf("rank: want list order, got %T", args[1])
	}
	for i, entry := range NormalizeOrder(order) {
		if entry == kind {
			return i, nil
		}
	}
	return -1, nil
}
