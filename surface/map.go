// Package surface is an in-memory host for the geoman core: a map, layer
// groups, shapes with edit handles, draw handlers, a cut handler and a
// toolbar. It backs the CLI, the examples and the tests.
package surface

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	geoman "github.com/goliatone/go-geoman"
	"github.com/goliatone/go-geoman/pkg/activity"
)

// AnyEvent subscribes a listener to every verb.
const AnyEvent = "*"

// Listener receives events fired on a map.
type Listener func(ctx context.Context, event activity.Event) error

// layerList is the ordered child list shared by Map and FeatureGroup.
type layerList struct {
	mu     sync.RWMutex
	layers []geoman.Layer
}

func (l *layerList) snapshot() []geoman.Layer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]geoman.Layer(nil), l.layers...)
}

func (l *layerList) add(layer geoman.Layer) {
	if layer == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.layers {
		if existing.ID() == layer.ID() {
			return
		}
	}
	l.layers = append(l.layers, layer)
}

func (l *layerList) remove(layer geoman.Layer) {
	if layer == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.layers {
		if existing.ID() == layer.ID() {
			l.layers = append(l.layers[:i:i], l.layers[i+1:]...)
			return
		}
	}
}

// Map is an in-memory map. It records every fired event.
type Map struct {
	id       string
	children layerList

	mu        sync.Mutex
	listeners map[string][]Listener
	fired     []activity.Event
}

// NewMap creates a map. An empty id gets a random one.
func NewMap(id string) *Map {
	if id == "" {
		id = "map-" + uuid.NewString()
	}
	return &Map{id: id, listeners: make(map[string][]Listener)}
}

func (m *Map) ID() string { return m.id }

// Layers returns the direct children in insertion order.
func (m *Map) Layers() []geoman.Layer { return m.children.snapshot() }

func (m *Map) AddLayer(layer geoman.Layer) { m.children.add(layer) }

func (m *Map) RemoveLayer(layer geoman.Layer) { m.children.remove(layer) }

// On registers a listener for verb, or for every verb with AnyEvent.
func (m *Map) On(verb string, listener Listener) {
	if listener == nil {
		return
	}
	m.mu.Lock()
	m.listeners[verb] = append(m.listeners[verb], listener)
	m.mu.Unlock()
}

// Fire records event and delivers it to the listeners of its verb, then to
// the catch-all listeners. Every listener runs; failures are joined.
func (m *Map) Fire(ctx context.Context, event activity.Event) error {
	m.mu.Lock()
	m.fired = append(m.fired, event)
	listeners := append([]Listener(nil), m.listeners[event.Verb]...)
	listeners = append(listeners, m.listeners[AnyEvent]...)
	m.mu.Unlock()

	var errs []error
	for _, listener := range listeners {
		if err := listener(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fired returns the recorded events in order.
func (m *Map) Fired() []activity.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]activity.Event(nil), m.fired...)
}

// FiredVerbs returns the verbs of the recorded events.
func (m *Map) FiredVerbs() []string {
	events := m.Fired()
	verbs := make([]string, len(events))
	for i, event := range events {
		verbs[i] = event.Verb
	}
	return verbs
}

// FeatureGroup is a plain layer group.
type FeatureGroup struct {
	id       string
	children layerList
}

// NewFeatureGroup creates a group. An empty id gets a random one.
func NewFeatureGroup(id string) *FeatureGroup {
	if id == "" {
		id = "group-" + uuid.NewString()
	}
	return &FeatureGroup{id: id}
}

func (g *FeatureGroup) ID() string { return g.id }

func (g *FeatureGroup) Layers() []geoman.Layer { return g.children.snapshot() }

func (g *FeatureGroup) AddLayer(layer geoman.Layer) { g.children.add(layer) }

func (g *FeatureGroup) RemoveLayer(layer geoman.Layer) { g.children.remove(layer) }

var (
	_ geoman.Map         = (*Map)(nil)
	_ geoman.EventTarget = (*Map)(nil)
	_ geoman.LayerGroup  = (*FeatureGroup)(nil)
)
