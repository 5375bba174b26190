package surface

import (
	"sync"

	geoman "github.com/goliatone/go-geoman"
)

// Toolbar remembers its visibility and how often it was rebuilt.
type Toolbar struct {
	mu      sync.Mutex
	visible bool
	options geoman.ControlOptions
	reinits int
}

// NewToolbar creates a hidden toolbar.
func NewToolbar() *Toolbar {
	return &Toolbar{}
}

func (t *Toolbar) AddControls(options geoman.ControlOptions) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.options = options
	t.visible = true
}

func (t *Toolbar) RemoveControls() {
	t.mu.Lock()
	t.visible = false
	t.mu.Unlock()
}

func (t *Toolbar) ToggleControls() {
	t.mu.Lock()
	t.visible = !t.visible
	t.mu.Unlock()
}

func (t *Toolbar) IsVisible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

func (t *Toolbar) Reinit() {
	t.mu.Lock()
	t.reinits++
	t.mu.Unlock()
}

// Reinits counts Reinit calls.
func (t *Toolbar) Reinits() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reinits
}

// Options returns the options of the last AddControls.
func (t *Toolbar) Options() geoman.ControlOptions {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.options
}

var _ geoman.Toolbar = (*Toolbar)(nil)
