package surface

import (
	"sync"

	geoman "github.com/goliatone/go-geoman"
)

// Cutter tracks cut sessions. The geometry work is left to the host.
type Cutter struct {
	mu       sync.Mutex
	enabled  bool
	last     geoman.CutOptions
	sessions int
}

// NewCutter creates a disabled cut handler.
func NewCutter() *Cutter {
	return &Cutter{}
}

func (c *Cutter) Enable(options geoman.CutOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		c.sessions++
	}
	c.enabled = true
	c.last = options
	return nil
}

func (c *Cutter) Disable() error {
	c.mu.Lock()
	c.enabled = false
	c.mu.Unlock()
	return nil
}

func (c *Cutter) Toggle(options geoman.CutOptions) error {
	if c.Enabled() {
		return c.Disable()
	}
	return c.Enable(options)
}

func (c *Cutter) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// LastOptions returns the options of the latest Enable.
func (c *Cutter) LastOptions() geoman.CutOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Sessions counts how many times cutting was switched on.
func (c *Cutter) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions
}

var _ geoman.CutHandler = (*Cutter)(nil)
