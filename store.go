package geoman

import "sync"

// optionStore holds the committed GlobalOptions of a map instance. Writers
// replace the whole snapshot; readers get a private copy.
type optionStore struct {
	mu      sync.RWMutex
	current GlobalOptions
}

func newOptionStore(initial GlobalOptions) *optionStore {
	return &optionStore{current: initial.Clone()}
}

func (s *optionStore) snapshot() GlobalOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *optionStore) commit(next GlobalOptions) {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}
