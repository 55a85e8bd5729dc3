package config

import (
	"sync"
	"sync/atomic"
)

// Store holds the current settings and notifies listeners on change.
// Reads never block.
type Store struct {
	value atomic.Pointer[Settings]

	mu        sync.RWMutex
	listeners []func(old, new_ *Settings)
}

// NewStore creates a store with the given initial settings
func NewStore(initial *Settings) *Store {
	s := &Store{}
	s.value.Store(initial)
	return s
}

// Get returns the current settings
func (s *Store) Get() *Settings {
	return s.value.Load()
}

// Swap replaces the settings and notifies all listeners
func (s *Store) Swap(new_ *Settings) *Settings {
	old := s.value.Swap(new_)

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(old, new_)
	}
	return old
}

// OnChange registers a listener called after every Swap
func (s *Store) OnChange(fn func(old, new_ *Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
