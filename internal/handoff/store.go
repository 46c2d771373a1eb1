// Package handoff holds an in-flight image submission while it crosses from the
// entry view to the results view without being encoded into an address.
package handoff

import (
	"sync"

	"github.com/ppiankov/verdict/internal/model"
)

// Store is a single-slot holder for at most one pending image.
//
// One producer calls Set, one consumer calls Read and then ClearIf once its
// request settles, so a newer Set is never lost. The payload lives only in
// process memory.
type Store struct {
	mu      sync.Mutex
	pending *model.ImagePayload
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Set replaces any pending image with p
func (s *Store) Set(p *model.ImagePayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = p
}

// Read returns the pending image without clearing it
func (s *Store) Read() (*model.ImagePayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.pending != nil
}

// Clear empties the store
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// ClearIf empties the store only while it still holds p. It reports whether
// p was removed.
func (s *Store) ClearIf(p *model.ImagePayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil || s.pending != p {
		return false
	}
	s.pending = nil
	return true
}

// Pending reports whether an image is waiting to be consumed
func (s *Store) Pending() bool {
	_, ok := s.Read()
	return ok
}
