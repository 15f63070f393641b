package elements

import (
	"sync"
	"sync/atomic"
	"time"
)

// Store provides lock-free access to the current ActiveSet.
type Store struct {
	active     atomic.Pointer[ActiveSet]
	generation uint64
	capacity   int
	mu         sync.Mutex // orders publishers so generations only increase
}

// NewStore creates an empty Store whose sets may hold at most capacity objects.
func NewStore(capacity int) *Store {
	return &Store{capacity: capacity}
}

// Capacity returns the maximum number of objects per ActiveSet.
func (s *Store) Capacity() int {
	return s.capacity
}

// Get returns the current ActiveSet, or nil if none has been published.
func (s *Store) Get() *ActiveSet {
	return s.active.Load()
}

// Swap stamps set with the next generation number and publishes it. The
// caller must not modify set afterwards. Swap panics if set exceeds the
// store's capacity; truncation is the publisher's responsibility.
func (s *Store) Swap(set *ActiveSet) *ActiveSet {
	if len(set.Objects) > s.capacity {
		panic("elements: active set exceeds capacity")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	set.Generation = s.generation
	return s.active.Swap(set)
}

// AgeSeconds returns the age of the current set in seconds, or -1 if no set
// has been published.
func (s *Store) AgeSeconds() float64 {
	set := s.active.Load()
	if set == nil {
		return -1
	}
	return time.Since(set.FetchedAt).Seconds()
}
