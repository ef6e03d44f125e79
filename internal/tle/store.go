package tle

import (
	"sync/atomic"
	"time"
)

// Store holds the current dataset. Reads are lock-free so the status API and
// metrics can observe it while the cycle goroutine refreshes it.
type Store struct {
	dataset atomic.Pointer[Dataset]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil.
func (s *Store) Get() *Dataset {
	return s.dataset.Load()
}

// Set replaces the current dataset.
func (s *Store) Set(ds *Dataset) {
	s.dataset.Store(ds)
}

// Age returns how old the current dataset is at now, or -1 when empty.
func (s *Store) Age(now time.Time) time.Duration {
	ds := s.dataset.Load()
	if ds == nil {
		return -1
	}
	return now.Sub(ds.FetchedAt)
}
