package menu

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and development.
type MemoryStore struct {
	mu  sync.RWMutex
	doc *Document

	// FailGet and FailSet force errors for failure-path tests.
	FailGet error
	FailSet error
}

// NewMemoryStore returns an empty in-memory store: Get reports ErrNotFound
// until the first Set.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns a deep copy of the stored document.
func (s *MemoryStore) Get(ctx context.Context) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailGet != nil {
		return nil, s.FailGet
	}
	if s.doc == nil {
		return nil, ErrNotFound
	}
	return s.doc.Clone(), nil
}

// Set stores a deep copy of the document.
func (s *MemoryStore) Set(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSet != nil {
		return s.FailSet
	}
	s.doc = doc.Clone()
	return nil
}
