// Package ramstore provides an in-memory storage backend. It is the
// reference implementation of the storage contract and the backend used
// throughout the engine's own tests.
package ramstore

import (
	"sync"

	"github.com/c360/exengine/coords"
	"github.com/c360/exengine/storage"
)

type item struct {
	data     []byte
	metadata map[string]any
}

// Store holds every item in process memory
type Store struct {
	mu       sync.RWMutex
	items    map[string]item
	finished bool
	closed   bool
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{items: make(map[string]item)}
}

// Put implements storage.Backend. The data and metadata are copied so the
// caller may reuse its buffers.
func (s *Store) Put(c coords.Coordinates, data []byte, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished || s.closed {
		return storage.ErrFinished
	}

	copied := make([]byte, len(data))
	copy(copied, data)
	md := make(map[string]any, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	s.items[c.Key()] = item{data: copied, metadata: md}
	return nil
}

// GetData implements storage.Backend
func (s *Store) GetData(c coords.Coordinates) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[c.Key()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return it.data, nil
}

// GetMetadata implements storage.Backend
func (s *Store) GetMetadata(c coords.Coordinates) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[c.Key()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return it.metadata, nil
}

// Contains implements storage.Backend
func (s *Store) Contains(c coords.Coordinates) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[c.Key()]
	return ok, nil
}

// Finish implements storage.Backend
func (s *Store) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	return nil
}

// Close implements storage.Backend. Items remain readable until Close.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	return nil
}

// Len returns the number of stored items
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
