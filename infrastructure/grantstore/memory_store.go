package grantstore

import (
	"sync"

	"github.com/reglet-dev/permstore/domain/ports"
)

// MemoryStore keeps the blob in memory. It satisfies ports.DurableStore for
// tests and for sessions that must not touch disk.
type MemoryStore struct {
	mu     sync.Mutex
	data   []byte
	found  bool
	writes int
}

var _ ports.DurableStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith returns a MemoryStore already holding data.
func NewMemoryStoreWith(data []byte) *MemoryStore {
	return &MemoryStore{data: append([]byte(nil), data...), found: true}
}

func (s *MemoryStore) Read() ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.found {
		return nil, false, nil
	}
	return append([]byte(nil), s.data...), true, nil
}

func (s *MemoryStore) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.found = true
	s.writes++
	return nil
}

func (s *MemoryStore) Path() string {
	return "memory"
}

// Writes returns how many times Write has been called.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
