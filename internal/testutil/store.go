package testutil

import (
	"sync"

	"github.com/reglet-dev/permstore/domain/ports"
)

// FlakyStore wraps a DurableStore and can be told to fail reads or writes.
type FlakyStore struct {
	ports.DurableStore

	mu       sync.Mutex
	readErr  error
	writeErr error
	writes   int
}

// NewFlakyStore wraps inner.
func NewFlakyStore(inner ports.DurableStore) *FlakyStore {
	return &FlakyStore{DurableStore: inner}
}

// FailReads makes Read return err; nil restores normal reads.
func (s *FlakyStore) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// FailWrites makes Write return err; nil restores normal writes.
func (s *FlakyStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Writes returns the number of Write calls, failed ones included.
func (s *FlakyStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *FlakyStore) Read() ([]byte, bool, error) {
	s.mu.Lock()
	err := s.readErr
	s.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return s.DurableStore.Read()
}

func (s *FlakyStore) Write(data []byte) error {
	s.mu.Lock()
	s.writes++
	err := s.writeErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.DurableStore.Write(data)
}
