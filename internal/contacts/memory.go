package contacts

import (
	"context"
	"fmt"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	Contacts map[string]Contact
	Blocked  map[string]bool
	Log      []LogEntry
	Err      error // if set, every call fails with this error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Contacts: make(map[string]Contact),
		Blocked:  make(map[string]bool),
	}
}

func (s *MemoryStore) Lookup(_ context.Context, number string) (Contact, error) {
	if s.Err != nil {
		return Contact{}, s.Err
	}
	if c, ok := s.Contacts[number]; ok {
		return c, nil
	}
	return Contact{}, fmt.Errorf("%w: %s", ErrNotFound, number)
}

func (s *MemoryStore) IsBlocked(_ context.Context, number string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	return s.Blocked[number], nil
}

func (s *MemoryStore) AddLog(_ context.Context, e LogEntry) error {
	if s.Err != nil {
		return s.Err
	}
	s.Log = append(s.Log, e)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
