// Package corrections stores human category corrections and learns new ones
// from confirmed ledger data.
package corrections

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps corrections in process memory.
type MemoryStore struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewMemoryStore creates a store seeded with entries.
func NewMemoryStore(entries map[string]string) *MemoryStore {
	s := &MemoryStore{entries: make(map[string]string, len(entries))}
	maps.Copy(s.entries, entries)
	return s
}

// Lookup implements service.CorrectionStore.
func (s *MemoryStore) Lookup(_ context.Context, counterparty string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	category, ok := s.entries[counterparty]
	return category, ok, nil
}

// Save implements service.CorrectionStore.
func (s *MemoryStore) Save(_ context.Context, counterparty, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[counterparty] = category
	return nil
}

// All implements service.CorrectionStore.
func (s *MemoryStore) All(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.entries), nil
}
