package quota

import (
	"context"
	"sync"

	"echodao-backend/internal/model"
)

// MemoryStore keeps the history for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]model.CreationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]model.CreationRecord)}
}

func (s *MemoryStore) Records(_ context.Context, user string) ([]model.CreationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.CreationRecord(nil), s.records[user]...), nil
}

func (s *MemoryStore) Append(_ context.Context, user string, record model.CreationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[user] = append(s.records[user], record)
	return nil
}
