package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps staged imports in process memory
type MemoryStore struct {
	mu      sync.Mutex
	imports map[string][]byte
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		imports: make(map[string][]byte),
		now:     time.Now,
	}
}

// Save stores a copy of imp
func (s *MemoryStore) Save(ctx context.Context, imp *StagedImport) error {
	data, err := json.Marshal(imp)
	if err != nil {
		return fmt.Errorf("failed to encode staged import: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports[imp.ID] = data
	return nil
}

// Get returns a copy of the staged import
func (s *MemoryStore) Get(ctx context.Context, id string) (*StagedImport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

// Transition performs a compare-and-set on the state under the store lock
func (s *MemoryStore) Transition(ctx context.Context, id string, from, to State, mutate func(*StagedImport)) (*StagedImport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	imp, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if imp.State != from {
		return nil, wrongState(id, imp.State, from)
	}

	imp.State = to
	if mutate != nil {
		mutate(imp)
	}

	data, err := json.Marshal(imp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode staged import: %w", err)
	}
	s.imports[id] = data
	return imp, nil
}

// DeleteExpired drops every import expired at now
func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, data := range s.imports {
		var imp StagedImport
		if err := json.Unmarshal(data, &imp); err != nil || imp.Expired(now) {
			delete(s.imports, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored imports, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.imports)
}

func (s *MemoryStore) get(id string) (*StagedImport, error) {
	data, ok := s.imports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var imp StagedImport
	if err := json.Unmarshal(data, &imp); err != nil {
		return nil, fmt.Errorf("failed to decode staged import %s: %w", id, err)
	}
	if imp.Expired(s.now()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &imp, nil
}
