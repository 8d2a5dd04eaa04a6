package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is the volatile backend: collections live in process memory
// and are lost on restart. It is an explicit instance handed to services,
// not a package-level table, so tests can run isolated stores side by side.
// Records are kept encoded so callers get value copies, never shared slices.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[Collection]json.RawMessage
}

// NewMemoryStore creates a memory store with all collections empty.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{collections: make(map[Collection]json.RawMessage, len(collections))}
	for _, c := range collections {
		s.collections[c] = json.RawMessage("[]")
	}
	return s
}

// Load decodes the full collection into v.
func (s *MemoryStore) Load(_ context.Context, collection Collection, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(collection, v)
}

// Save replaces the full collection with v.
func (s *MemoryStore) Save(_ context.Context, collection Collection, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(collection, v)
}

// Update runs fn under the store lock.
func (s *MemoryStore) Update(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(memoryTx{s})
}

// Close discards all collections.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = nil
	return nil
}

type memoryTx struct{ s *MemoryStore }

func (t memoryTx) Load(collection Collection, v any) error { return t.s.load(collection, v) }
func (t memoryTx) Save(collection Collection, v any) error { return t.s.save(collection, v) }

func (s *MemoryStore) load(c Collection, v any) error {
	raw, ok := s.collections[c]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	return json.Unmarshal(raw, v)
}

func (s *MemoryStore) save(c Collection, v any) error {
	if _, ok := s.collections[c]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}
	if string(raw) == "null" {
		raw = json.RawMessage("[]")
	}
	s.collections[c] = raw
	return nil
}
