package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is the durable backend. Each collection lives in one
// pretty-printed JSON document, e.g. devices.json = {"devices": [...]}.
// A single mutex serializes every load-mutate-save cycle; whole-collection
// replace is a lost-update hazard under concurrent writers, so the lock is
// held for the full cycle.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// OpenFileStore opens the document directory, creating it and any missing
// collection documents. An existing document that does not parse is returned
// as an error so startup fails instead of individual requests.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &FileStore{dir: dir}
	for _, c := range collections {
		path := s.path(c)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := s.write(c, json.RawMessage("[]")); err != nil {
				return nil, fmt.Errorf("init %s: %w", c, err)
			}
			continue
		}
		var probe []json.RawMessage
		if err := s.read(c, &probe); err != nil {
			return nil, fmt.Errorf("validate %s: %w", c, err)
		}
	}
	return s, nil
}

// Load decodes the full collection into v.
func (s *FileStore) Load(_ context.Context, collection Collection, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(collection, v)
}

// Save replaces the full collection with v.
func (s *FileStore) Save(_ context.Context, collection Collection, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(collection, v)
}

// Update runs fn under the store lock.
func (s *FileStore) Update(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(fileTx{s})
}

// Close is a no-op; documents are rewritten synchronously on every save.
func (s *FileStore) Close() error { return nil }

// fileTx operates on the store while the Update lock is held.
type fileTx struct{ s *FileStore }

func (t fileTx) Load(collection Collection, v any) error { return t.s.read(collection, v) }
func (t fileTx) Save(collection Collection, v any) error { return t.s.write(collection, v) }

func (s *FileStore) path(c Collection) string {
	return filepath.Join(s.dir, string(c)+".json")
}

func (s *FileStore) read(c Collection, v any) error {
	key, ok := envelopeKey(c)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	raw, err := os.ReadFile(s.path(c))
	if err != nil {
		return fmt.Errorf("read %s: %w", c, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptDocument, c, err)
	}

	records, ok := doc[key]
	if !ok {
		return fmt.Errorf("%w: %s: missing %q key", ErrCorruptDocument, c, key)
	}
	if err := json.Unmarshal(records, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptDocument, c, err)
	}
	return nil
}

func (s *FileStore) write(c Collection, v any) error {
	key, ok := envelopeKey(c)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	records, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}
	if string(records) == "null" {
		records = json.RawMessage("[]")
	}

	doc, err := json.MarshalIndent(map[string]json.RawMessage{key: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c, err)
	}

	if err := os.WriteFile(s.path(c), doc, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c, err)
	}
	return nil
}
