// Package store provides whole-collection document storage for PushLedger.
//
// Every collection is read and rewritten in full: handlers load a collection,
// mutate it in memory, and save it back. Two interchangeable backends exist, a
// durable one that keeps each collection in a JSON document on disk and a
// volatile one that keeps everything in process memory. Callers never need to
// know which backend is active.
package store

import (
	"context"
	"errors"
	"os"
)

// Collection names the four persisted collections.
type Collection string

const (
	Devices    Collection = "devices"
	Pending    Collection = "pending"
	Sent       Collection = "sent"
	Broadcasts Collection = "broadcasts"
)

// Store errors.
var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrCorruptDocument   = errors.New("corrupt collection document")
)

// Tx exposes load/save on a backend while the store lock is held.
// A Tx is only valid inside the Update callback that produced it.
type Tx interface {
	Load(collection Collection, v any) error
	Save(collection Collection, v any) error
}

// Store is the storage adapter contract. Load decodes the full collection
// into v (a pointer to a slice); Save replaces the full collection with v.
// Update runs a load-mutate-save cycle under the store lock so that the
// pending-remove plus sent-append transition is never interleaved with
// another writer; returning an error from fn discards nothing that was not
// already saved through the Tx.
type Store interface {
	Load(ctx context.Context, collection Collection, v any) error
	Save(ctx context.Context, collection Collection, v any) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Config holds storage adapter configuration.
type Config struct {
	// Backend selects "file" or "memory".
	Backend string
	// DataDir is the directory holding collection documents (file backend).
	DataDir string
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		Backend: getEnvOrDefault("STORE_BACKEND", "file"),
		DataDir: getEnvOrDefault("STORE_DATA_DIR", "./data"),
	}
}

// Open creates the store selected by cfg. For the file backend, missing
// documents are pre-created and a corrupt document is a fatal condition
// surfaced here rather than on a per-request basis.
func Open(cfg Config) (Store, error) {
	if cfg.Backend == "memory" {
		return NewMemoryStore(), nil
	}
	return OpenFileStore(cfg.DataDir)
}

// collections is the fixed set of known collections.
var collections = []Collection{Devices, Pending, Sent, Broadcasts}

// envelopeKey returns the wrapper key used in a collection document.
// Message collections share the historical "messages" key.
func envelopeKey(c Collection) (string, bool) {
	switch c {
	case Devices:
		return "devices", true
	case Pending, Sent:
		return "messages", true
	case Broadcasts:
		return "broadcasts", true
	}
	return "", false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
