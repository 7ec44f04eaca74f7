// internal/store/memory.go
//
// Persistence adapter for player snapshots, plus the in-memory implementation.
// The memory store keeps encoded snapshots so every Load goes through the same
// decode/validate path as a durable backend.
//
// Characteristics:
//   - Stores encoded *game.Snapshot records keyed by session ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/buttonwang/wordly/internal/game"
)

// ErrNotFound is returned by Load when no snapshot exists for an ID.
var ErrNotFound = errors.New("snapshot not found")

// Store defines the persistence interface for player snapshots.
// Implementations may be backed by memory (this package), SQLite, etc.
type Store interface {
	// Save persists or replaces the snapshot for id.
	Save(ctx context.Context, id string, s *game.Snapshot) error

	// Load retrieves the snapshot for id.
	// Returns ErrNotFound if missing, or an error wrapping
	// game.ErrCorruptSnapshot if the stored record cannot be trusted.
	Load(ctx context.Context, id string) (*game.Snapshot, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu   sync.RWMutex      // guards data map
	data map[string][]byte // encoded snapshots keyed by session ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{data: make(map[string][]byte)}
}

// Save encodes and stores the snapshot.
func (m *memory) Save(ctx context.Context, id string, s *game.Snapshot) error {
	b, err := game.EncodeSnapshot(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = b
	return nil
}

// Load decodes the stored snapshot for id.
func (m *memory) Load(ctx context.Context, id string) (*game.Snapshot, error) {
	m.mu.RLock()
	b, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return game.DecodeSnapshot(b)
}
