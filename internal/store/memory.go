// internal/store/memory.go
//
// In-memory implementation of the session Store interface.
// Holds live game engines keyed by session ID for the duration of play;
// state is lost when the process restarts. Finished-game rows are
// persisted separately by the HTTP layer.
//
// Characteristics:
//   - Stores *game.Engine objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - ErrNotFound is returned for missing session IDs on Get().

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/lingotrail/go-server/internal/game"
)

// ErrNotFound is returned when a session ID is unknown.
var ErrNotFound = errors.New("store: session not found")

// Store defines the persistence interface for game sessions.
// Implementations may be backed by memory (this package), Redis, SQL, etc.
type Store interface {
	// Save registers or updates a session.
	Save(ctx context.Context, e *game.Engine) error

	// Get retrieves a session by ID.
	// Returns ErrNotFound if the session is not known.
	Get(ctx context.Context, id string) (*game.Engine, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex            // guards sessions map
	sessions map[string]*game.Engine // keyed by Engine.ID()
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*game.Engine)}
}

// Save adds or updates the session in the map.
func (m *memory) Save(ctx context.Context, e *game.Engine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[e.ID()] = e
	return nil
}

// Get looks up a session by ID.
func (m *memory) Get(ctx context.Context, id string) (*game.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.sessions[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}
