package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Persister is the durable storage port for UserStats.
type Persister interface {
	// Load returns the stored stats, or nil when nothing was stored yet.
	Load(ctx context.Context) (*UserStats, error)

	// Save replaces the stored stats with s.
	Save(ctx context.Context, s *UserStats) error
}

// StorageWriteError reports a failed durable write. The in-memory stats
// remain authoritative when this happens.
type StorageWriteError struct {
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("save stats: %v", e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// MemoryPersister keeps stats in memory as JSON, so tests observe the same
// encoding a durable store would. Set FailWith to simulate write failures.
type MemoryPersister struct {
	mu       sync.Mutex
	data     []byte
	Saves    int
	FailWith error
}

// NewMemoryPersister returns an empty MemoryPersister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (m *MemoryPersister) Load(_ context.Context) (*UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, nil
	}
	var s UserStats
	if err := json.Unmarshal(m.data, &s); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &s, nil
}

func (m *MemoryPersister) Save(_ context.Context, s *UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	m.data = b
	m.Saves++
	return nil
}
