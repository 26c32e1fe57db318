package store

import (
	"sync"

	"github.com/i474232898/weather-history/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of the history store.
// It mirrors the spreadsheet semantics: Clear before the first Append reports
// ErrNoHistory, and a cleared store stays "created" but empty.
type MemoryStore struct {
	mu sync.RWMutex

	readings []weather.Reading
	created  bool

	// maxHistory caps the number of retained readings (0 = unlimited).
	maxHistory int
}

// NewMemoryStore creates a new MemoryStore.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{maxHistory: maxHistory}
}

// Append adds a reading and enforces retention.
func (s *MemoryStore) Append(r weather.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created = true
	s.readings = append(s.readings, r)

	if s.maxHistory > 0 && len(s.readings) > s.maxHistory {
		over := len(s.readings) - s.maxHistory
		s.readings = s.readings[over:]
	}
	return nil
}

// ReadAll returns a copy of all readings in insertion order.
func (s *MemoryStore) ReadAll() ([]weather.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.Reading, len(s.readings))
	copy(out, s.readings)
	return out, nil
}

// Clear removes all readings.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.created {
		return ErrNoHistory
	}
	s.readings = nil
	return nil
}
