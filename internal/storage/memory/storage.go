package memory

import (
	"context"
	"sync"
	"time"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/storage"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu      sync.RWMutex
	clock   clock.Clock
	entries map[string]entry
}

// New creates a new in-memory storage instance
func New(clock clock.Clock) *Storage {
	return &Storage{
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.clock.Now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || (!e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt)) {
		return nil, model.ErrTokenNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *Storage) Close() error {
	return nil
}
