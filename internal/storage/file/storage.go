package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/storage"
)

type entry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expiresAt,omitzero"`
}

// Storage keeps every key in one JSON document on disk. It is meant for the
// player CLI, where a single process owns the file.
type Storage struct {
	mu    sync.Mutex
	path  string
	clock clock.Clock
}

// New creates a file storage at path. The file is created on first write.
func New(path string, clock clock.Clock) (*Storage, error) {
	if path == "" {
		return nil, errors.New("file storage: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("file storage: %w", err)
	}
	return &Storage{path: path, clock: clock}, nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !json.Valid(value) {
		return fmt.Errorf("file storage: value for %s is not JSON", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return err
	}
	e := entry{Value: append(json.RawMessage(nil), value...)}
	if ttl > 0 {
		e.ExpiresAt = s.clock.Now().Add(ttl)
	}
	entries[key] = e
	return s.save(entries)
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	e, ok := entries[key]
	if !ok || (!e.ExpiresAt.IsZero() && !s.clock.Now().Before(e.ExpiresAt)) {
		return nil, model.ErrTokenNotFound
	}
	return e.Value, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.save(entries)
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) load() (map[string]entry, error) {
	entries := make(map[string]entry)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file storage: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("file storage: %s is corrupt: %w", s.path, err)
	}
	return entries, nil
}

// save writes to a temporary file and renames it over the target
func (s *Storage) save(entries map[string]entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".loto-*.tmp")
	if err != nil {
		return fmt.Errorf("file storage: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file storage: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("file storage: %w", err)
	}
	return nil
}
