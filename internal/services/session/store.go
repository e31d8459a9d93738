package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/storage"
)

const (
	kindSession   = "session"
	kindHostState = "host"
)

var errMalformed = errors.New("malformed token")

type envelope struct {
	V    *int            `json:"v,omitempty"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Store persists the tokens that let players and hosts resume after a restart.
// Storage failures are logged and swallowed; a token that cannot be read is
// treated as absent.
type Store struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a Store
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "session")),
	}
}

// SaveSession stamps and writes a player session under scope
func (s *Store) SaveSession(ctx context.Context, scope string, sess model.Session) {
	sess.Timestamp = s.clock.Now()
	s.put(ctx, storage.SessionKey(scope), kindSession, sess, model.SessionTTL)
}

// LoadSession returns the session under scope, or nil when it is absent,
// expired or unreadable
func (s *Store) LoadSession(ctx context.Context, scope string) *model.Session {
	key := storage.SessionKey(scope)
	data, ok := s.get(ctx, key)
	if !ok {
		return nil
	}
	sess, err := decodeSession(data)
	if err != nil {
		s.logger.Warn("clearing unreadable session", slog.String("key", key), slog.String("error", err.Error()))
		s.delete(ctx, key)
		return nil
	}
	if sess.Expired(s.clock.Now()) {
		s.logger.Debug("clearing expired session", slog.String("key", key))
		s.delete(ctx, key)
		return nil
	}
	return sess
}

// ClearSession removes the session under scope
func (s *Store) ClearSession(ctx context.Context, scope string) {
	s.delete(ctx, storage.SessionKey(scope))
}

// SaveHostState stamps and writes a room's host state
func (s *Store) SaveHostState(ctx context.Context, state model.HostState) {
	state.Timestamp = s.clock.Now()
	s.put(ctx, storage.HostStateKey(state.RoomCode), kindHostState, state, model.HostStateTTL)
}

// LoadHostState returns the saved state of a room, or nil when it is absent,
// expired or unreadable
func (s *Store) LoadHostState(ctx context.Context, code model.RoomCode) *model.HostState {
	key := storage.HostStateKey(code)
	data, ok := s.get(ctx, key)
	if !ok {
		return nil
	}
	state, err := decodeHostState(data)
	if err != nil {
		s.logger.Warn("clearing unreadable host state", slog.String("key", key), slog.String("error", err.Error()))
		s.delete(ctx, key)
		return nil
	}
	if state.Expired(s.clock.Now()) {
		s.logger.Debug("clearing expired host state", slog.String("key", key))
		s.delete(ctx, key)
		return nil
	}
	return state
}

// ClearHostState removes a room's host state
func (s *Store) ClearHostState(ctx context.Context, code model.RoomCode) {
	s.delete(ctx, storage.HostStateKey(code))
}

func (s *Store) put(ctx context.Context, key, kind string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err == nil {
		v := model.StateSchemaVersion
		data, err = json.Marshal(envelope{V: &v, Kind: kind, Data: data})
	}
	if err != nil {
		s.logger.Error("failed to encode token", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := s.storage.Put(ctx, key, data, ttl); err != nil {
		s.logger.Warn("failed to save token", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *Store) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.storage.Get(ctx, key)
	if errors.Is(err, model.ErrTokenNotFound) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("failed to load token", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	return data, true
}

func (s *Store) delete(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to clear token", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// unwrap returns the payload of a versioned envelope, or ok=false for a legacy token
func unwrap(data []byte, kind string) (json.RawMessage, bool, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("%w: %w", errMalformed, err)
	}
	if env.V == nil {
		return nil, false, nil
	}
	if *env.V != model.StateSchemaVersion {
		return nil, false, fmt.Errorf("%w: unsupported version %d", errMalformed, *env.V)
	}
	if env.Kind != kind {
		return nil, false, fmt.Errorf("%w: expected kind %q, got %q", errMalformed, kind, env.Kind)
	}
	return env.Data, true, nil
}

func decodeSession(data []byte) (*model.Session, error) {
	payload, versioned, err := unwrap(data, kindSession)
	if err != nil {
		return nil, err
	}
	if !versioned {
		return decodeLegacySession(data)
	}
	var sess model.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	if sess.RoomCode == "" {
		return nil, fmt.Errorf("%w: missing room code", errMalformed)
	}
	return &sess, nil
}

func decodeHostState(data []byte) (*model.HostState, error) {
	payload, versioned, err := unwrap(data, kindHostState)
	if err != nil {
		return nil, err
	}
	if !versioned {
		return decodeLegacyHostState(data)
	}
	var state model.HostState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	if state.RoomCode == "" {
		return nil, fmt.Errorf("%w: missing room code", errMalformed)
	}
	return &state, nil
}
