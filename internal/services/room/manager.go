package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/auth"
	"github.com/minhtien379/Loto/internal/services/events"
)

// ManagerConfig holds the rules for creating and restoring rooms
type ManagerConfig struct {
	Room              Config
	CodeAttempts      int
	RestoreAttempts   int
	RestoreRetryDelay time.Duration
}

// DefaultManagerConfig returns the standard manager settings
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Room:              DefaultConfig(),
		CodeAttempts:      5,
		RestoreAttempts:   5,
		RestoreRetryDelay: 1500 * time.Millisecond,
	}
}

// Manager owns every live room in the process
type Manager struct {
	mu    sync.Mutex
	rooms map[model.RoomCode]*Room

	cfg    ManagerConfig
	deps   Deps
	auth   *auth.Service
	logger *slog.Logger
}

// NewManager creates a Manager
func NewManager(cfg ManagerConfig, deps Deps, auth *auth.Service) *Manager {
	return &Manager{
		rooms:  make(map[model.RoomCode]*Room),
		cfg:    cfg,
		deps:   deps,
		auth:   auth,
		logger: deps.Logger.With(slog.String("component", "rooms")),
	}
}

// CreateRoom opens a new room under a fresh code and returns it with its host token.
// A code is free when no live room holds it and no saved host state uses it.
func (m *Manager) CreateRoom(ctx context.Context) (*Room, string, error) {
	creds, err := m.auth.IssueHostToken()
	if err != nil {
		return nil, "", err
	}

	for attempt := 0; attempt < m.cfg.CodeAttempts; attempt++ {
		code := model.RoomCode(m.deps.Random.String(model.RoomCodeLength, model.RoomCodeAlphabet))
		if !code.Valid() {
			continue
		}
		if m.deps.Sessions.LoadHostState(ctx, code) != nil {
			m.logger.Debug("room code has saved state", slog.String("room", string(code)))
			continue
		}

		m.mu.Lock()
		if _, taken := m.rooms[code]; taken {
			m.mu.Unlock()
			continue
		}
		r := m.newRoomLocked(code, creds.Hash)
		m.mu.Unlock()

		r.Save()
		m.logger.Info("room created", slog.String("room", string(code)))
		return r, creds.Token, nil
	}
	return nil, "", model.ErrRoomCodeTaken
}

// RestoreRoom resumes a room from its saved host state. If the room is
// still live and token matches it, the live room is returned.
func (m *Manager) RestoreRoom(ctx context.Context, code model.RoomCode, token string) (*Room, error) {
	if !code.Valid() {
		return nil, model.ErrInvalidRoomCode
	}

	var state *model.HostState
	for attempt := 0; attempt < m.cfg.RestoreAttempts; attempt++ {
		if attempt > 0 {
			if err := clock.Sleep(ctx, m.deps.Clock, m.cfg.RestoreRetryDelay); err != nil {
				return nil, err
			}
		}

		m.mu.Lock()
		live, ok := m.rooms[code]
		if ok && live.Closed() {
			delete(m.rooms, code)
			ok = false
		}
		if ok {
			m.mu.Unlock()
			if m.auth.VerifyHostToken(live.HostTokenHash(), token) == nil {
				m.logger.Info("host reattached", slog.String("room", string(code)))
				return live, nil
			}
			m.logger.Debug("room code still held", slog.String("room", string(code)), slog.Int("attempt", attempt+1))
			continue
		}
		m.mu.Unlock()

		if state == nil {
			state = m.deps.Sessions.LoadHostState(ctx, code)
			if state == nil {
				return nil, model.ErrNoSavedState
			}
			if err := m.auth.VerifyHostToken(state.HostTokenHash, token); err != nil {
				return nil, err
			}
		}

		m.mu.Lock()
		if _, taken := m.rooms[code]; taken {
			m.mu.Unlock()
			continue
		}
		r := m.newRoomLocked(code, state.HostTokenHash)
		m.mu.Unlock()

		r.Restore(*state)
		return r, nil
	}
	return nil, model.ErrRoomCodeTaken
}

// SavedState returns the saved host state for code after checking token against it
func (m *Manager) SavedState(ctx context.Context, code model.RoomCode, token string) (*model.HostState, error) {
	state := m.deps.Sessions.LoadHostState(ctx, code)
	if state == nil {
		return nil, model.ErrNoSavedState
	}
	if err := m.auth.VerifyHostToken(state.HostTokenHash, token); err != nil {
		return nil, err
	}
	return state, nil
}

// DiscardSaved deletes the saved host state for code
func (m *Manager) DiscardSaved(ctx context.Context, code model.RoomCode, token string) error {
	if _, err := m.SavedState(ctx, code, token); err != nil {
		return err
	}
	m.deps.Sessions.ClearHostState(ctx, code)
	m.logger.Info("saved room discarded", slog.String("room", string(code)))
	return nil
}

// Get returns the live room for code
func (m *Manager) Get(code model.RoomCode) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok || r.Closed() {
		return nil, model.ErrRoomNotFound
	}
	return r, nil
}

// Authorize returns the live room for code when token is its host token
func (m *Manager) Authorize(code model.RoomCode, token string) (*Room, error) {
	r, err := m.Get(code)
	if err != nil {
		return nil, err
	}
	if err := m.auth.VerifyHostToken(r.HostTokenHash(), token); err != nil {
		return nil, err
	}
	return r, nil
}

// Close closes and forgets the live room for code. Its saved state is kept.
func (m *Manager) Close(code model.RoomCode) error {
	m.mu.Lock()
	r, ok := m.rooms[code]
	delete(m.rooms, code)
	m.mu.Unlock()
	if !ok {
		return model.ErrRoomNotFound
	}
	r.Close()
	return nil
}

// CloseAll closes every live room
func (m *Manager) CloseAll() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for code, r := range m.rooms {
		rooms = append(rooms, r)
		delete(m.rooms, code)
	}
	m.mu.Unlock()
	for _, r := range rooms {
		r.Close()
	}
	if len(rooms) > 0 {
		m.logger.Info("closed all rooms", slog.Int("count", len(rooms)))
	}
}

// Len returns the number of live rooms
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

func (m *Manager) newRoomLocked(code model.RoomCode, hash string) *Room {
	r := New(code, hash, m.cfg.Room, m.deps)
	r.Subscribe(events.GameLog(m.logger))
	m.rooms[code] = r
	return r
}
