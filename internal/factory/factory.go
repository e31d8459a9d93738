package factory

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/minhtien379/Loto/internal/api/sse"
	"github.com/minhtien379/Loto/internal/config"
	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/dependencies/random"
	"github.com/minhtien379/Loto/internal/services/auth"
	"github.com/minhtien379/Loto/internal/services/generator"
	"github.com/minhtien379/Loto/internal/services/room"
	"github.com/minhtien379/Loto/internal/services/session"
	"github.com/minhtien379/Loto/internal/storage"
	filestorage "github.com/minhtien379/Loto/internal/storage/file"
	"github.com/minhtien379/Loto/internal/storage/memory"
	redisstorage "github.com/minhtien379/Loto/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService *auth.Service
	Sessions    *session.Store
	Generator   *generator.Service
	RoomManager *room.Manager
	HubManager  *sse.HubManager
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Storage selects the token store backend
	// If Type is empty, defaults to memory
	Storage config.StorageConfig
	// Game holds the room timings
	// If zero value, room.DefaultConfig() is used
	Game config.GameConfig
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()

	// Create storage based on type
	var store storage.Storage
	switch cfg.Storage.Type {
	case "", config.StorageMemory:
		store = memory.New(clk)
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		redisCfg.Namespace = cfg.Storage.RedisPrefix
		if cfg.Storage.RedisPoolSize > 0 {
			redisCfg.PoolSize = cfg.Storage.RedisPoolSize
		}
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case config.StorageFile:
		fileStore, err := filestorage.New(cfg.Storage.SessionFile, clk)
		if err != nil {
			return nil, err
		}
		store = fileStore
	default:
		return nil, fmt.Errorf("invalid storage type %q: must be memory, redis or file", cfg.Storage.Type)
	}

	return newWithDependencies(store, clk, random.New(), managerConfig(cfg.Game), authConfig(cfg.Game), logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, managerCfg room.ManagerConfig, authCfg auth.Config, logger *slog.Logger) *App {
	authService := auth.New(authCfg)
	sessions := session.New(store, clk, logger)
	gen := generator.New(rnd, logger)
	roomManager := room.NewManager(managerCfg, room.Deps{
		Clock:    clk,
		Random:   rnd,
		Sheets:   gen,
		Sessions: sessions,
		Logger:   logger,
	}, authService)
	hubManager := sse.NewHubManager(logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		AuthService: authService,
		Sessions:    sessions,
		Generator:   gen,
		RoomManager: roomManager,
		HubManager:  hubManager,
	}
}

// Close closes every room and stream, then the storage
func (a *App) Close() error {
	a.RoomManager.CloseAll()
	a.HubManager.CloseAll()
	return a.Storage.Close()
}

// managerConfig applies the game timings to the default room rules.
// A zero GameConfig keeps every default; otherwise AnnounceDelay is taken as
// given so it can be switched off.
func managerConfig(g config.GameConfig) room.ManagerConfig {
	cfg := room.DefaultManagerConfig()
	if g == (config.GameConfig{}) {
		return cfg
	}
	if g.WinWindow > 0 {
		cfg.Room.WinWindow = g.WinWindow
	}
	if g.ClaimCooldown > 0 {
		cfg.Room.ClaimCooldown = g.ClaimCooldown
	}
	cfg.Room.AnnounceDelay = g.AnnounceDelay
	return cfg
}

func authConfig(g config.GameConfig) auth.Config {
	if g.BcryptCost == 0 {
		return auth.DefaultConfig()
	}
	return auth.Config{BcryptCost: g.BcryptCost}
}
