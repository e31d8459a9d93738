package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/minhtien379/Loto/internal/api/handler"
	"github.com/minhtien379/Loto/internal/api/middleware"
	"github.com/minhtien379/Loto/internal/api/response"
	"github.com/minhtien379/Loto/internal/api/sse"
	"github.com/minhtien379/Loto/internal/services/room"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	RoomManager *room.Manager
	HubManager  *sse.HubManager

	// OriginPatterns lists extra origins allowed to open player websockets
	OriginPatterns []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	roomHandler := handler.NewRoomHandler(cfg.RoomManager, cfg.HubManager, cfg.Logger)
	gameHandler := handler.NewGameHandler()
	socketHandler := handler.NewSocketHandler(cfg.RoomManager, cfg.OriginPatterns, cfg.Logger)

	// Create middleware
	hostAuthMiddleware := middleware.HostAuth(cfg.RoomManager)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Public room routes
	api.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/ws", socketHandler.Connect).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/restore", roomHandler.Restore).Methods(http.MethodPost)

	// Saved state needs a host token but no live room
	saved := api.PathPrefix("/rooms/{code}/saved").Subrouter()
	saved.Use(middleware.RequireToken)
	saved.HandleFunc("", roomHandler.Saved).Methods(http.MethodGet)
	saved.HandleFunc("", roomHandler.DiscardSaved).Methods(http.MethodDelete)

	// Host routes (all require the room's host token)
	host := api.PathPrefix("/rooms/{code}").Subrouter()
	host.Use(hostAuthMiddleware)
	host.HandleFunc("", roomHandler.Close).Methods(http.MethodDelete)
	host.HandleFunc("/state", roomHandler.State).Methods(http.MethodGet)
	host.HandleFunc("/events", roomHandler.Events).Methods(http.MethodGet)
	host.HandleFunc("/draw", gameHandler.Draw).Methods(http.MethodPost)
	host.HandleFunc("/reset", gameHandler.Reset).Methods(http.MethodPost)
	host.HandleFunc("/auto-draw", gameHandler.StartAutoDraw).Methods(http.MethodPost)
	host.HandleFunc("/auto-draw", gameHandler.StopAutoDraw).Methods(http.MethodDelete)
	host.HandleFunc("/toast", gameHandler.Toast).Methods(http.MethodPost)
	host.HandleFunc("/voice-mode", gameHandler.SetVoiceMode).Methods(http.MethodPut)
	host.HandleFunc("/emote", gameHandler.Emote).Methods(http.MethodPost)
	host.HandleFunc("/shout", gameHandler.Shout).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
