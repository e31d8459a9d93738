package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/minhtien379/Loto/internal/api/apierr"
	"github.com/minhtien379/Loto/internal/api/middleware"
	"github.com/minhtien379/Loto/internal/api/request"
	"github.com/minhtien379/Loto/internal/api/response"
	"github.com/minhtien379/Loto/internal/api/sse"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/room"
)

// RoomHandler handles room lifecycle endpoints
type RoomHandler struct {
	rooms  *room.Manager
	hubs   *sse.HubManager
	logger *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *room.Manager, hubs *sse.HubManager, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		rooms:  rooms,
		hubs:   hubs,
		logger: logger,
	}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	rm, token, err := h.rooms.CreateRoom(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.CreateRoomResponse{
		RoomCode:  string(rm.Code()),
		HostID:    string(rm.HostID()),
		HostToken: token,
	})
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(roomCode(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomSummaryFromModel(rm.Summary()))
}

// Restore handles POST /api/v1/rooms/{code}/restore
func (h *RoomHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req request.RestoreRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// The token may come as a bearer header instead
		req = request.RestoreRoomRequest{}
	}
	token := req.HostToken
	if token == "" {
		token = middleware.HostToken(r)
	}
	if token == "" {
		WriteError(w, apierr.NewUnauthorizedError())
		return
	}

	rm, err := h.rooms.RestoreRoom(r.Context(), roomCode(r), token)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomSummaryFromModel(rm.Summary()))
}

// Saved handles GET /api/v1/rooms/{code}/saved
func (h *RoomHandler) Saved(w http.ResponseWriter, r *http.Request) {
	state, err := h.rooms.SavedState(r.Context(), roomCode(r), middleware.GetToken(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SavedStateFromModel(state))
}

// DiscardSaved handles DELETE /api/v1/rooms/{code}/saved
func (h *RoomHandler) DiscardSaved(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.DiscardSaved(r.Context(), roomCode(r), middleware.GetToken(r.Context())); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// State handles GET /api/v1/rooms/{code}/state
func (h *RoomHandler) State(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())
	response.JSON(w, http.StatusOK, response.RoomStateFromModel(rm.Snapshot()))
}

// Close handles DELETE /api/v1/rooms/{code}
func (h *RoomHandler) Close(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())
	if err := h.rooms.Close(rm.Code()); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Events handles GET /api/v1/rooms/{code}/events
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	// The stream outlives the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	hub := h.hubs.Attach(rm.Code(), rm)
	sse.ServeSSE(w, r, hub, r.RemoteAddr)
}

// roomCode reads the {code} path variable
func roomCode(r *http.Request) model.RoomCode {
	return model.NormalizeRoomCode(mux.Vars(r)["code"])
}
