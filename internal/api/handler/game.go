package handler

import (
	"net/http"
	"time"

	"github.com/minhtien379/Loto/internal/api/middleware"
	"github.com/minhtien379/Loto/internal/api/request"
	"github.com/minhtien379/Loto/internal/api/response"
	"github.com/minhtien379/Loto/internal/model"
)

// GameHandler handles the host's game controls
type GameHandler struct{}

// NewGameHandler creates a new game handler
func NewGameHandler() *GameHandler {
	return &GameHandler{}
}

// Draw handles POST /api/v1/rooms/{code}/draw
func (h *GameHandler) Draw(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	result, err := rm.Draw()
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.DrawResponseFromModel(result))
}

// Reset handles POST /api/v1/rooms/{code}/reset
func (h *GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	roundID, err := rm.Reset()
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ResetResponse{RoundID: string(roundID)})
}

// StartAutoDraw handles POST /api/v1/rooms/{code}/auto-draw
func (h *GameHandler) StartAutoDraw(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	var req request.AutoDrawRequest
	if !decodeBody(w, r, &req) {
		return
	}

	interval := time.Duration(req.IntervalMs) * time.Millisecond
	if err := rm.StartAutoDraw(interval); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AutoDrawResponse{Running: true, IntervalMs: req.IntervalMs})
}

// StopAutoDraw handles DELETE /api/v1/rooms/{code}/auto-draw
func (h *GameHandler) StopAutoDraw(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())
	rm.StopAutoDraw()
	response.JSON(w, http.StatusOK, response.AutoDrawResponse{Running: false})
}

// Toast handles POST /api/v1/rooms/{code}/toast
func (h *GameHandler) Toast(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	var req request.ToastRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := rm.BroadcastToast(req.Message, model.ToastStyle(req.Style)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// SetVoiceMode handles PUT /api/v1/rooms/{code}/voice-mode
func (h *GameHandler) SetVoiceMode(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	var req request.VoiceModeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := rm.SetVoiceMode(model.VoiceMode(req.Mode)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Emote handles POST /api/v1/rooms/{code}/emote
func (h *GameHandler) Emote(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	var req request.EmoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := rm.HostEmote(req.Emoji); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Shout handles POST /api/v1/rooms/{code}/shout
func (h *GameHandler) Shout(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	var req request.ShoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := rm.HostShout(req.Text); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
