package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/minhtien379/Loto/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidRoomCode    = "INVALID_ROOM_CODE"
	CodeInvalidTicket      = "INVALID_TICKET"
	CodeInvalidVoiceMode   = "INVALID_VOICE_MODE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidHostToken   = "INVALID_HOST_TOKEN"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeNoSavedState       = "NO_SAVED_STATE"
	CodeRoomCodeTaken      = "ROOM_CODE_TAKEN"
	CodeIdentityTaken      = "IDENTITY_TAKEN"
	CodeGameInProgress     = "GAME_IN_PROGRESS"
	CodeDrawInProgress     = "DRAW_IN_PROGRESS"
	CodeNoNumbersRemaining = "NO_NUMBERS_REMAINING"
	CodeThrottled          = "THROTTLED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	case errors.Is(err, model.ErrInvalidRoomCode):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRoomCode, "Room code must be 6 characters"}}
	case errors.Is(err, model.ErrInvalidTicket), errors.Is(err, model.ErrInvalidSheets), errors.Is(err, model.ErrSheetLimit):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTicket, err.Error()}}
	case errors.Is(err, model.ErrInvalidVoiceMode):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidVoiceMode, "Voice mode must be real, google or system"}}

	case errors.Is(err, model.ErrInvalidHostToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidHostToken, "Invalid host token"}}

	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrNoSavedState):
		return &httpError{http.StatusNotFound, APIError{CodeNoSavedState, "No saved state for this room"}}

	case errors.Is(err, model.ErrRoomCodeTaken):
		return &httpError{http.StatusConflict, APIError{CodeRoomCodeTaken, "Room code is already in use"}}
	case errors.Is(err, model.ErrIdentityTaken):
		return &httpError{http.StatusConflict, APIError{CodeIdentityTaken, "Identity is already in use"}}
	case errors.Is(err, model.ErrGameInProgress):
		return &httpError{http.StatusConflict, APIError{CodeGameInProgress, "Game is in progress"}}
	case errors.Is(err, model.ErrDrawInProgress):
		return &httpError{http.StatusConflict, APIError{CodeDrawInProgress, "A draw is already in progress"}}
	case errors.Is(err, model.ErrNoNumbersRemaining):
		return &httpError{http.StatusConflict, APIError{CodeNoNumbersRemaining, "All 90 numbers have been drawn"}}

	case errors.Is(err, model.ErrThrottled), errors.Is(err, model.ErrClaimCooldown):
		return &httpError{http.StatusTooManyRequests, APIError{CodeThrottled, "Slow down"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Host token required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
