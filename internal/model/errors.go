package model

import "errors"

// Common errors used across the application
var (
	ErrInvalidInput = errors.New("invalid input")

	// Ticket errors
	ErrInvalidTicket = errors.New("invalid ticket")
	ErrInvalidSheets = errors.New("invalid sheets")
	ErrSheetLimit    = errors.New("sheet count out of range")

	// Room errors
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomCodeTaken    = errors.New("room code is already in use")
	ErrInvalidRoomCode  = errors.New("invalid room code")
	ErrIdentityTaken    = errors.New("identity is already in use")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrInvalidHostToken = errors.New("invalid host token")

	// Game errors
	ErrGameInProgress     = errors.New("game is in progress")
	ErrDrawInProgress     = errors.New("a draw is already in progress")
	ErrNoNumbersRemaining = errors.New("no numbers remaining")
	ErrClaimCooldown      = errors.New("claim is cooling down")
	ErrThrottled          = errors.New("action is cooling down")
	ErrInvalidVoiceMode   = errors.New("invalid voice mode")

	// Persistence errors
	ErrNoSavedState  = errors.New("no saved state")
	ErrTokenNotFound = errors.New("token not found")

	// Connection errors
	ErrHandshakeTimeout = errors.New("handshake timed out")
	ErrConnClosed       = errors.New("connection closed")
	ErrMalformedMessage = errors.New("malformed message")
	ErrNotConnected     = errors.New("not connected")
)
