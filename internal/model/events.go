package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Player events
	EventPlayerJoined      EventType = "player-joined"
	EventPlayerReconnected EventType = "player-reconnected"
	EventPlayerLeft        EventType = "player-left"
	EventTicketUpdated     EventType = "ticket-updated"

	// Game events
	EventNumberDrawn     EventType = "number-drawn"
	EventClaimReceived   EventType = "claim-received"
	EventClaimRejected   EventType = "claim-rejected"
	EventWinConfirmed    EventType = "win-confirmed"
	EventGameReset       EventType = "game-reset"
	EventAutoDrawStopped EventType = "auto-draw-stopped"

	// Room chatter
	EventWaitSignal EventType = "wait-signal"
	EventEmote      EventType = "emote"
	EventShout      EventType = "shout"
	EventToast      EventType = "toast"
	EventVoiceMode  EventType = "voice-mode"
	EventRoomClosed EventType = "room-closed"
)

// Event is the base structure for all events a room publishes to its host
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RoomCode  RoomCode  `json:"roomCode"`
	PlayerID  PeerID    `json:"playerId,omitempty"` // The player who triggered or is affected
	Payload   any       `json:"payload,omitempty"`  // Type-specific data
}

// PlayerPayload contains data for player joined, reconnected and left events
type PlayerPayload struct {
	Name         string `json:"name"`
	SheetCount   int    `json:"sheetCount"`
	WasConnected bool   `json:"wasConnected,omitempty"`
}

// NumberDrawnPayload contains data for number drawn events
type NumberDrawnPayload struct {
	Number    int    `json:"number"`
	Words     string `json:"words"`
	Rhyme     string `json:"rhyme,omitempty"`
	Called    int    `json:"called"`
	Remaining int    `json:"remaining"`
}

// ClaimPayload contains data for claim received and rejected events
type ClaimPayload struct {
	Name string       `json:"name"`
	Rows []WinningRow `json:"rows,omitempty"`
}

// WinConfirmedPayload contains data for win confirmed events
type WinConfirmedPayload struct {
	Winners    []string `json:"winners"`
	WinnerName string   `json:"winnerName"`
}

// ChatterPayload contains data for wait signal, emote and shout events
type ChatterPayload struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
	Text  string `json:"text,omitempty"`
}

// ToastPayload contains data for toast events
type ToastPayload struct {
	Message string     `json:"message"`
	Style   ToastStyle `json:"style"`
}

// VoiceModePayload contains data for voice mode events
type VoiceModePayload struct {
	Mode VoiceMode `json:"mode"`
}

// AutoDrawStoppedPayload contains data for auto draw stopped events
type AutoDrawStoppedPayload struct {
	Reason string `json:"reason"`
}
