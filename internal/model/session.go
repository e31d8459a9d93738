package model

import "time"

// Expiry windows for persisted resumption tokens
const (
	SessionTTL   = time.Hour
	HostStateTTL = 2 * time.Hour
)

// StateSchemaVersion is written into every persisted envelope
const StateSchemaVersion = 1

// Session is the player-side token that lets a player resume after a restart
type Session struct {
	RoomCode   RoomCode  `json:"roomCode"`
	PlayerName string    `json:"playerName"`
	Sheets     []Sheet   `json:"sheets"`
	LastPeerID PeerID    `json:"lastPeerId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Expired reports whether the session is past its window at now
func (s Session) Expired(now time.Time) bool {
	return now.Sub(s.Timestamp) > SessionTTL
}

// HostState is the host-side token that lets a room resume after a restart
type HostState struct {
	RoomCode      RoomCode  `json:"roomCode"`
	RoundID       RoundID   `json:"roundId,omitempty"`
	CalledNumbers []int     `json:"calledNumbers"`
	CurrentNumber int       `json:"currentNumber,omitempty"`
	VoiceMode     VoiceMode `json:"voiceMode,omitempty"`
	HostTokenHash string    `json:"hostTokenHash,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Expired reports whether the host state is past its window at now
func (h HostState) Expired(now time.Time) bool {
	return now.Sub(h.Timestamp) > HostStateTTL
}
