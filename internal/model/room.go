package model

import "strings"

// RoomCode is the short human-shareable identifier of a room
type RoomCode string

// PeerID identifies one connection endpoint
type PeerID string

// RoundID identifies one round of play within a room; a reset starts a new round
type RoundID string

// Room code generation
const (
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	RoomCodeLength   = 6
)

// HostPeerPrefix is prepended to the room code to form the host identity
const HostPeerPrefix = "loto-"

// HostSenderID is the senderId used for emotes and shouts that originate from the host
const HostSenderID PeerID = "HOST"

// HostPeerID derives the host identity for a room
func HostPeerID(code RoomCode) PeerID {
	return PeerID(HostPeerPrefix + string(code))
}

// NormalizeRoomCode trims and upper-cases user input
func NormalizeRoomCode(s string) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(s)))
}

// Valid reports whether the code has the right length and alphabet
func (c RoomCode) Valid() bool {
	if len(c) != RoomCodeLength {
		return false
	}
	for _, r := range string(c) {
		if !strings.ContainsRune(RoomCodeAlphabet, r) {
			return false
		}
	}
	return true
}

// Short returns the first four characters of the identity, for fallback display names
func (p PeerID) Short() string {
	if len(p) <= 4 {
		return string(p)
	}
	return string(p[:4])
}

// VoiceMode selects how numbers are announced on player devices
type VoiceMode string

const (
	VoiceModeReal   VoiceMode = "real"
	VoiceModeGoogle VoiceMode = "google"
	VoiceModeSystem VoiceMode = "system"
)

// Valid reports whether the mode is known
func (m VoiceMode) Valid() bool {
	switch m {
	case VoiceModeReal, VoiceModeGoogle, VoiceModeSystem:
		return true
	}
	return false
}
