package model

import "time"

// PlayerRecord is the host's view of one player in a room
type PlayerRecord struct {
	ID        PeerID
	Name      string
	Sheets    []Sheet
	Connected bool
	JoinedAt  time.Time
}

// JoinMetadata is what a player sends when a connection opens
type JoinMetadata struct {
	Name          string
	Sheets        []Sheet
	LastSessionID PeerID
}

// JoinResult is the outcome of resolving a join against the room directory
type JoinResult struct {
	Name         string
	Sheets       []Sheet
	IsReconnect  bool
	WasConnected bool
}

// FallbackPlayerName is used when a player joins without a name
func FallbackPlayerName(id PeerID) string {
	return "Player " + id.Short()
}
