package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/minhtien379/Loto/internal/model"
)

// legacySession is the unversioned token written by older clients.
// playerSheets holds either a list of sheets or one sheet; playerTicket
// is the older name of the same field.
type legacySession struct {
	RoomCode     string          `json:"roomCode"`
	PlayerName   string          `json:"playerName"`
	PlayerSheets json.RawMessage `json:"playerSheets"`
	PlayerTicket json.RawMessage `json:"playerTicket"`
	PeerID       string          `json:"peerId"`
	Timestamp    int64           `json:"timestamp"` // unix milliseconds
}

type legacyHostState struct {
	RoomCode      string `json:"roomCode"`
	CalledNumbers []int  `json:"calledNumbers"`
	CurrentNumber int    `json:"currentNumber"`
	Timestamp     int64  `json:"timestamp"`
}

func decodeLegacySession(data []byte) (*model.Session, error) {
	var old legacySession
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	if old.RoomCode == "" || old.Timestamp == 0 {
		return nil, fmt.Errorf("%w: legacy session missing room code or timestamp", errMalformed)
	}

	raw := old.PlayerSheets
	if len(raw) == 0 || string(raw) == "null" {
		raw = old.PlayerTicket
	}
	sheets, err := model.DecodeSheets(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}

	return &model.Session{
		RoomCode:   model.NormalizeRoomCode(old.RoomCode),
		PlayerName: old.PlayerName,
		Sheets:     sheets,
		LastPeerID: model.PeerID(old.PeerID),
		Timestamp:  time.UnixMilli(old.Timestamp),
	}, nil
}

func decodeLegacyHostState(data []byte) (*model.HostState, error) {
	var old legacyHostState
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	if old.RoomCode == "" || old.Timestamp == 0 {
		return nil, fmt.Errorf("%w: legacy host state missing room code or timestamp", errMalformed)
	}
	return &model.HostState{
		RoomCode:      model.NormalizeRoomCode(old.RoomCode),
		CalledNumbers: old.CalledNumbers,
		CurrentNumber: old.CurrentNumber,
		Timestamp:     time.UnixMilli(old.Timestamp),
	}, nil
}
