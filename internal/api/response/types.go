package response

import (
	"time"

	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/room"
)

// CreateRoomResponse is returned once when a room is created; the token is never shown again
type CreateRoomResponse struct {
	RoomCode  string `json:"room_code"`
	HostID    string `json:"host_id"`
	HostToken string `json:"host_token"`
}

// RoomSummary is the public view of a room
type RoomSummary struct {
	Code      string `json:"code"`
	HostID    string `json:"host_id"`
	Players   int    `json:"players"`
	Started   bool   `json:"started"`
	Called    int    `json:"called"`
	VoiceMode string `json:"voice_mode"`
}

// RoomSummaryFromModel converts room.Summary
func RoomSummaryFromModel(s room.Summary) RoomSummary {
	return RoomSummary{
		Code:      string(s.Code),
		HostID:    string(s.HostID),
		Players:   s.Players,
		Started:   s.Started,
		Called:    s.Called,
		VoiceMode: string(s.VoiceMode),
	}
}

// SavedState is a room's persisted host state, without its token hash
type SavedState struct {
	RoomCode      string    `json:"room_code"`
	RoundID       string    `json:"round_id,omitempty"`
	CalledNumbers []int     `json:"called_numbers"`
	CurrentNumber int       `json:"current_number"`
	VoiceMode     string    `json:"voice_mode,omitempty"`
	SavedAt       time.Time `json:"saved_at"`
}

// SavedStateFromModel converts model.HostState
func SavedStateFromModel(h *model.HostState) SavedState {
	called := h.CalledNumbers
	if called == nil {
		called = []int{}
	}
	return SavedState{
		RoomCode:      string(h.RoomCode),
		RoundID:       string(h.RoundID),
		CalledNumbers: called,
		CurrentNumber: h.CurrentNumber,
		VoiceMode:     string(h.VoiceMode),
		SavedAt:       h.Timestamp,
	}
}

// Player is one entry of the host's player list
type Player struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Connected bool          `json:"connected"`
	Waiting   bool          `json:"waiting"`
	Sheets    []model.Sheet `json:"sheets"`
	JoinedAt  time.Time     `json:"joined_at"`
}

// RoomState is the host's full view of a room
type RoomState struct {
	Code           string    `json:"code"`
	VoiceMode      string    `json:"voice_mode"`
	RoundID        string    `json:"round_id"`
	Started        bool      `json:"started"`
	CalledNumbers  []int     `json:"called_numbers"`
	CurrentNumber  int       `json:"current_number"`
	Remaining      int       `json:"remaining"`
	Drawing        bool      `json:"drawing"`
	AutoDrawMs     int64     `json:"auto_draw_ms"`
	Players        []Player  `json:"players"`
	PendingWinners []string  `json:"pending_winners"`
	CreatedAt      time.Time `json:"created_at"`
}

// RoomStateFromModel converts room.State
func RoomStateFromModel(s room.State) RoomState {
	players := make([]Player, len(s.Players))
	for i, p := range s.Players {
		players[i] = Player{
			ID:        string(p.ID),
			Name:      p.Name,
			Connected: p.Connected,
			Waiting:   p.Waiting,
			Sheets:    p.Sheets,
			JoinedAt:  p.JoinedAt,
		}
	}
	called := s.Game.CalledNumbers
	if called == nil {
		called = []int{}
	}
	pending := s.PendingWinners
	if pending == nil {
		pending = []string{}
	}
	return RoomState{
		Code:           string(s.Code),
		VoiceMode:      string(s.VoiceMode),
		RoundID:        string(s.Game.RoundID),
		Started:        s.Game.Started(),
		CalledNumbers:  called,
		CurrentNumber:  s.Game.CurrentNumber,
		Remaining:      s.Game.Remaining,
		Drawing:        s.Game.Drawing,
		AutoDrawMs:     s.AutoDrawMs,
		Players:        players,
		PendingWinners: pending,
		CreatedAt:      s.CreatedAt,
	}
}

// DrawResponse is the response after drawing a number
type DrawResponse struct {
	Number    int    `json:"number"`
	Words     string `json:"words"`
	Rhyme     string `json:"rhyme,omitempty"`
	Called    int    `json:"called"`
	Remaining int    `json:"remaining"`
}

// DrawResponseFromModel converts model.DrawResult
func DrawResponseFromModel(d model.DrawResult) DrawResponse {
	return DrawResponse{
		Number:    d.Number,
		Words:     d.Words,
		Rhyme:     d.Rhyme,
		Called:    d.Called,
		Remaining: d.Remaining,
	}
}

// ResetResponse is the response after resetting a round
type ResetResponse struct {
	RoundID string `json:"round_id"`
}

// AutoDrawResponse reports the auto-draw state
type AutoDrawResponse struct {
	Running    bool  `json:"running"`
	IntervalMs int64 `json:"interval_ms,omitempty"`
}
