package model

// Phase is the lifecycle stage of a round
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseStarted    Phase = "started"
)

// GameSnapshot is a read-only copy of the host's game state
type GameSnapshot struct {
	RoundID       RoundID `json:"roundId"`
	Phase         Phase   `json:"phase"`
	CalledNumbers []int   `json:"calledNumbers"` // in draw order
	CurrentNumber int     `json:"currentNumber"` // 0 when nothing has been drawn
	Remaining     int     `json:"remaining"`
	Drawing       bool    `json:"drawing"`
}

// Started reports whether at least one number has been drawn this round
func (g GameSnapshot) Started() bool {
	return g.Phase == PhaseStarted
}

// DrawResult describes one completed draw
type DrawResult struct {
	Number    int    `json:"number"`
	Words     string `json:"words"`
	Rhyme     string `json:"rhyme,omitempty"`
	Called    int    `json:"called"`
	Remaining int    `json:"remaining"`
}

// WinningRow locates a fully called row on a player's sheets
type WinningRow struct {
	Sheet   int   `json:"sheet"`
	Ticket  int   `json:"ticket"`
	Row     int   `json:"row"`
	Numbers []int `json:"numbers"`
}
