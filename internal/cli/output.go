package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/minhtien379/Loto/internal/api/response"
	"github.com/minhtien379/Loto/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format, w: stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.CreateRoomResponse:
		o.printCreated(v)
	case response.RoomSummary:
		o.printSummary(v)
	case response.RoomState:
		o.printState(v)
	case response.SavedState:
		o.printSaved(v)
	case response.DrawResponse:
		o.printDraw(v)
	case response.ResetResponse:
		fmt.Fprintf(o.w, "New round: %s\n", v.RoundID)
	case response.AutoDrawResponse:
		o.printAutoDraw(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult is the health endpoint's body
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printCreated(c response.CreateRoomResponse) {
	fmt.Fprintf(o.w, "Room: %s\n", c.RoomCode)
	fmt.Fprintf(o.w, "Host: %s\n", c.HostID)
	fmt.Fprintf(o.w, "Token: %s\n", c.HostToken)
}

func (o *Output) printSummary(s response.RoomSummary) {
	fmt.Fprintf(o.w, "Room: %s\n", s.Code)
	fmt.Fprintf(o.w, "Host: %s\n", s.HostID)
	fmt.Fprintf(o.w, "Players: %d\n", s.Players)
	fmt.Fprintf(o.w, "Started: %t (%d called)\n", s.Started, s.Called)
	fmt.Fprintf(o.w, "Voice: %s\n", s.VoiceMode)
}

func (o *Output) printState(s response.RoomState) {
	fmt.Fprintf(o.w, "Room: %s  round %s  voice %s\n", s.Code, s.RoundID, s.VoiceMode)
	if s.AutoDrawMs > 0 {
		fmt.Fprintf(o.w, "Auto-draw: every %dms\n", s.AutoDrawMs)
	}
	if s.CurrentNumber > 0 {
		fmt.Fprintf(o.w, "Current: %d\n", s.CurrentNumber)
	}
	fmt.Fprintf(o.w, "Called (%d, %d left): %s\n", len(s.CalledNumbers), s.Remaining, joinInts(s.CalledNumbers))
	if len(s.PendingWinners) > 0 {
		fmt.Fprintf(o.w, "Claims pending: %s\n", strings.Join(s.PendingWinners, ", "))
	}
	fmt.Fprintf(o.w, "\nPlayers (%d):\n", len(s.Players))
	for _, p := range s.Players {
		status := "connected"
		if !p.Connected {
			status = "disconnected"
		}
		if p.Waiting {
			status += ", waiting"
		}
		fmt.Fprintf(o.w, "  %s  %s  %d sheet(s)  [%s]\n", p.ID, p.Name, len(p.Sheets), status)
	}
}

func (o *Output) printSaved(s response.SavedState) {
	fmt.Fprintf(o.w, "Saved room: %s (round %s)\n", s.RoomCode, s.RoundID)
	fmt.Fprintf(o.w, "Saved at: %s\n", s.SavedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(o.w, "Called (%d): %s\n", len(s.CalledNumbers), joinInts(s.CalledNumbers))
	if s.CurrentNumber > 0 {
		fmt.Fprintf(o.w, "Current: %d\n", s.CurrentNumber)
	}
}

func (o *Output) printDraw(d response.DrawResponse) {
	fmt.Fprintf(o.w, "%d: %s\n", d.Number, d.Words)
	if d.Rhyme != "" {
		fmt.Fprintf(o.w, "  %s\n", d.Rhyme)
	}
	fmt.Fprintf(o.w, "(%d called, %d left)\n", d.Called, d.Remaining)
}

func (o *Output) printAutoDraw(a response.AutoDrawResponse) {
	if !a.Running {
		fmt.Fprintln(o.w, "Auto-draw stopped")
		return
	}
	fmt.Fprintf(o.w, "Auto-draw every %dms\n", a.IntervalMs)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}

// printSheet renders one sheet as rows of tickets; marked cells get a *
func printSheet(w io.Writer, index int, sheet model.Sheet, marked func(t, r, c int) bool) {
	fmt.Fprintf(w, "Sheet %d\n", index+1)
	for t, ticket := range sheet {
		for r, row := range ticket {
			var b strings.Builder
			for c, n := range row {
				switch {
				case n == 0:
					b.WriteString("  . ")
				case marked(t, r, c):
					fmt.Fprintf(&b, " %2d*", n)
				default:
					fmt.Fprintf(&b, " %2d ", n)
				}
			}
			fmt.Fprintln(w, b.String())
		}
		fmt.Fprintln(w)
	}
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}
