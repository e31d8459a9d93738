package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/minhtien379/Loto/internal/model"
)

func newHostEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream the room's events",
		Long: `Connect to the room's SSE endpoint and stream events in real-time.

Events include:
  - player-joined, player-reconnected, player-left, ticket-updated
  - number-drawn, claim-received, claim-rejected, win-confirmed
  - game-reset, auto-draw-stopped, wait-signal
  - toast, emote, shout, voice-mode, room-closed

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, token, err := hostTarget()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if !jsonOutput {
				fmt.Fprintf(stdout, "Connected to room %s\n", code)
			}
			err = streamEvents(ctx, code, token, func(event, data string) {
				printEvent(stdout, event, data, jsonOutput)
			})
			if !jsonOutput {
				fmt.Fprintln(stdout, "Disconnected")
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

// streamEvents reads the room's event stream and calls emit for each event
// until ctx is cancelled or the server ends the stream
func streamEvents(ctx context.Context, code model.RoomCode, token string, emit func(event, data string)) error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + roomPath(code, "/events")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// No timeout for SSE
	httpClient := &http.Client{}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	err = parseSSE(resp.Body, emit)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

// parseSSE splits an event stream into events; comment lines are skipped
func parseSSE(r io.Reader, emit func(event, data string)) error {
	scanner := bufio.NewScanner(r)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			if currentEvent != "" {
				emit(currentEvent, strings.Join(dataLines, "\n"))
			}
			currentEvent = ""
			dataLines = nil
		}
	}
	return scanner.Err()
}

func printEvent(w io.Writer, event, data string, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		evt := SSEEvent{
			Time:  now,
			Event: event,
			Data:  data,
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Fprintln(w, string(jsonData))
		return
	}

	timestamp := now.Format("15:04:05")
	displayData := strings.ReplaceAll(data, "\n", " ")
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, event, displayData)
}
