package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/minhtien379/Loto/internal/api/apierr"
	"github.com/minhtien379/Loto/internal/model"
)

const hostHelp = `Commands:
  d, draw              draw the next number
  a, auto [interval]   auto-draw (default 5s; a bare number is seconds)
  s, stop              stop auto-draw
  r, reset             start a new round
  t, toast <message>   show a toast
  v, voice <mode>      real, google or system
  e, emote <emoji>     send a reaction
  y, shout <text>      send a short text
  st, state            show the room
  close                close the room and exit
  h, help              this help
  q, quit              exit, leaving the room open`

func newHostConsoleCmd() *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Host a room interactively",
		Long: `Open a room and drive it from the keyboard while its events stream in.

When the credentials file names a room with saved state, the console offers
to restore it. Declining discards the saved state and creates a new room.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lines := newLineReader(stdin)
			w := &syncWriter{w: stdout}

			code, token, err := openRoom(ctx, w, lines, fresh)
			if err != nil {
				return err
			}
			return runHostConsole(ctx, w, lines, code, token)
		},
	}

	cmd.Flags().BoolVar(&fresh, "new", false, "Always create a new room")

	return cmd
}

// openRoom restores the saved room when the operator agrees, otherwise creates one
func openRoom(ctx context.Context, w io.Writer, lines *lineReader, fresh bool) (model.RoomCode, string, error) {
	if fresh {
		return createAndReport(w)
	}

	var args []string
	if hostRoom != "" {
		args = []string{hostRoom}
	}
	code, token, err := cfg.ResolveHost(args)
	if err != nil || token == "" {
		return createAndReport(w)
	}
	client.SetToken(token)

	saved, err := client.SavedState(code)
	if err != nil {
		if !IsAPIError(err, apierr.CodeNoSavedState) {
			logger.Debug("saved state unavailable", slog.String("room", string(code)), slog.String("error", err.Error()))
		}
		return createAndReport(w)
	}

	fmt.Fprintf(w, "Found saved room %s: %d numbers called, saved %s\n",
		code, len(saved.CalledNumbers), saved.SavedAt.Local().Format("15:04:05"))
	fmt.Fprint(w, "Restore it? [Y/n] ")
	answer, ok := lines.next(ctx)
	if !ok {
		return "", "", ctx.Err()
	}

	if a := strings.ToLower(strings.TrimSpace(answer)); a != "" && a != "y" && a != "yes" {
		if err := client.DiscardSaved(code); err != nil {
			logger.Warn("failed to discard saved state", slog.String("room", string(code)), slog.String("error", err.Error()))
		}
		return createAndReport(w)
	}

	summary, err := client.RestoreRoom(code, token)
	if err != nil {
		fmt.Fprintf(w, "Restore failed: %s; starting a new room\n", err)
		return createAndReport(w)
	}
	fmt.Fprintf(w, "Restored room %s (%d called)\n", code, summary.Called)
	return code, token, nil
}

func createAndReport(w io.Writer) (model.RoomCode, string, error) {
	created, err := createRoom()
	if err != nil {
		return "", "", err
	}
	fmt.Fprintf(w, "Room %s is open. Players join with: loto play %s\n", created.RoomCode, created.RoomCode)
	return model.RoomCode(created.RoomCode), created.HostToken, nil
}

// runHostConsole streams room events while reading commands until quit, EOF or the room closes
func runHostConsole(ctx context.Context, w io.Writer, lines *lineReader, code model.RoomCode, token string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		err := streamEvents(ctx, code, token, func(event, data string) {
			printEvent(w, event, data, false)
		})
		if err == nil && ctx.Err() == nil {
			fmt.Fprintln(w, "Room closed")
		}
		return err
	})

	g.Go(func() error {
		defer cancel()
		fmt.Fprintln(w, `Type "help" for commands.`)
		for {
			line, ok := lines.next(ctx)
			if !ok {
				return nil
			}
			quit, err := hostCommand(w, code, line)
			if err != nil {
				fmt.Fprintf(w, "Error: %s\n", err)
			}
			if quit {
				return nil
			}
		}
	})

	return g.Wait()
}

// hostCommand runs one console line and reports whether the console should exit
func hostCommand(w io.Writer, code model.RoomCode, line string) (bool, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "":
		return false, nil
	case "d", "draw":
		result, err := client.Draw(code)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(w, ">> %d: %s (%d left)\n", result.Number, result.Words, result.Remaining)
	case "a", "auto":
		interval, err := parseInterval(rest)
		if err != nil {
			return false, err
		}
		if _, err := client.StartAutoDraw(code, interval); err != nil {
			return false, err
		}
		fmt.Fprintf(w, "Auto-draw every %s\n", interval)
	case "s", "stop":
		if _, err := client.StopAutoDraw(code); err != nil {
			return false, err
		}
		fmt.Fprintln(w, "Auto-draw stopped")
	case "r", "reset":
		result, err := client.Reset(code)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(w, "New round %s\n", result.RoundID)
	case "t", "toast":
		return false, client.Toast(code, rest, model.ToastInfo)
	case "v", "voice":
		return false, client.SetVoiceMode(code, model.VoiceMode(rest))
	case "e", "emote":
		return false, client.Emote(code, rest)
	case "y", "shout":
		return false, client.Shout(code, rest)
	case "st", "state":
		result, err := client.RoomState(code)
		if err != nil {
			return false, err
		}
		(&Output{format: "text", w: w}).Print(result)
	case "close":
		if err := client.CloseRoom(code); err != nil {
			return false, err
		}
		return true, nil
	case "h", "help", "?":
		fmt.Fprintln(w, hostHelp)
	case "q", "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", name)
	}
	return false, nil
}

// parseInterval accepts a Go duration or a number of seconds
func parseInterval(s string) (time.Duration, error) {
	if s == "" {
		return 5 * time.Second, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("bad interval %q", s)
	}
	return d, nil
}

// lineReader feeds stdin lines to whichever loop is waiting for one
type lineReader struct {
	lines chan string
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{lines: make(chan string)}
	go func() {
		defer close(lr.lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lr.lines <- scanner.Text()
		}
	}()
	return lr
}

// next returns the next line; false at EOF or when ctx is done
func (lr *lineReader) next(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-lr.lines:
		return line, ok
	}
}

// syncWriter serialises writes from the event stream and the command loop
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
