package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/dependencies/random"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/generator"
	"github.com/minhtien379/Loto/internal/services/player"
	"github.com/minhtien379/Loto/internal/services/reconnect"
	"github.com/minhtien379/Loto/internal/services/session"
	"github.com/minhtien379/Loto/internal/storage/file"
	"github.com/minhtien379/Loto/internal/transport/ws"
)

const playHelp = `Commands:
  m, mark <n>              mark every cell holding n
  x <sheet> <ticket> <row> <col>
                           toggle one cell (all 1-based)
  c, claim                 claim a win
  s, sheets                show your sheets
  i, info                  show the called numbers
  add                      add a sheet (before the round starts)
  rm <sheet>               remove a sheet (before the round starts)
  new                      replace every sheet (before the round starts)
  e, emote <emoji>         send a reaction
  y, shout <text>          send a short text
  h, help                  this help
  q, quit                  leave the room and forget the session
Ctrl+C exits and keeps the session, so "loto play" resumes it.`

func newPlayCmd() *cobra.Command {
	var (
		name     string
		scope    string
		autoMark bool
	)

	cmd := &cobra.Command{
		Use:   "play <code>",
		Short: "Join a room as a player",
		Long: `Join a room over a WebSocket and play from the keyboard.

The session is saved to LOTO_SESSION_FILE so that the same sheets and
identity come back after a restart.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = cfg.Name
			}
			store, err := file.New(cfg.SessionFile, clock.New())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			clk := clock.New()
			rnd := random.New()
			c := player.New(player.Config{
				RoomCode: model.RoomCode(args[0]),
				Name:     name,
				Scope:    scope,
				AutoMark: autoMark,
			}, player.Deps{
				Dialer:   &ws.Dialer{BaseURL: cfg.ServerURL, Logger: logger},
				Sessions: session.New(store, clk, logger),
				Sheets:   generator.New(rnd, logger),
				Random:   rnd,
				Clock:    clk,
				Logger:   logger,
			})
			return runPlayConsole(cmd.Context(), &syncWriter{w: stdout}, newLineReader(stdin), c)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (env: LOTO_NAME)")
	cmd.Flags().StringVar(&scope, "scope", player.DefaultScope, "Session slot, for several players sharing one session file")
	cmd.Flags().BoolVar(&autoMark, "auto-mark", false, "Mark called numbers automatically")
	cmd.Flags().StringVar(&cfg.SessionFile, "session-file", cfg.SessionFile, "Session file (env: LOTO_SESSION_FILE)")

	return cmd
}

// runPlayConsole joins, prints client events and reads commands until quit,
// EOF, Ctrl+C or the room going away
func runPlayConsole(ctx context.Context, w io.Writer, lines *lineReader, c *player.Client) error {
	gone := make(chan error, 1)
	unsub := c.Subscribe(func(e player.Event) {
		printPlayerEvent(w, e)
		if e.Type == player.EventDisconnected {
			select {
			case gone <- e.Err:
			default:
			}
		}
	})
	defer unsub()

	if err := c.Join(ctx); err != nil {
		return err
	}
	v := c.View()
	fmt.Fprintf(w, "Joined %s as %s with %d sheet(s). Type \"help\" for commands.\n", v.RoomCode, v.Name, len(v.Sheets))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case err := <-gone:
			cancel()
			if errors.Is(err, model.ErrRoomNotFound) {
				return nil
			}
			return err
		}
	})

	g.Go(func() error {
		defer cancel()
		for {
			line, ok := lines.next(ctx)
			if !ok {
				return nil
			}
			quit, err := playCommand(w, c, line)
			if err != nil {
				fmt.Fprintf(w, "Error: %s\n", err)
			}
			if quit {
				c.Leave(context.WithoutCancel(ctx))
				return nil
			}
		}
	})

	return g.Wait()
}

// playCommand runs one console line and reports whether the player is leaving
func playCommand(w io.Writer, c *player.Client, line string) (bool, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "":
	case "m", "mark":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return false, fmt.Errorf("not a number: %q", rest)
		}
		if c.MarkNumber(n) == 0 {
			fmt.Fprintf(w, "%d is not on your sheets\n", n)
		}
	case "x":
		idx, err := parseInts(rest, 4)
		if err != nil {
			return false, err
		}
		marked, err := c.Mark(idx[0]-1, idx[1]-1, idx[2]-1, idx[3]-1)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(w, "Marked: %t\n", marked)
	case "c", "claim":
		if err := c.Claim(); err != nil {
			if errors.Is(err, model.ErrClaimCooldown) {
				return false, fmt.Errorf("wait %s before claiming again", c.ClaimCooldownRemaining().Round(100*time.Millisecond))
			}
			return false, err
		}
		fmt.Fprintln(w, "Claim sent")
	case "s", "sheets":
		v := c.View()
		for i, sheet := range v.Sheets {
			marks := v.Marks[i]
			printSheet(w, i, sheet, func(t, r, col int) bool { return marks[t][r][col] })
		}
	case "i", "info":
		v := c.View()
		fmt.Fprintf(w, "%s (%s), voice %s\n", v.Name, v.State, v.VoiceMode)
		fmt.Fprintf(w, "Called (%d): %s\n", len(v.Called), joinInts(v.Called))
	case "add":
		return false, c.AddSheet()
	case "rm":
		i, err := strconv.Atoi(rest)
		if err != nil {
			return false, fmt.Errorf("not a sheet number: %q", rest)
		}
		return false, c.RemoveSheet(i - 1)
	case "new":
		return false, c.NewTickets()
	case "e", "emote":
		return false, c.SendEmote(rest)
	case "y", "shout":
		return false, c.SendShout(rest)
	case "h", "help", "?":
		fmt.Fprintln(w, playHelp)
	case "q", "quit", "leave":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", name)
	}
	return false, nil
}

func printPlayerEvent(w io.Writer, e player.Event) {
	switch e.Type {
	case player.EventWelcome:
		fmt.Fprintf(w, "Welcome, %s\n", e.Name)
	case player.EventConnection:
		if e.State != reconnect.StateConnected {
			fmt.Fprintf(w, "Connection: %s\n", e.State)
		}
	case player.EventDisconnected:
		if e.Err != nil {
			fmt.Fprintf(w, "Disconnected: %s\n", e.Err)
		} else {
			fmt.Fprintln(w, "Disconnected")
		}
	case player.EventNumberDrawn:
		fmt.Fprintf(w, ">> %d  %s\n", e.Number, e.Text)
	case player.EventGameReset:
		fmt.Fprintln(w, "New round")
	case player.EventWinConfirmed:
		fmt.Fprintf(w, "*** %s wins! ***\n", e.Name)
	case player.EventWinRejected:
		fmt.Fprintln(w, "Claim rejected")
	case player.EventClaimTimedOut:
		fmt.Fprintln(w, "No answer to the claim")
	case player.EventToast:
		fmt.Fprintf(w, "[%s] %s\n", e.Style, e.Text)
	case player.EventEmote:
		fmt.Fprintf(w, "%s %s\n", e.SenderID.Short(), e.Emoji)
	case player.EventShout:
		fmt.Fprintf(w, "%s: %s\n", e.SenderID.Short(), e.Text)
	case player.EventVoiceMode:
		fmt.Fprintf(w, "Voice mode: %s\n", e.Mode)
	case player.EventRowComplete:
		fmt.Fprintf(w, "Row complete on sheet %d! Type \"claim\"\n", e.Row.Sheet+1)
	case player.EventWaiting:
		fmt.Fprintf(w, "One to go on sheet %d\n", e.Row.Sheet+1)
	}
}

func parseInts(s string, n int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("want %d numbers, got %q", n, s)
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", f)
		}
		out[i] = v
	}
	return out, nil
}
