// Package player is the player side of a room: it keeps a mirror of the
// host's game, marks the player's sheets and talks to the host over a
// self-healing link.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/dependencies/random"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/reconnect"
	"github.com/minhtien379/Loto/internal/services/session"
	"github.com/minhtien379/Loto/internal/services/throttle"
	"github.com/minhtien379/Loto/internal/transport"
)

const (
	DefaultScope = "default"

	ClaimTimeout  = 15 * time.Second
	ClaimCooldown = 5 * time.Second
	WaitCooldown  = 5 * time.Second
	EmoteCooldown = time.Second
	ShoutCooldown = 2 * time.Second

	MaxShoutLength = 140
)

const self = "self"

// SheetSource produces fresh sheets
type SheetSource interface {
	GenerateSheet() model.Sheet
}

// Config describes which room to join and how
type Config struct {
	RoomCode model.RoomCode

	// Name is used unless a saved session for the room supplies one
	Name string

	// Scope namespaces the saved session, so several players can share one store
	Scope string

	AutoMark     bool
	ClaimTimeout time.Duration
}

// Deps are the collaborators of a Client
type Deps struct {
	Dialer   transport.Dialer
	Sessions *session.Store
	Sheets   SheetSource
	Random   random.Random
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Marks records which cells of one sheet the player has marked
type Marks [model.TicketsPerSheet][model.TicketRows][model.TicketCols]bool

// RowRef locates one row across a player's sheets
type RowRef struct {
	Sheet  int
	Ticket int
	Row    int
}

// View is a copy of the client's state
type View struct {
	RoomCode     model.RoomCode
	ID           model.PeerID
	Name         string
	Sheets       []model.Sheet
	Marks        []Marks
	Called       []int
	Current      int
	Started      bool
	VoiceMode    model.VoiceMode
	State        reconnect.State
	ClaimPending bool
}

// Client is one player in one room
type Client struct {
	mu sync.Mutex

	cfg    Config
	deps   Deps
	logger *slog.Logger

	link  *reconnect.Manager
	unsub func()

	id        model.PeerID
	lastID    model.PeerID
	name      string
	sheets    []model.Sheet
	marks     []Marks
	called    []int
	isCalled  [model.MaxNumber + 1]bool
	current   int
	started   bool
	voiceMode model.VoiceMode

	claims *throttle.Cooldown[string]
	waits  *throttle.Cooldown[string]
	emotes *throttle.Cooldown[string]
	shouts *throttle.Cooldown[string]

	announced  map[RowRef]bool
	complete   map[RowRef]bool
	claimTimer clock.Timer
	claimGen   uint64

	lmu        sync.Mutex
	listeners  []listenerEntry
	nextListen int

	after    []func()
	draining bool
}

type listenerEntry struct {
	id int
	fn Listener
}

// New creates a Client. Nothing is dialled until Join.
func New(cfg Config, deps Deps) *Client {
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = ClaimTimeout
	}
	cfg.RoomCode = model.NormalizeRoomCode(string(cfg.RoomCode))
	return &Client{
		cfg:       cfg,
		deps:      deps,
		logger:    deps.Logger.With(slog.String("room", string(cfg.RoomCode)), slog.String("scope", cfg.Scope)),
		voiceMode: model.VoiceModeReal,
		claims:    throttle.NewCooldown[string](deps.Clock, ClaimCooldown),
		waits:     throttle.NewCooldown[string](deps.Clock, WaitCooldown),
		emotes:    throttle.NewCooldown[string](deps.Clock, EmoteCooldown),
		shouts:    throttle.NewCooldown[string](deps.Clock, ShoutCooldown),
		announced: make(map[RowRef]bool),
		complete:  make(map[RowRef]bool),
	}
}

func (c *Client) lock() {
	c.mu.Lock()
}

// unlock releases the client and then runs queued sends, listener calls and
// saves in the order they were queued, one goroutine at a time
func (c *Client) unlock() {
	if c.draining || len(c.after) == 0 {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.after) > 0 {
		after := c.after
		c.after = nil
		c.mu.Unlock()
		for _, f := range after {
			f()
		}
		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}

// Join resumes a saved session for the room when there is one, otherwise
// starts with one fresh sheet, and opens the link.
func (c *Client) Join(ctx context.Context) error {
	if !c.cfg.RoomCode.Valid() {
		return model.ErrInvalidRoomCode
	}

	c.lock()
	if c.link != nil {
		c.unlock()
		return nil
	}
	c.name = strings.TrimSpace(c.cfg.Name)
	var preferred model.PeerID
	sess := c.deps.Sessions.LoadSession(ctx, c.cfg.Scope)
	if sess != nil && sess.RoomCode == c.cfg.RoomCode && model.ValidateSheets(sess.Sheets) == nil {
		c.sheets = model.CloneSheets(sess.Sheets)
		c.lastID = sess.LastPeerID
		preferred = sess.LastPeerID
		if c.name == "" {
			c.name = sess.PlayerName
		}
		c.logger.Info("resuming saved session", slog.String("peer_id", string(preferred)))
	} else {
		c.sheets = []model.Sheet{c.deps.Sheets.GenerateSheet()}
	}
	if c.name == "" {
		c.name = RandomName(c.deps.Random)
	}
	c.marks = make([]Marks, len(c.sheets))

	link := reconnect.New(reconnect.Config{RoomCode: c.cfg.RoomCode, PreferredID: preferred},
		c.deps.Dialer, c.hello, c.deps.Clock, c.deps.Logger)
	c.link = link
	c.unsub = link.Subscribe(c.onLinkEvent)
	c.unlock()

	if err := link.Connect(ctx); err != nil {
		c.lock()
		c.unsub()
		c.link, c.unsub = nil, nil
		c.unlock()
		link.Close()
		return err
	}
	return nil
}

// Leave closes the link and forgets the saved session
func (c *Client) Leave(ctx context.Context) {
	c.lock()
	link, unsub := c.link, c.unsub
	c.link, c.unsub = nil, nil
	c.cancelClaimLocked()
	c.unlock()

	if link == nil {
		return
	}
	link.Close()
	unsub()
	c.deps.Sessions.ClearSession(ctx, c.cfg.Scope)
	c.logger.Info("left room")
}

// hello is what the host receives on every dial
func (c *Client) hello() model.JoinMetadata {
	c.lock()
	defer c.unlock()
	return model.JoinMetadata{
		Name:          c.name,
		Sheets:        model.CloneSheets(c.sheets),
		LastSessionID: c.lastID,
	}
}

func (c *Client) onLinkEvent(e reconnect.Event) {
	switch e.Type {
	case reconnect.EventConnected, reconnect.EventReconnected:
		c.handleWelcome(e.Welcome)
	case reconnect.EventMessage:
		c.handleMessage(e.Message)
	case reconnect.EventStateChanged:
		c.lock()
		if e.State != reconnect.StateConnected {
			c.cancelClaimLocked()
		}
		c.emitLocked(Event{Type: EventConnection, State: e.State})
		c.unlock()
	case reconnect.EventDisconnected:
		c.lock()
		c.emitLocked(Event{Type: EventDisconnected, State: e.State, Err: e.Err})
		c.unlock()
	}
}

func (c *Client) handleWelcome(w model.Message) {
	c.lock()
	defer c.unlock()

	c.id = w.PlayerID
	c.lastID = w.PlayerID
	if w.Name != "" {
		c.name = w.Name
	}
	if sheets := w.SheetsPayload(); len(sheets) > 0 && !slices.Equal(sheets, c.sheets) {
		c.sheets = model.CloneSheets(sheets)
		c.marks = make([]Marks, len(c.sheets))
		clear(c.announced)
		clear(c.complete)
	}

	c.called = nil
	c.isCalled = [model.MaxNumber + 1]bool{}
	c.current = 0
	c.started = false
	if w.GameState != nil {
		for _, n := range w.GameState.CalledNumbers {
			if n >= model.MinNumber && n <= model.MaxNumber && !c.isCalled[n] {
				c.isCalled[n] = true
				c.called = append(c.called, n)
				c.current = n
			}
		}
		c.started = w.GameState.GameStarted
	}
	if !c.started {
		c.marks = make([]Marks, len(c.sheets))
		clear(c.announced)
		clear(c.complete)
	}
	if w.VoiceMode.Valid() {
		c.voiceMode = w.VoiceMode
	}
	if c.cfg.AutoMark {
		for _, n := range c.called {
			c.markNumberLocked(n)
		}
	}
	c.scanLocked()
	c.saveSessionLocked()
	c.emitLocked(Event{Type: EventWelcome, Name: c.name})
}

func (c *Client) handleMessage(msg model.Message) {
	c.lock()
	defer c.unlock()

	switch msg.Type {
	case model.MsgNumberDrawn:
		n := msg.Number
		if n < model.MinNumber || n > model.MaxNumber || c.isCalled[n] {
			return
		}
		c.isCalled[n] = true
		c.called = append(c.called, n)
		c.current = n
		c.started = true
		if c.cfg.AutoMark {
			c.markNumberLocked(n)
		}
		c.emitLocked(Event{Type: EventNumberDrawn, Number: n, Text: msg.Text})
		c.scanLocked()
	case model.MsgGameReset:
		c.resetLocked()
		c.emitLocked(Event{Type: EventGameReset})
	case model.MsgWinConfirmed:
		c.cancelClaimLocked()
		c.emitLocked(Event{Type: EventWinConfirmed, Name: msg.WinnerName})
	case model.MsgWinRejected:
		c.cancelClaimLocked()
		c.emitLocked(Event{Type: EventWinRejected})
	case model.MsgToast:
		c.emitLocked(Event{Type: EventToast, Text: msg.Message, Style: msg.Style})
	case model.MsgEmote:
		c.emitLocked(Event{Type: EventEmote, Emoji: msg.Emoji, SenderID: msg.SenderID})
	case model.MsgShout:
		c.emitLocked(Event{Type: EventShout, Text: msg.Text, SenderID: msg.SenderID})
	case model.MsgVoiceMode:
		if msg.Mode.Valid() {
			c.voiceMode = msg.Mode
			c.emitLocked(Event{Type: EventVoiceMode, Mode: msg.Mode})
		}
	case model.MsgPing:
		c.sendLocked(model.PongMessage())
	case model.MsgPong:
	default:
		c.logger.Debug("ignoring message", slog.String("type", string(msg.Type)))
	}
}

func (c *Client) resetLocked() {
	c.marks = make([]Marks, len(c.sheets))
	c.called = nil
	c.isCalled = [model.MaxNumber + 1]bool{}
	c.current = 0
	c.started = false
	c.claims.Reset()
	c.waits.Reset()
	c.emotes.Reset()
	c.shouts.Reset()
	clear(c.announced)
	clear(c.complete)
	c.cancelClaimLocked()
}

// Mark toggles the mark on one cell and reports the new mark
func (c *Client) Mark(sheet, ticket, row, col int) (bool, error) {
	c.lock()
	defer c.unlock()
	if sheet < 0 || sheet >= len(c.sheets) || ticket < 0 || ticket >= model.TicketsPerSheet ||
		row < 0 || row >= model.TicketRows || col < 0 || col >= model.TicketCols {
		return false, fmt.Errorf("%w: no cell at %d/%d/%d/%d", model.ErrInvalidTicket, sheet, ticket, row, col)
	}
	if c.sheets[sheet][ticket][row][col] == 0 {
		return false, fmt.Errorf("%w: cell is empty", model.ErrInvalidTicket)
	}
	marked := !c.marks[sheet][ticket][row][col]
	c.marks[sheet][ticket][row][col] = marked
	c.scanLocked()
	return marked, nil
}

// MarkNumber marks every cell holding n and reports how many there were
func (c *Client) MarkNumber(n int) int {
	c.lock()
	defer c.unlock()
	count := c.markNumberLocked(n)
	c.scanLocked()
	return count
}

func (c *Client) markNumberLocked(n int) int {
	count := 0
	for i := range c.sheets {
		for t := range model.TicketsPerSheet {
			for r := range model.TicketRows {
				for col := range model.TicketCols {
					if c.sheets[i][t][r][col] == n {
						c.marks[i][t][r][col] = true
						count++
					}
				}
			}
		}
	}
	return count
}

// scanLocked looks for complete and waiting rows. A mark counts only when its number has been called.
// Each waiting row is signalled to the host once.
func (c *Client) scanLocked() {
	for i := range c.sheets {
		for t := range model.TicketsPerSheet {
			for r := range model.TicketRows {
				cells, valid := 0, 0
				for col := range model.TicketCols {
					n := c.sheets[i][t][r][col]
					if n == 0 {
						continue
					}
					cells++
					if c.marks[i][t][r][col] && c.isCalled[n] {
						valid++
					}
				}
				if cells == 0 {
					continue
				}
				ref := RowRef{Sheet: i, Ticket: t, Row: r}
				switch {
				case valid == model.NumbersPerRow && !c.complete[ref]:
					c.complete[ref] = true
					c.emitLocked(Event{Type: EventRowComplete, Row: ref})
				case valid == model.NumbersPerRow-1 && !c.announced[ref]:
					if c.id == "" || !c.waits.Allow(self) {
						continue
					}
					c.announced[ref] = true
					c.sendLocked(model.WaitSignalMessage(c.id))
					c.emitLocked(Event{Type: EventWaiting, Row: ref})
				}
			}
		}
	}
}

// Claim tells the host this player has a full row. If the host does not
// answer within the claim timeout, EventClaimTimedOut is emitted.
func (c *Client) Claim() error {
	c.lock()
	link := c.link
	if link == nil {
		c.unlock()
		return model.ErrNotConnected
	}
	if !c.claims.Allow(self) {
		c.unlock()
		return model.ErrClaimCooldown
	}

	c.cancelClaimLocked()
	gen := c.claimGen
	c.claimTimer = c.deps.Clock.AfterFunc(c.cfg.ClaimTimeout, func() {
		c.lock()
		defer c.unlock()
		if gen != c.claimGen || c.claimTimer == nil {
			return
		}
		c.claimTimer = nil
		c.emitLocked(Event{Type: EventClaimTimedOut})
	})
	c.unlock()

	if err := link.Send(model.WinClaimMessage()); err != nil {
		c.lock()
		defer c.unlock()
		c.claims.Forget(self)
		if gen == c.claimGen {
			c.cancelClaimLocked()
		}
		return err
	}
	return nil
}

// ClaimCooldownRemaining returns how long until Claim is allowed again
func (c *Client) ClaimCooldownRemaining() time.Duration {
	return c.claims.Remaining(self)
}

func (c *Client) cancelClaimLocked() {
	c.claimGen++
	if c.claimTimer != nil {
		c.claimTimer.Stop()
		c.claimTimer = nil
	}
}

// AddSheet adds one generated sheet
func (c *Client) AddSheet() error {
	return c.changeSheets(func() error {
		if len(c.sheets) >= model.MaxSheetsPerPlayer {
			return fmt.Errorf("%w: at most %d sheets", model.ErrSheetLimit, model.MaxSheetsPerPlayer)
		}
		c.sheets = append(c.sheets, c.deps.Sheets.GenerateSheet())
		c.marks = append(c.marks, Marks{})
		return nil
	})
}

// RemoveSheet drops sheet i; later sheets and their marks move down
func (c *Client) RemoveSheet(i int) error {
	return c.changeSheets(func() error {
		if len(c.sheets) <= model.MinSheetsPerPlayer {
			return fmt.Errorf("%w: at least %d sheet", model.ErrSheetLimit, model.MinSheetsPerPlayer)
		}
		if i < 0 || i >= len(c.sheets) {
			return fmt.Errorf("%w: no sheet %d", model.ErrInvalidSheets, i)
		}
		c.sheets = slices.Delete(c.sheets, i, i+1)
		c.marks = slices.Delete(c.marks, i, i+1)
		return nil
	})
}

// NewTickets replaces every sheet with a fresh one
func (c *Client) NewTickets() error {
	return c.changeSheets(func() error {
		for i := range c.sheets {
			c.sheets[i] = c.deps.Sheets.GenerateSheet()
		}
		c.marks = make([]Marks, len(c.sheets))
		return nil
	})
}

// changeSheets applies change before the round starts, then tells the host and saves the session
func (c *Client) changeSheets(change func() error) error {
	c.lock()
	defer c.unlock()
	if c.link == nil {
		return model.ErrNotConnected
	}
	if c.started {
		return model.ErrGameInProgress
	}
	if err := change(); err != nil {
		return err
	}
	clear(c.announced)
	clear(c.complete)
	c.sendLocked(model.TicketUpdateMessage(model.CloneSheets(c.sheets)))
	c.saveSessionLocked()
	return nil
}

// SendEmote sends an emoji reaction to the room
func (c *Client) SendEmote(emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return errors.New("emoji is empty")
	}
	link, id, err := c.chatLink(c.emotes)
	if err != nil {
		return err
	}
	return link.Send(model.EmoteMessage(emoji, id))
}

// SendShout sends a short text to the room
func (c *Client) SendShout(text string) error {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxShoutLength {
		text = string([]rune(text)[:MaxShoutLength])
	}
	if text == "" {
		return errors.New("shout is empty")
	}
	link, id, err := c.chatLink(c.shouts)
	if err != nil {
		return err
	}
	return link.Send(model.ShoutMessage(text, id))
}

// chatLink checks the cooldown and returns the link to write to once the lock is released
func (c *Client) chatLink(cooldown *throttle.Cooldown[string]) (*reconnect.Manager, model.PeerID, error) {
	c.lock()
	defer c.unlock()
	if c.link == nil {
		return nil, "", model.ErrNotConnected
	}
	if !cooldown.Allow(self) {
		return nil, "", model.ErrThrottled
	}
	return c.link, c.id, nil
}

// View returns a copy of the client's state
func (c *Client) View() View {
	c.lock()
	defer c.unlock()
	state := reconnect.StateDisconnected
	if c.link != nil {
		state = c.link.State()
	}
	return View{
		RoomCode:     c.cfg.RoomCode,
		ID:           c.id,
		Name:         c.name,
		Sheets:       model.CloneSheets(c.sheets),
		Marks:        slices.Clone(c.marks),
		Called:       slices.Clone(c.called),
		Current:      c.current,
		Started:      c.started,
		VoiceMode:    c.voiceMode,
		State:        state,
		ClaimPending: c.claimTimer != nil,
	}
}

// sendLocked queues msg; it is written after the lock is released
func (c *Client) sendLocked(msg model.Message) {
	link := c.link
	if link == nil {
		return
	}
	c.after = append(c.after, func() {
		if err := link.Send(msg); err != nil {
			c.logger.Debug("send failed", slog.String("type", string(msg.Type)), slog.String("error", err.Error()))
		}
	})
}

// saveSessionLocked queues a save of the resumption token
func (c *Client) saveSessionLocked() {
	sess := model.Session{
		RoomCode:   c.cfg.RoomCode,
		PlayerName: c.name,
		Sheets:     model.CloneSheets(c.sheets),
		LastPeerID: c.id,
	}
	c.after = append(c.after, func() {
		c.deps.Sessions.SaveSession(context.Background(), c.cfg.Scope, sess)
	})
}
