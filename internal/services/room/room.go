package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/dependencies/random"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/directory"
	"github.com/minhtien379/Loto/internal/services/events"
	"github.com/minhtien379/Loto/internal/services/game"
	"github.com/minhtien379/Loto/internal/services/session"
	"github.com/minhtien379/Loto/internal/services/throttle"
	"github.com/minhtien379/Loto/internal/services/win"
	"github.com/minhtien379/Loto/internal/transport"
)

// Config holds the timing rules of a room
type Config struct {
	WinWindow      time.Duration
	AnnounceDelay  time.Duration
	ClaimCooldown  time.Duration
	WaitCooldown   time.Duration
	EmoteCooldown  time.Duration
	ShoutCooldown  time.Duration
	MaxShoutLength int
}

// DefaultConfig returns the standard room timings
func DefaultConfig() Config {
	return Config{
		WinWindow:      win.DefaultWindow,
		AnnounceDelay:  400 * time.Millisecond,
		ClaimCooldown:  5 * time.Second,
		WaitCooldown:   5 * time.Second,
		EmoteCooldown:  time.Second,
		ShoutCooldown:  2 * time.Second,
		MaxShoutLength: 140,
	}
}

// Deps are the collaborators shared by every room
type Deps struct {
	Clock    clock.Clock
	Random   random.Random
	Sheets   directory.SheetSource
	Sessions *session.Store
	Logger   *slog.Logger
}

// Room is one hosted game: its players, draw state, pending win window,
// cooldowns and open connections. All state is guarded by one mutex; events
// and persistence queued while it is held run after it is released, in the
// order they were queued.
type Room struct {
	mu sync.Mutex

	code          model.RoomCode
	cfg           Config
	hostTokenHash string
	voiceMode     model.VoiceMode
	createdAt     time.Time
	closed        bool

	directory  *directory.Directory
	game       *game.Controller
	aggregator *win.Aggregator
	claims     *throttle.Cooldown[model.PeerID]
	waits      *throttle.Cooldown[model.PeerID]
	emotes     *throttle.Cooldown[model.PeerID]
	shouts     *throttle.Cooldown[model.PeerID]
	waiting    []model.PeerID
	conns      map[model.PeerID]transport.Conn

	drawTimer    clock.Timer
	drawGen      uint64
	autoTimer    clock.Timer
	autoInterval time.Duration
	autoGen      uint64

	bus      *events.Bus
	sessions *session.Store
	clock    clock.Clock
	logger   *slog.Logger

	after    []func()
	draining bool
}

// New creates an empty room
func New(code model.RoomCode, hostTokenHash string, cfg Config, deps Deps) *Room {
	r := &Room{
		code:          code,
		cfg:           cfg,
		hostTokenHash: hostTokenHash,
		voiceMode:     model.VoiceModeReal,
		createdAt:     deps.Clock.Now(),
		directory:     directory.New(deps.Sheets, deps.Clock),
		game:          game.NewController(deps.Random, deps.Clock),
		claims:        throttle.NewCooldown[model.PeerID](deps.Clock, cfg.ClaimCooldown),
		waits:         throttle.NewCooldown[model.PeerID](deps.Clock, cfg.WaitCooldown),
		emotes:        throttle.NewCooldown[model.PeerID](deps.Clock, cfg.EmoteCooldown),
		shouts:        throttle.NewCooldown[model.PeerID](deps.Clock, cfg.ShoutCooldown),
		conns:         make(map[model.PeerID]transport.Conn),
		bus:           events.NewBus(),
		sessions:      deps.Sessions,
		clock:         deps.Clock,
		logger:        deps.Logger.With(slog.String("room", string(code))),
	}
	r.aggregator = win.NewAggregator(deps.Clock, cfg.WinWindow, roomLocker{r}, r.confirmWinners)
	return r
}

// roomLocker lets timer callbacks take the room lock and flush queued work on release
type roomLocker struct{ r *Room }

func (l roomLocker) Lock()   { l.r.lock() }
func (l roomLocker) Unlock() { l.r.unlock() }

func (r *Room) lock() {
	r.mu.Lock()
}

// unlock releases the room and then runs work queued while it was held.
// Queued work runs in mutation order: one goroutine at a time drains the
// queue, and work queued meanwhile by others is picked up by that drainer.
func (r *Room) unlock() {
	if r.draining || len(r.after) == 0 {
		r.mu.Unlock()
		return
	}
	r.draining = true
	for len(r.after) > 0 {
		after := r.after
		r.after = nil
		r.mu.Unlock()
		for _, f := range after {
			f()
		}
		r.mu.Lock()
	}
	r.draining = false
	r.mu.Unlock()
}

// Code returns the room code
func (r *Room) Code() model.RoomCode {
	return r.code
}

// HostID returns the host identity derived from the room code
func (r *Room) HostID() model.PeerID {
	return model.HostPeerID(r.code)
}

// HostTokenHash returns the bcrypt hash of the host token
func (r *Room) HostTokenHash() string {
	r.lock()
	defer r.unlock()
	return r.hostTokenHash
}

// Subscribe registers h for every event this room publishes
func (r *Room) Subscribe(h events.Handler) func() {
	return r.bus.Subscribe(h)
}

// Restore loads persisted draw state into a fresh room
func (r *Room) Restore(state model.HostState) {
	r.lock()
	defer r.unlock()
	r.game.Restore(state.RoundID, state.CalledNumbers, state.CurrentNumber)
	if state.VoiceMode.Valid() {
		r.voiceMode = state.VoiceMode
	}
	r.persistLocked()
	r.logger.Info("room restored",
		slog.Int("called", len(state.CalledNumbers)),
		slog.String("round_id", string(r.game.RoundID())),
	)
}

// Save persists the current host state
func (r *Room) Save() {
	r.lock()
	defer r.unlock()
	r.persistLocked()
}

// Connect admits a player connection. It fails with model.ErrIdentityTaken
// while another open connection holds the same identity.
func (r *Room) Connect(conn transport.Conn, meta model.JoinMetadata) (model.JoinResult, error) {
	r.lock()
	defer r.unlock()
	if r.closed {
		return model.JoinResult{}, model.ErrRoomNotFound
	}
	id := conn.ID()
	if existing, ok := r.conns[id]; ok && existing != conn {
		return model.JoinResult{}, model.ErrIdentityTaken
	}

	old := meta.LastSessionID
	_, oldErr := r.directory.Get(old)
	hadOld := old != "" && old != id && oldErr == nil

	res := r.directory.Join(id, meta, r.game.Started())
	r.conns[id] = conn
	if _, err := r.directory.Get(old); hadOld && err != nil {
		// The old identity moved to this connection; its socket is finished
		if stale, ok := r.conns[old]; ok {
			delete(r.conns, old)
			r.removeWaitingLocked(old)
			_ = stale.Close(transport.CloseGoingAway, "session moved")
		}
	}
	r.sendLocked(id, model.WelcomeMessage(id, res, r.game.Snapshot(), r.voiceMode))

	eventType := model.EventPlayerJoined
	if res.IsReconnect {
		eventType = model.EventPlayerReconnected
	}
	r.emitLocked(eventType, id, model.PlayerPayload{
		Name:         res.Name,
		SheetCount:   len(res.Sheets),
		WasConnected: res.WasConnected,
	})
	r.logger.Info("player connected",
		slog.String("peer_id", string(id)),
		slog.String("name", res.Name),
		slog.Bool("reconnect", res.IsReconnect),
	)
	return res, nil
}

// Disconnect removes conn if it is still the registered connection for its identity
func (r *Room) Disconnect(conn transport.Conn) {
	r.lock()
	defer r.unlock()
	id := conn.ID()
	if current, ok := r.conns[id]; !ok || current != conn {
		return
	}
	delete(r.conns, id)
	r.removeWaitingLocked(id)
	if !r.directory.Leave(id) {
		return
	}
	r.emitLocked(model.EventPlayerLeft, id, model.PlayerPayload{Name: r.directory.DisplayName(id)})
	r.logger.Info("player disconnected", slog.String("peer_id", string(id)))
}

// IdentityInUse reports whether an open connection holds id
func (r *Room) IdentityInUse(id model.PeerID) bool {
	r.lock()
	defer r.unlock()
	_, ok := r.conns[id]
	return ok
}

// PlayerState is one entry of the host's player list
type PlayerState struct {
	ID        model.PeerID  `json:"id"`
	Name      string        `json:"name"`
	Connected bool          `json:"connected"`
	Waiting   bool          `json:"waiting"`
	Sheets    []model.Sheet `json:"sheets"`
	JoinedAt  time.Time     `json:"joinedAt"`
}

// State is the host's full view of the room
type State struct {
	Code           model.RoomCode     `json:"code"`
	VoiceMode      model.VoiceMode    `json:"voiceMode"`
	Game           model.GameSnapshot `json:"game"`
	AutoDrawMs     int64              `json:"autoDrawMs"` // 0 when auto-draw is off
	Players        []PlayerState      `json:"players"`
	PendingWinners []string           `json:"pendingWinners"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// Summary is the public view of the room
type Summary struct {
	Code      model.RoomCode  `json:"code"`
	HostID    model.PeerID    `json:"hostId"`
	Players   int             `json:"players"`
	Started   bool            `json:"started"`
	Called    int             `json:"called"`
	VoiceMode model.VoiceMode `json:"voiceMode"`
}

// Snapshot returns the host's view of the room
func (r *Room) Snapshot() State {
	r.lock()
	defer r.unlock()
	players := r.directory.Players()
	out := make([]PlayerState, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerState{
			ID:        p.ID,
			Name:      p.Name,
			Connected: p.Connected,
			Waiting:   r.isWaitingLocked(p.ID),
			Sheets:    p.Sheets,
			JoinedAt:  p.JoinedAt,
		})
	}
	return State{
		Code:           r.code,
		VoiceMode:      r.voiceMode,
		Game:           r.game.Snapshot(),
		AutoDrawMs:     r.autoInterval.Milliseconds(),
		Players:        out,
		PendingWinners: r.aggregator.Pending(),
		CreatedAt:      r.createdAt,
	}
}

// Summary returns the public view of the room
func (r *Room) Summary() Summary {
	r.lock()
	defer r.unlock()
	snap := r.game.Snapshot()
	return Summary{
		Code:      r.code,
		HostID:    r.HostID(),
		Players:   r.directory.ConnectedCount(),
		Started:   snap.Started(),
		Called:    len(snap.CalledNumbers),
		VoiceMode: r.voiceMode,
	}
}

// Closed reports whether the room has been closed
func (r *Room) Closed() bool {
	r.lock()
	defer r.unlock()
	return r.closed
}

// sendLocked delivers msg to one player
func (r *Room) sendLocked(id model.PeerID, msg model.Message) {
	conn, ok := r.conns[id]
	if !ok {
		return
	}
	if err := conn.Send(msg); err != nil {
		r.logger.Debug("send failed", slog.String("peer_id", string(id)), slog.String("error", err.Error()))
	}
}

// broadcastLocked delivers msg to every open connection except skip
func (r *Room) broadcastLocked(msg model.Message, skip model.PeerID) {
	for id := range r.conns {
		if id != skip {
			r.sendLocked(id, msg)
		}
	}
}

func (r *Room) emitLocked(t model.EventType, playerID model.PeerID, payload any) {
	e := model.Event{
		Type:      t,
		Timestamp: r.clock.Now(),
		RoomCode:  r.code,
		PlayerID:  playerID,
		Payload:   payload,
	}
	r.after = append(r.after, func() { r.bus.Publish(e) })
}

// persistLocked queues a save of the current host state
func (r *Room) persistLocked() {
	snap := r.game.Snapshot()
	state := model.HostState{
		RoomCode:      r.code,
		RoundID:       snap.RoundID,
		CalledNumbers: snap.CalledNumbers,
		CurrentNumber: snap.CurrentNumber,
		VoiceMode:     r.voiceMode,
		HostTokenHash: r.hostTokenHash,
	}
	r.after = append(r.after, func() {
		r.sessions.SaveHostState(context.Background(), state)
	})
}

func (r *Room) isWaitingLocked(id model.PeerID) bool {
	for _, w := range r.waiting {
		if w == id {
			return true
		}
	}
	return false
}

func (r *Room) removeWaitingLocked(id model.PeerID) {
	for i, w := range r.waiting {
		if w == id {
			r.waiting = append(r.waiting[:i], r.waiting[i+1:]...)
			return
		}
	}
}
