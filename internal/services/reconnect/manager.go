// Package reconnect keeps a player's link to a room alive across drops.
package reconnect

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/transport"
)

// State is the lifecycle stage of the link
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

const (
	MaxAttempts       = 5
	HeartbeatInterval = 15 * time.Second
	HeartbeatTimeout  = 10 * time.Second

	baseBackoff = time.Second
	maxBackoff  = 8 * time.Second
)

// Backoff returns the delay before reconnect attempt n, starting at 1
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := baseBackoff
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

// EventType identifies what a listener is told about
type EventType string

const (
	EventStateChanged EventType = "state"
	EventConnected    EventType = "connected"
	EventReconnected  EventType = "reconnected"
	EventDisconnected EventType = "disconnected"
	EventMessage      EventType = "message"
)

// Event is delivered to listeners. Welcome is set for connected and reconnected,
// Message for message, Err for disconnected.
type Event struct {
	Type    EventType
	State   State
	Welcome model.Message
	Message model.Message
	Err     error
}

// Listener receives events on the goroutine that produced them
type Listener func(Event)

// Config holds the link settings
type Config struct {
	RoomCode    model.RoomCode
	PreferredID model.PeerID

	MaxAttempts       int
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = MaxAttempts
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = HeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = HeartbeatTimeout
	}
	return c
}

type listenerEntry struct {
	id int
	fn Listener
}

// Manager owns one player link. Connect opens it; afterwards drops are
// retried with exponential backoff until MaxAttempts is exhausted.
type Manager struct {
	mu sync.Mutex

	cfg    Config
	dialer transport.Dialer
	hello  func() model.JoinMetadata
	clock  clock.Clock
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	state    State
	link     transport.Link
	linkGen  uint64
	id       model.PeerID
	lastID   model.PeerID
	attempts int
	closed   bool

	retryTimer    clock.Timer
	pingTimer     clock.Timer
	watchdogTimer clock.Timer

	listeners  []listenerEntry
	nextListen int
}

// New creates a Manager. hello is called before every dial so the host
// always sees the player's current name and sheets.
func New(cfg Config, dialer transport.Dialer, hello func() model.JoinMetadata, clk clock.Clock, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:    cfg,
		dialer: dialer,
		hello:  hello,
		clock:  clk,
		logger: logger.With(slog.String("room", string(cfg.RoomCode))),
		ctx:    ctx,
		cancel: cancel,
		state:  StateDisconnected,
		id:     cfg.PreferredID,
	}
}

// Subscribe appends l to the listener list. The returned function removes it.
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextListen
	m.nextListen++
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, e := range m.listeners {
				if e.id == id {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// State returns the current state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ID returns the identity of the current or most recent link
func (m *Manager) ID() model.PeerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Connect opens the first link. Failures are returned and not retried.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return model.ErrConnClosed
	}
	if m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}
	pending := m.setStateLocked(StateConnecting)
	m.mu.Unlock()
	m.emit(pending...)

	link, err := m.dial(ctx)

	m.mu.Lock()
	if err != nil {
		pending = m.setStateLocked(StateDisconnected)
		m.mu.Unlock()
		m.emit(pending...)
		return err
	}
	if m.closed {
		m.mu.Unlock()
		_ = link.Close()
		return model.ErrConnClosed
	}
	pending, gen := m.attachLocked(link, EventConnected)
	m.mu.Unlock()
	m.emit(pending...)
	go m.readLoop(link, gen)
	return nil
}

// Send delivers msg over the open link
func (m *Manager) Send(msg model.Message) error {
	m.mu.Lock()
	link := m.link
	m.mu.Unlock()
	if link == nil {
		return model.ErrNotConnected
	}
	return link.Send(msg)
}

// Close drops the link and cancels every timer. A closed Manager cannot reconnect.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cancel()
	m.stopTimersLocked()
	link := m.link
	m.link = nil
	m.linkGen++
	pending := m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	if link != nil {
		_ = link.Close()
	}
	m.emit(pending...)
}

// dial tries the preferred identity, falling back to a fresh one while the
// host reports it as taken. The old identity is offered as lastSessionId.
func (m *Manager) dial(ctx context.Context) (transport.Link, error) {
	var err error
	for range m.cfg.MaxAttempts {
		m.mu.Lock()
		req := transport.DialRequest{
			RoomCode:    m.cfg.RoomCode,
			PreferredID: m.id,
		}
		lastID := m.lastID
		m.mu.Unlock()

		req.Hello = m.hello()
		if lastID != "" {
			req.Hello.LastSessionID = lastID
		}

		var link transport.Link
		link, err = m.dialer.Dial(ctx, req)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, model.ErrIdentityTaken) {
			return nil, err
		}
		m.logger.Info("identity taken, retrying with a fresh one", slog.String("peer_id", string(req.PreferredID)))
		m.mu.Lock()
		if m.id != "" {
			m.lastID = m.id
		}
		m.id = ""
		m.mu.Unlock()
	}
	return nil, err
}

// attachLocked installs link. The caller starts its read loop after emitting
// the returned events so listeners see the welcome before any message.
func (m *Manager) attachLocked(link transport.Link, kind EventType) ([]Event, uint64) {
	m.linkGen++
	gen := m.linkGen
	m.link = link
	m.id = link.ID()
	m.lastID = ""
	m.attempts = 0

	pending := m.setStateLocked(StateConnected)
	pending = append(pending, Event{Type: kind, State: StateConnected, Welcome: link.Welcome()})
	m.schedulePingLocked(gen)

	m.logger.Info("link open", slog.String("peer_id", string(link.ID())), slog.String("kind", string(kind)))
	return pending, gen
}

func (m *Manager) readLoop(link transport.Link, gen uint64) {
	for msg := range link.Messages() {
		m.mu.Lock()
		if gen != m.linkGen {
			m.mu.Unlock()
			return
		}
		if m.watchdogTimer != nil {
			m.watchdogTimer.Stop()
			m.watchdogTimer = nil
		}
		m.mu.Unlock()
		m.emit(Event{Type: EventMessage, State: StateConnected, Message: msg})
	}
	m.linkLost(gen, errors.New("link closed"))
}

func (m *Manager) schedulePingLocked(gen uint64) {
	m.pingTimer = m.clock.AfterFunc(m.cfg.HeartbeatInterval, func() { m.heartbeat(gen) })
}

func (m *Manager) heartbeat(gen uint64) {
	m.mu.Lock()
	if gen != m.linkGen || m.link == nil {
		m.mu.Unlock()
		return
	}
	link := m.link
	if m.watchdogTimer == nil {
		m.watchdogTimer = m.clock.AfterFunc(m.cfg.HeartbeatTimeout, func() {
			m.linkLost(gen, errors.New("heartbeat timeout"))
		})
	}
	m.schedulePingLocked(gen)
	m.mu.Unlock()

	if err := link.Send(model.PingMessage()); err != nil {
		m.logger.Debug("ping failed", slog.String("error", err.Error()))
	}
}

// linkLost starts the reconnect cycle for the link of generation gen
func (m *Manager) linkLost(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.linkGen || m.closed {
		m.mu.Unlock()
		return
	}
	link := m.link
	m.link = nil
	m.linkGen++
	m.stopTimersLocked()
	m.attempts = 0
	m.logger.Warn("link lost", slog.String("error", cause.Error()))
	pending := m.setStateLocked(StateReconnecting)
	pending = append(pending, m.scheduleRetryLocked(cause)...)
	m.mu.Unlock()

	if link != nil {
		_ = link.Close()
	}
	m.emit(pending...)
}

func (m *Manager) scheduleRetryLocked(cause error) []Event {
	m.attempts++
	if m.attempts > m.cfg.MaxAttempts {
		m.logger.Warn("giving up reconnecting", slog.Int("attempts", m.cfg.MaxAttempts))
		pending := m.setStateLocked(StateFailed)
		return append(pending, Event{Type: EventDisconnected, State: StateFailed, Err: cause})
	}
	delay := Backoff(m.attempts)
	gen := m.linkGen
	m.retryTimer = m.clock.AfterFunc(delay, func() { m.retry(gen) })
	m.logger.Info("reconnect scheduled", slog.Int("attempt", m.attempts), slog.Duration("delay", delay))
	return nil
}

func (m *Manager) retry(gen uint64) {
	m.mu.Lock()
	if gen != m.linkGen || m.closed {
		m.mu.Unlock()
		return
	}
	m.retryTimer = nil
	m.mu.Unlock()

	link, err := m.dial(m.ctx)

	m.mu.Lock()
	if gen != m.linkGen || m.closed {
		m.mu.Unlock()
		if link != nil {
			_ = link.Close()
		}
		return
	}
	if err != nil {
		m.logger.Debug("reconnect attempt failed", slog.Int("attempt", m.attempts), slog.String("error", err.Error()))
		pending := m.scheduleRetryLocked(err)
		m.mu.Unlock()
		m.emit(pending...)
		return
	}
	pending, linkGen := m.attachLocked(link, EventReconnected)
	m.mu.Unlock()
	m.emit(pending...)
	go m.readLoop(link, linkGen)
}

func (m *Manager) stopTimersLocked() {
	for _, t := range []*clock.Timer{&m.retryTimer, &m.pingTimer, &m.watchdogTimer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

func (m *Manager) setStateLocked(s State) []Event {
	if m.state == s {
		return nil
	}
	m.state = s
	return []Event{{Type: EventStateChanged, State: s}}
}

// emit delivers events to a snapshot of the listener list, in order
func (m *Manager) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	m.mu.Lock()
	listeners := m.listeners
	m.mu.Unlock()
	for _, e := range events {
		for _, l := range listeners {
			l.fn(e)
		}
	}
}
