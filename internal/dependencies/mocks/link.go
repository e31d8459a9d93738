package mocks

import (
	"context"
	"sync"

	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/transport"
)

// MockLink is an in-memory player link. Push delivers messages to the reader;
// Drop simulates the host going away.
type MockLink struct {
	mu       sync.Mutex
	id       model.PeerID
	welcome  model.Message
	sent     []model.Message
	messages chan model.Message
	closed   bool

	gate    chan struct{}
	entered chan struct{}
}

// Ensure MockLink implements Link
var _ transport.Link = (*MockLink)(nil)

// NewMockLink creates a link whose welcome carries id
func NewMockLink(id model.PeerID, welcome model.Message) *MockLink {
	welcome.Type = model.MsgWelcome
	welcome.PlayerID = id
	return &MockLink{
		id:       id,
		welcome:  welcome,
		messages: make(chan model.Message, 64),
	}
}

func (l *MockLink) ID() model.PeerID {
	return l.id
}

func (l *MockLink) Welcome() model.Message {
	return l.welcome
}

func (l *MockLink) Send(msg model.Message) error {
	l.mu.Lock()
	gate, entered := l.gate, l.entered
	l.mu.Unlock()
	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-gate
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return model.ErrConnClosed
	}
	l.sent = append(l.sent, msg)
	return nil
}

func (l *MockLink) Messages() <-chan model.Message {
	return l.messages
}

func (l *MockLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.messages)
	}
	return nil
}

// HoldSends makes Send block until release is called, like a stalled socket
// write. entered receives once a Send is blocked.
func (l *MockLink) HoldSends() (entered <-chan struct{}, release func()) {
	gate := make(chan struct{})
	in := make(chan struct{}, 1)
	l.mu.Lock()
	l.gate = gate
	l.entered = in
	l.mu.Unlock()

	var once sync.Once
	return in, func() {
		once.Do(func() {
			l.mu.Lock()
			l.gate = nil
			l.mu.Unlock()
			close(gate)
		})
	}
}

// Push delivers msg to whoever reads Messages
func (l *MockLink) Push(msg model.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.messages <- msg
	}
}

// Drop closes the link from the host's side
func (l *MockLink) Drop() {
	_ = l.Close()
}

// Sent returns a copy of every message sent so far
func (l *MockLink) Sent() []model.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Message(nil), l.sent...)
}

// SentOfType returns the sent messages of one type
func (l *MockLink) SentOfType(t model.MessageType) []model.Message {
	var out []model.Message
	for _, m := range l.Sent() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// Closed reports whether the link was closed
func (l *MockLink) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// DialResult is one scripted answer of MockDialer
type DialResult struct {
	Link *MockLink
	Err  error
}

// MockDialer answers dials from a script and records every request.
// When the script runs out it fails with model.ErrRoomNotFound.
type MockDialer struct {
	mu       sync.Mutex
	script   []DialResult
	requests []transport.DialRequest
}

// Ensure MockDialer implements Dialer
var _ transport.Dialer = (*MockDialer)(nil)

// NewMockDialer creates a MockDialer
func NewMockDialer() *MockDialer {
	return &MockDialer{}
}

// QueueLink scripts a successful dial
func (d *MockDialer) QueueLink(link *MockLink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, DialResult{Link: link})
}

// QueueError scripts a failed dial
func (d *MockDialer) QueueError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, DialResult{Err: err})
}

func (d *MockDialer) Dial(ctx context.Context, req transport.DialRequest) (transport.Link, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.script) == 0 {
		return nil, model.ErrRoomNotFound
	}
	next := d.script[0]
	d.script = d.script[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	return next.Link, nil
}

// Requests returns every dial request received so far
func (d *MockDialer) Requests() []transport.DialRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]transport.DialRequest(nil), d.requests...)
}
