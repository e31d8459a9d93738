package mocks

import (
	"sync"

	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/transport"
)

// MockConn records everything sent to it
type MockConn struct {
	mu          sync.Mutex
	id          model.PeerID
	sent        []model.Message
	closed      bool
	CloseCode   transport.CloseCode
	CloseReason string
}

// Ensure MockConn implements Conn
var _ transport.Conn = (*MockConn)(nil)

// NewMockConn creates a MockConn for the given identity
func NewMockConn(id model.PeerID) *MockConn {
	return &MockConn{id: id}
}

func (c *MockConn) ID() model.PeerID {
	return c.id
}

func (c *MockConn) Send(msg model.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return model.ErrConnClosed
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *MockConn) Close(code transport.CloseCode, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.CloseCode = code
		c.CloseReason = reason
	}
	return nil
}

// Sent returns a copy of every message sent so far
func (c *MockConn) Sent() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Message(nil), c.sent...)
}

// SentOfType returns the sent messages of one type
func (c *MockConn) SentOfType(t model.MessageType) []model.Message {
	var out []model.Message
	for _, m := range c.Sent() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message, or a zero Message
func (c *MockConn) Last() model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return model.Message{}
	}
	return c.sent[len(c.sent)-1]
}

// Clear forgets recorded messages
func (c *MockConn) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

// Closed reports whether Close was called
func (c *MockConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
