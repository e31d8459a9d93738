package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/transport"
)

const (
	// OutboxSize is how many messages may queue for one connection before new ones are dropped
	OutboxSize = 64

	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	pingTimeout  = 15 * time.Second
)

// Conn is a server-side websocket connection with a buffered write pump
type Conn struct {
	id     model.PeerID
	ws     *websocket.Conn
	logger *slog.Logger

	outbox chan model.Message

	closeOnce   sync.Once
	closed      chan struct{}
	closeCode   transport.CloseCode
	closeReason string
}

// Ensure Conn implements the interface
var _ transport.Conn = (*Conn)(nil)

// NewConn wraps an accepted websocket
func NewConn(id model.PeerID, c *websocket.Conn, logger *slog.Logger) *Conn {
	return &Conn{
		id:     id,
		ws:     c,
		logger: logger.With(slog.String("peer_id", string(id))),
		outbox: make(chan model.Message, OutboxSize),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() model.PeerID {
	return c.id
}

// Send queues msg. When the outbox is full the message is dropped.
func (c *Conn) Send(msg model.Message) error {
	select {
	case <-c.closed:
		return model.ErrConnClosed
	default:
	}
	select {
	case c.outbox <- msg:
	default:
		c.logger.Warn("outbox full, dropping message", slog.String("type", string(msg.Type)))
	}
	return nil
}

// Close flushes queued messages and closes the websocket with code
func (c *Conn) Close(code transport.CloseCode, reason string) error {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.closed)
	})
	return nil
}

// ReadMessage reads and decodes one frame
func (c *Conn) ReadMessage(ctx context.Context) (model.Message, error) {
	typ, data, err := c.ws.Read(ctx)
	if err != nil {
		return model.Message{}, err
	}
	if typ != websocket.MessageText {
		return model.Message{}, fmt.Errorf("%w: binary frame", model.ErrMalformedMessage)
	}
	return model.DecodeMessage(data)
}

// Serve runs the write pump and feeds every inbound message to handle until
// the connection closes. A clean close by either side returns nil.
func (c *Conn) Serve(ctx context.Context, handle func(model.Message)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		c.writePump(ctx)
	}()
	defer func() { <-pumpDone }()

	for {
		msg, err := c.ReadMessage(ctx)
		if errors.Is(err, model.ErrMalformedMessage) {
			c.logger.Warn("ignoring malformed message", slog.String("error", err.Error()))
			continue
		}
		if err != nil {
			select {
			case <-c.closed:
				return nil
			default:
			}
			_ = c.Close(transport.CloseGoingAway, "read failed")
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		handle(msg)
	}
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-c.closed:
			c.flush(ctx)
			_ = c.ws.Close(websocket.StatusCode(c.closeCode), c.closeReason)
			return
		case msg := <-c.outbox:
			if err := c.write(ctx, msg); err != nil {
				c.logger.Warn("failed to write message", slog.String("error", err.Error()))
				_ = c.Close(transport.CloseGoingAway, "write failed")
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.ws.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Warn("ping failed, assuming disconnect", slog.String("error", err.Error()))
				_ = c.Close(transport.CloseGoingAway, "ping failed")
			}
		}
	}
}

// flush writes whatever is still queued, best effort
func (c *Conn) flush(ctx context.Context) {
	for {
		select {
		case msg := <-c.outbox:
			if err := c.write(ctx, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(ctx context.Context, msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.ws.Write(writeCtx, websocket.MessageText, data)
}
