package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/transport"
)

// HandshakeTimeout bounds the wait for the host's welcome
const HandshakeTimeout = 10 * time.Second

// Dialer opens player links to rooms on a loto server
type Dialer struct {
	// BaseURL is the server root, e.g. http://localhost:8080
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// HandshakeTimeout overrides the default when non-zero
	HandshakeTimeout time.Duration
}

// Ensure Dialer implements the interface
var _ transport.Dialer = (*Dialer)(nil)

// RoomURL returns the websocket endpoint of a room
func RoomURL(baseURL string, code model.RoomCode, preferred model.PeerID) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/api/v1/rooms/" + url.PathEscape(string(code)) + "/ws"
	if preferred != "" {
		u.RawQuery = url.Values{"peer_id": {string(preferred)}}.Encode()
	}
	return u.String(), nil
}

// Dial connects, sends hello and waits for welcome
func (d *Dialer) Dial(ctx context.Context, req transport.DialRequest) (transport.Link, error) {
	target, err := RoomURL(d.BaseURL, req.RoomCode, req.PreferredID)
	if err != nil {
		return nil, err
	}

	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = HandshakeTimeout
	}
	hsCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, resp, err := websocket.Dial(hsCtx, target, &websocket.DialOptions{HTTPClient: d.HTTPClient})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, model.ErrRoomNotFound
		}
		return nil, handshakeError(hsCtx, err)
	}

	hello, err := json.Marshal(model.HelloMessage(req.Hello))
	if err != nil {
		c.CloseNow()
		return nil, err
	}
	if err := c.Write(hsCtx, websocket.MessageText, hello); err != nil {
		c.CloseNow()
		return nil, handshakeError(hsCtx, err)
	}

	_, data, err := c.Read(hsCtx)
	if err != nil {
		c.CloseNow()
		return nil, handshakeError(hsCtx, err)
	}
	welcome, err := model.DecodeMessage(data)
	if err != nil || welcome.Type != model.MsgWelcome || welcome.PlayerID == "" {
		c.Close(websocket.StatusProtocolError, "expected welcome")
		return nil, fmt.Errorf("%w: expected welcome", model.ErrMalformedMessage)
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	link := newClientLink(c, welcome, logger)
	go link.readLoop()
	return link, nil
}

func handshakeError(ctx context.Context, err error) error {
	switch transport.CloseCode(websocket.CloseStatus(err)) {
	case transport.CloseIdentityTaken:
		return model.ErrIdentityTaken
	case transport.CloseRoomNotFound:
		return model.ErrRoomNotFound
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return model.ErrHandshakeTimeout
	}
	return err
}

type clientLink struct {
	ws       *websocket.Conn
	welcome  model.Message
	messages chan model.Message
	logger   *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClientLink(c *websocket.Conn, welcome model.Message, logger *slog.Logger) *clientLink {
	ctx, cancel := context.WithCancel(context.Background())
	return &clientLink{
		ws:       c,
		welcome:  welcome,
		messages: make(chan model.Message, OutboxSize),
		logger:   logger.With(slog.String("peer_id", string(welcome.PlayerID))),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (l *clientLink) ID() model.PeerID {
	return l.welcome.PlayerID
}

func (l *clientLink) Welcome() model.Message {
	return l.welcome
}

func (l *clientLink) Messages() <-chan model.Message {
	return l.messages
}

func (l *clientLink) Send(msg model.Message) error {
	if l.ctx.Err() != nil {
		return model.ErrConnClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(l.ctx, writeTimeout)
	defer cancel()
	if err := l.ws.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("%w: %w", model.ErrConnClosed, err)
	}
	return nil
}

func (l *clientLink) Close() error {
	l.closeOnce.Do(func() {
		_ = l.ws.Close(websocket.StatusNormalClosure, "leaving")
		l.cancel()
	})
	return nil
}

func (l *clientLink) readLoop() {
	defer close(l.messages)
	defer l.cancel()
	for {
		_, data, err := l.ws.Read(l.ctx)
		if err != nil {
			if l.ctx.Err() == nil {
				l.logger.Debug("link closed", slog.String("error", err.Error()))
			}
			return
		}
		msg, err := model.DecodeMessage(data)
		if err != nil {
			l.logger.Warn("ignoring malformed message", slog.String("error", err.Error()))
			continue
		}
		select {
		case l.messages <- msg:
		case <-l.ctx.Done():
			return
		}
	}
}
