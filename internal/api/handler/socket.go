package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/minhtien379/Loto/internal/dependencies/ids"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/room"
	"github.com/minhtien379/Loto/internal/transport"
	"github.com/minhtien379/Loto/internal/transport/ws"
)

// HelloTimeout bounds the wait for a player's hello after the upgrade
const HelloTimeout = 10 * time.Second

// SocketHandler accepts player connections
type SocketHandler struct {
	rooms          *room.Manager
	originPatterns []string
	logger         *slog.Logger
}

// NewSocketHandler creates a new socket handler. originPatterns lists the
// cross-origin hosts browsers may connect from.
func NewSocketHandler(rooms *room.Manager, originPatterns []string, logger *slog.Logger) *SocketHandler {
	return &SocketHandler{
		rooms:          rooms,
		originPatterns: originPatterns,
		logger:         logger,
	}
}

// Connect handles GET /api/v1/rooms/{code}/ws
func (h *SocketHandler) Connect(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(roomCode(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	id := model.PeerID(r.URL.Query().Get("peer_id"))
	if id == "" {
		id = ids.NewPeerID()
	}

	// A player connection lives far beyond the server's request timeouts
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	c, err := ws.Accept(w, r, h.originPatterns)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	conn := ws.NewConn(id, c, h.logger)
	ctx := r.Context()

	helloCtx, cancel := context.WithTimeout(ctx, HelloTimeout)
	hello, err := conn.ReadMessage(helloCtx)
	cancel()
	if err != nil {
		h.logger.Debug("no hello", slog.String("peer_id", string(id)), slog.String("error", err.Error()))
		h.reject(ctx, conn, transport.CloseProtocolError, "expected hello")
		return
	}
	if hello.Type != model.MsgHello {
		h.reject(ctx, conn, transport.CloseProtocolError, "expected hello")
		return
	}

	meta := model.JoinMetadata{
		Name:          hello.Name,
		Sheets:        hello.SheetsPayload(),
		LastSessionID: hello.LastSessionID,
	}
	if _, err := rm.Connect(conn, meta); err != nil {
		switch {
		case errors.Is(err, model.ErrIdentityTaken):
			h.reject(ctx, conn, transport.CloseIdentityTaken, "identity taken")
		default:
			h.reject(ctx, conn, transport.CloseRoomNotFound, "room not found")
		}
		return
	}
	defer rm.Disconnect(conn)

	if err := conn.Serve(ctx, func(msg model.Message) {
		rm.HandleMessage(id, msg)
	}); err != nil {
		h.logger.Debug("connection ended", slog.String("peer_id", string(id)), slog.String("error", err.Error()))
	}
}

// reject closes conn with code and waits for the close to be written
func (h *SocketHandler) reject(ctx context.Context, conn *ws.Conn, code transport.CloseCode, reason string) {
	_ = conn.Close(code, reason)
	_ = conn.Serve(ctx, func(model.Message) {})
}
