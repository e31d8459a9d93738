// Package transport abstracts the message link between a room host and its players.
package transport

import (
	"context"

	"github.com/minhtien379/Loto/internal/model"
)

// CloseCode is sent to the peer when a connection is closed
type CloseCode int

const (
	CloseNormal        CloseCode = 1000
	CloseGoingAway     CloseCode = 1001
	CloseProtocolError CloseCode = 1002
	CloseIdentityTaken CloseCode = 4001
	CloseRoomNotFound  CloseCode = 4004
)

// Conn is the host's side of one player connection
type Conn interface {
	ID() model.PeerID

	// Send queues msg for delivery without blocking
	Send(msg model.Message) error

	Close(code CloseCode, reason string) error
}

// DialRequest describes a player's attempt to open a link to a room
type DialRequest struct {
	RoomCode model.RoomCode

	// PreferredID asks the host for a specific identity; empty lets the host assign one
	PreferredID model.PeerID

	Hello model.JoinMetadata
}

// Link is the player's side of an open connection
type Link interface {
	ID() model.PeerID

	// Welcome is the first message the host sent
	Welcome() model.Message

	Send(msg model.Message) error

	// Messages yields every message after welcome and is closed when the link drops
	Messages() <-chan model.Message

	Close() error
}

// Dialer opens links. It returns model.ErrIdentityTaken when the preferred
// identity is in use, model.ErrRoomNotFound when there is no such room and
// model.ErrHandshakeTimeout when the host does not answer in time.
type Dialer interface {
	Dial(ctx context.Context, req DialRequest) (Link, error)
}
