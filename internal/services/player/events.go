package player

import (
	"sync"

	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/reconnect"
)

// EventType identifies what happened on the player's side
type EventType string

const (
	EventConnection    EventType = "connection"
	EventDisconnected  EventType = "disconnected"
	EventWelcome       EventType = "welcome"
	EventNumberDrawn   EventType = "numberDrawn"
	EventGameReset     EventType = "gameReset"
	EventWinConfirmed  EventType = "winConfirmed"
	EventWinRejected   EventType = "winRejected"
	EventClaimTimedOut EventType = "claimTimedOut"
	EventToast         EventType = "toast"
	EventEmote         EventType = "emote"
	EventShout         EventType = "shout"
	EventVoiceMode     EventType = "voiceMode"

	// EventRowComplete fires once per row when all its numbers are called and marked
	EventRowComplete EventType = "rowComplete"
	// EventWaiting fires when a row is one number short and the host has been told
	EventWaiting EventType = "waiting"
)

// Event is delivered to listeners. Which fields are set depends on Type.
type Event struct {
	Type     EventType
	State    reconnect.State
	Number   int
	Text     string
	Name     string
	Style    model.ToastStyle
	Emoji    string
	SenderID model.PeerID
	Mode     model.VoiceMode
	Row      RowRef
	Err      error
}

// Listener receives client events after the client's lock is released
type Listener func(Event)

// Subscribe appends l to the listener list. The returned function removes it.
func (c *Client) Subscribe(l Listener) func() {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	id := c.nextListen
	c.nextListen++
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lmu.Lock()
			defer c.lmu.Unlock()
			for i, e := range c.listeners {
				if e.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Client) emitLocked(e Event) {
	c.after = append(c.after, func() {
		c.lmu.Lock()
		listeners := c.listeners
		c.lmu.Unlock()
		for _, l := range listeners {
			l.fn(e)
		}
	})
}
