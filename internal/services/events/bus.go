package events

import (
	"log/slog"
	"sync"

	"github.com/minhtien379/Loto/internal/model"
)

// Handler receives published events. Handlers run on the publisher's goroutine
// and must not block.
type Handler func(model.Event)

type subscription struct {
	id      int
	handler Handler
}

// Bus delivers events to subscribers in subscription order
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
}

// NewBus creates an empty Bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe adds h to the end of the subscriber list. The returned function removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every subscriber with e
func (b *Bus) Publish(e model.Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, s := range subs {
		s.handler(e)
	}
}

// Len returns the number of subscribers
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// GameLog returns a Handler that writes every event to logger
func GameLog(logger *slog.Logger) Handler {
	return func(e model.Event) {
		logger.Info("room event",
			slog.String("room", string(e.RoomCode)),
			slog.String("type", string(e.Type)),
			slog.String("player_id", string(e.PlayerID)),
			slog.Any("payload", e.Payload),
		)
	}
}
