package sse

import (
	"encoding/json"
	"log/slog"

	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/events"
)

// Source is anything that publishes room events
type Source interface {
	Subscribe(h events.Handler) func()
}

// Attach returns the hub streaming events of the room code, wiring it to
// source the first time. The hub is removed when the room closes.
func (m *HubManager) Attach(code model.RoomCode, source Source) *Hub {
	hub, created := m.GetOrCreateHub(code)
	if created {
		// The subscription ends with the room
		source.Subscribe(func(e model.Event) {
			data, err := json.Marshal(e)
			if err != nil {
				m.logger.Warn("failed to encode event", slog.String("type", string(e.Type)), slog.String("error", err.Error()))
				return
			}
			hub.BroadcastEvent(string(e.Type), string(data))
			if e.Type == model.EventRoomClosed {
				m.RemoveHub(code)
			}
		})
	}
	return hub
}
