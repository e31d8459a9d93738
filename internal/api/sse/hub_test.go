package sse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/events"
	"github.com/minhtien379/Loto/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "number-drawn",
			data:      `{"number":7}`,
			expected:  "event: number-drawn\ndata: {\"number\":7}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "toast",
			data:      "first\nsecond",
			expected:  "event: toast\ndata: first\ndata: second\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "shout",
			data:      "line1\r\nline2",
			expected:  "event: shout\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single line", "hello", []string{"hello"}},
		{"two lines", "line1\nline2", []string{"line1", "line2"}},
		{"trailing newline", "line1\n", []string{"line1"}},
		{"empty string", "", []string{""}},
		{"crlf line endings", "line1\r\nline2\r\n", []string{"line1", "line2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitLines(tt.input))
		})
	}
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub("ABC234", testutil.NopLogger())
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := newTestHub(t)

	client := NewClient(hub, "host")
	require.True(t, hub.Register(client))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastEvent("number-drawn", "7")
	assert.Equal(t, "event: number-drawn\ndata: 7\n\n", receive(t, client))
}

func TestHub_BroadcastToMultipleClients(t *testing.T) {
	hub := newTestHub(t)

	clients := []*Client{NewClient(hub, "a"), NewClient(hub, "b"), NewClient(hub, "c")}
	for _, c := range clients {
		require.True(t, hub.Register(c))
	}
	assert.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	hub.BroadcastEvent("game-reset", "{}")
	for _, c := range clients {
		assert.Equal(t, "event: game-reset\ndata: {}\n\n", receive(t, c))
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := newTestHub(t)

	client := NewClient(hub, "host")
	require.True(t, hub.Register(client))
	hub.Unregister(client)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-client.send
	assert.False(t, ok, "send channel should be closed")
}

func TestHub_CloseEndsClientsAndRejectsNewOnes(t *testing.T) {
	hub := NewHub("ABC234", testutil.NopLogger())
	go hub.Run()

	client := NewClient(hub, "host")
	require.True(t, hub.Register(client))

	hub.BroadcastEvent("room-closed", "{}")
	hub.Close()
	hub.Close()

	// The queued event is delivered before the channel closes
	assert.Equal(t, "event: room-closed\ndata: {}\n\n", receive(t, client))
	_, ok := <-client.send
	assert.False(t, ok)

	assert.False(t, hub.Register(NewClient(hub, "late")))
	hub.Unregister(client)
}

func TestHubManager(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	t.Cleanup(manager.CloseAll)

	assert.Nil(t, manager.GetHub("ABC234"))

	hub1, created := manager.GetOrCreateHub("ABC234")
	require.NotNil(t, hub1)
	assert.True(t, created)

	hub2, created := manager.GetOrCreateHub("ABC234")
	assert.Same(t, hub1, hub2)
	assert.False(t, created)

	hub3, _ := manager.GetOrCreateHub("XYZ789")
	assert.NotSame(t, hub1, hub3)
	assert.Same(t, hub1, manager.GetHub("ABC234"))

	manager.RemoveHub("ABC234")
	assert.Nil(t, manager.GetHub("ABC234"))
	assert.False(t, hub1.Register(NewClient(hub1, "late")))

	// Removing a missing hub is a no-op
	manager.RemoveHub("NOPE00")

	manager.CloseAll()
	assert.Nil(t, manager.GetHub("XYZ789"))
}

func TestAttachForwardsRoomEvents(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	t.Cleanup(manager.CloseAll)
	bus := events.NewBus()

	hub := manager.Attach("ABC234", bus)
	assert.Same(t, hub, manager.Attach("ABC234", bus))
	assert.Equal(t, 1, bus.Len(), "only the first attach subscribes")

	client := NewClient(hub, "host")
	require.True(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(model.Event{
		Type:     model.EventNumberDrawn,
		RoomCode: "ABC234",
		Payload:  model.NumberDrawnPayload{Number: 42, Called: 1, Remaining: 89},
	})

	msg := receive(t, client)
	require.Contains(t, msg, "event: number-drawn\n")
	var decoded struct {
		Type    string `json:"type"`
		Payload struct {
			Number int `json:"number"`
		} `json:"payload"`
	}
	data := msg[len("event: number-drawn\ndata: ") : len(msg)-2]
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, "number-drawn", decoded.Type)
	assert.Equal(t, 42, decoded.Payload.Number)

	bus.Publish(model.Event{Type: model.EventRoomClosed, RoomCode: "ABC234"})
	assert.Contains(t, receive(t, client), "event: room-closed\n")
	assert.Nil(t, manager.GetHub("ABC234"))
}
