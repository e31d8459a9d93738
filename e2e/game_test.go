package e2e_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtien379/Loto/internal/api"
	"github.com/minhtien379/Loto/internal/api/response"
	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/dependencies/random"
	"github.com/minhtien379/Loto/internal/factory"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/generator"
	"github.com/minhtien379/Loto/internal/services/player"
	"github.com/minhtien379/Loto/internal/services/session"
	"github.com/minhtien379/Loto/internal/storage/memory"
	"github.com/minhtien379/Loto/internal/testutil"
	"github.com/minhtien379/Loto/internal/transport/ws"
)

// recorder keeps every event a player client emits
type recorder struct {
	mu     sync.Mutex
	events []player.Event
}

func (r *recorder) record(e player.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all(t player.EventType) []player.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []player.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type e2eEnv struct {
	t   *testing.T
	app *factory.TestApp
	srv *httptest.Server
}

func newEnv(t *testing.T, codes ...string) *e2eEnv {
	t.Helper()

	app := factory.NewTestApp()
	app.MockRandom.QueueString(codes...)

	srv := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		RoomManager: app.RoomManager,
		HubManager:  app.HubManager,
	}))
	t.Cleanup(func() {
		_ = app.Close()
		srv.Close()
	})

	return &e2eEnv{t: t, app: app, srv: srv}
}

// hostCall sends a host request and decodes the JSON answer into out when given
func (e *e2eEnv) hostCall(method, path, token string, out any) int {
	e.t.Helper()

	req, err := http.NewRequest(method, e.srv.URL+path, nil)
	require.NoError(e.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// join connects a real player client with auto-marking and its own session store
func (e *e2eEnv) join(code, name string, seed uint64) (*player.Client, *recorder) {
	e.t.Helper()

	clk := clock.New()
	rnd := random.NewSeeded(seed)
	logger := testutil.NopLogger()

	c := player.New(player.Config{
		RoomCode: model.RoomCode(code),
		Name:     name,
		AutoMark: true,
	}, player.Deps{
		Dialer:   &ws.Dialer{BaseURL: e.srv.URL, Logger: logger},
		Sessions: session.New(memory.New(clk), clk, logger),
		Sheets:   generator.New(rnd, logger),
		Random:   rnd,
		Clock:    clk,
		Logger:   logger,
	})

	rec := &recorder{}
	e.t.Cleanup(c.Subscribe(rec.record))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(e.t, c.Join(ctx))
	e.t.Cleanup(func() { c.Leave(context.Background()) })

	return c, rec
}

func TestRoundPlaysToSingleWinner(t *testing.T) {
	env := newEnv(t, "XMAS24")

	var created response.CreateRoomResponse
	require.Equal(t, http.StatusCreated, env.hostCall(http.MethodPost, "/api/v1/rooms", "", &created))
	code, token := created.RoomCode, created.HostToken

	an, anEvents := env.join(code, "An", 1)
	_, binhEvents := env.join(code, "Bình", 2)

	require.Eventually(t, func() bool {
		var state response.RoomState
		env.hostCall(http.MethodGet, "/api/v1/rooms/"+code+"/state", token, &state)
		return len(state.Players) == 2
	}, 5*time.Second, 10*time.Millisecond)

	// Draw until An's client sees a complete row
	drawn := 0
	for len(anEvents.all(player.EventRowComplete)) == 0 {
		require.Less(t, drawn, model.MaxNumber, "no row completed after every number was drawn")

		var draw response.DrawResponse
		require.Equal(t, http.StatusOK, env.hostCall(http.MethodPost, "/api/v1/rooms/"+code+"/draw", token, &draw))
		drawn++

		require.Eventually(t, func() bool {
			return len(an.View().Called) == drawn
		}, 5*time.Second, 5*time.Millisecond, "An never saw draw %d", drawn)
	}

	require.NoError(t, an.Claim())

	require.Eventually(t, func() bool {
		var state response.RoomState
		env.hostCall(http.MethodGet, "/api/v1/rooms/"+code+"/state", token, &state)
		return len(state.PendingWinners) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The win window closes on the host's clock
	env.app.MockClock.Advance(2 * time.Second)

	for _, rec := range []*recorder{anEvents, binhEvents} {
		require.Eventually(t, func() bool {
			return len(rec.all(player.EventWinConfirmed)) > 0
		}, 5*time.Second, 10*time.Millisecond)
	}

	// Give any duplicate a chance to arrive
	time.Sleep(100 * time.Millisecond)
	for _, rec := range []*recorder{anEvents, binhEvents} {
		wins := rec.all(player.EventWinConfirmed)
		require.Len(t, wins, 1)
		assert.Equal(t, "An", wins[0].Name)
	}
	assert.Empty(t, anEvents.all(player.EventWinRejected))
}

func TestPlayersFollowReset(t *testing.T) {
	env := newEnv(t, "HUE789")

	var created response.CreateRoomResponse
	require.Equal(t, http.StatusCreated, env.hostCall(http.MethodPost, "/api/v1/rooms", "", &created))
	code, token := created.RoomCode, created.HostToken

	an, anEvents := env.join(code, "An", 3)

	require.Equal(t, http.StatusOK, env.hostCall(http.MethodPost, "/api/v1/rooms/"+code+"/draw", token, &response.DrawResponse{}))
	require.Eventually(t, func() bool { return an.View().Started }, 5*time.Second, 5*time.Millisecond)

	// Sheets are locked once the round has started
	assert.ErrorIs(t, an.AddSheet(), model.ErrGameInProgress)

	require.Equal(t, http.StatusOK, env.hostCall(http.MethodPost, "/api/v1/rooms/"+code+"/reset", token, &response.ResetResponse{}))
	require.Eventually(t, func() bool {
		return len(anEvents.all(player.EventGameReset)) == 1
	}, 5*time.Second, 5*time.Millisecond)

	v := an.View()
	assert.False(t, v.Started)
	assert.Empty(t, v.Called)

	require.NoError(t, an.AddSheet())
	require.Eventually(t, func() bool {
		var state response.RoomState
		env.hostCall(http.MethodGet, "/api/v1/rooms/"+code+"/state", token, &state)
		return len(state.Players) == 1 && len(state.Players[0].Sheets) == 2
	}, 5*time.Second, 10*time.Millisecond)
}
