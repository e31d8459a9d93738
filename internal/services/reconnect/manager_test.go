package reconnect

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/minhtien379/Loto/internal/dependencies/mocks"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/testutil"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 8 * time.Second},
		{12, 8 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

type ManagerSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	dialer  *mocks.MockDialer
	manager *Manager

	mu     sync.Mutex
	events []Event
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.dialer = mocks.NewMockDialer()
	s.events = nil
	s.manager = s.newManager("p1")
}

func (s *ManagerSuite) TearDownTest() {
	s.manager.Close()
}

func (s *ManagerSuite) newManager(preferred model.PeerID) *Manager {
	m := New(Config{RoomCode: "ABC234", PreferredID: preferred}, s.dialer, func() model.JoinMetadata {
		return model.JoinMetadata{Name: "An"}
	}, s.clock, testutil.NopLogger())
	m.Subscribe(func(e Event) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = append(s.events, e)
	})
	return m
}

func (s *ManagerSuite) ofType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (s *ManagerSuite) connected(id model.PeerID) *mocks.MockLink {
	link := mocks.NewMockLink(id, model.Message{Name: "An"})
	s.dialer.QueueLink(link)
	s.Require().NoError(s.manager.Connect(context.Background()))
	return link
}

func (s *ManagerSuite) waitForState(want State) {
	s.Eventually(func() bool { return s.manager.State() == want }, time.Second, 5*time.Millisecond)
}

func (s *ManagerSuite) TestConnect() {
	s.connected("p1")

	s.Equal(StateConnected, s.manager.State())
	s.Equal(model.PeerID("p1"), s.manager.ID())
	connected := s.ofType(EventConnected)
	s.Require().Len(connected, 1)
	s.Equal("An", connected[0].Welcome.Name)

	req := s.dialer.Requests()[0]
	s.Equal(model.RoomCode("ABC234"), req.RoomCode)
	s.Equal(model.PeerID("p1"), req.PreferredID)
	s.Equal("An", req.Hello.Name)
}

func (s *ManagerSuite) TestInitialFailureIsNotRetried() {
	s.dialer.QueueError(model.ErrRoomNotFound)

	err := s.manager.Connect(context.Background())

	s.ErrorIs(err, model.ErrRoomNotFound)
	s.Equal(StateDisconnected, s.manager.State())
	s.Len(s.dialer.Requests(), 1)
	s.Zero(s.clock.PendingTimers())
}

func (s *ManagerSuite) TestIdentityTakenRetriesWithFreshIdentity() {
	s.dialer.QueueError(model.ErrIdentityTaken)
	s.connected("p2")

	reqs := s.dialer.Requests()
	s.Require().Len(reqs, 2)
	s.Empty(reqs[1].PreferredID)
	s.Equal(model.PeerID("p1"), reqs[1].Hello.LastSessionID)
	s.Equal(model.PeerID("p2"), s.manager.ID())
}

func (s *ManagerSuite) TestIdentityTakenGivesUpAfterMaxAttempts() {
	for range MaxAttempts {
		s.dialer.QueueError(model.ErrIdentityTaken)
	}

	err := s.manager.Connect(context.Background())

	s.ErrorIs(err, model.ErrIdentityTaken)
	s.Len(s.dialer.Requests(), MaxAttempts)
}

func (s *ManagerSuite) TestMessagesArriveInOrder() {
	link := s.connected("p1")

	link.Push(model.NumberDrawnMessage(5, "năm"))
	link.Push(model.NumberDrawnMessage(6, "sáu"))
	link.Push(model.GameResetMessage())

	s.Eventually(func() bool { return len(s.ofType(EventMessage)) == 3 }, time.Second, 5*time.Millisecond)
	msgs := s.ofType(EventMessage)
	s.Equal(5, msgs[0].Message.Number)
	s.Equal(6, msgs[1].Message.Number)
	s.Equal(model.MsgGameReset, msgs[2].Message.Type)
}

func (s *ManagerSuite) TestReconnectsAfterDrop() {
	link := s.connected("p1")
	next := mocks.NewMockLink("p1", model.Message{Name: "An"})
	s.dialer.QueueLink(next)

	link.Drop()
	s.waitForState(StateReconnecting)
	s.clock.Advance(time.Second)

	s.Equal(StateConnected, s.manager.State())
	s.Len(s.ofType(EventReconnected), 1)
	s.Len(s.ofType(EventConnected), 1)
	reqs := s.dialer.Requests()
	s.Equal(model.PeerID("p1"), reqs[len(reqs)-1].PreferredID)
	s.Require().NoError(s.manager.Send(model.WinClaimMessage()))
	s.Len(next.SentOfType(model.MsgWinClaim), 1)
}

func (s *ManagerSuite) TestFailsAfterMaxAttempts() {
	link := s.connected("p1")

	link.Drop()
	s.waitForState(StateReconnecting)
	s.clock.Advance(time.Minute)

	s.Equal(StateFailed, s.manager.State())
	s.Len(s.dialer.Requests(), 1+MaxAttempts)
	disconnected := s.ofType(EventDisconnected)
	s.Require().Len(disconnected, 1)
	s.Error(disconnected[0].Err)
	s.ErrorIs(s.manager.Send(model.PingMessage()), model.ErrNotConnected)
}

func (s *ManagerSuite) TestBackoffSchedule() {
	link := s.connected("p1")

	link.Drop()
	s.waitForState(StateReconnecting)

	s.clock.Advance(999 * time.Millisecond)
	s.Len(s.dialer.Requests(), 1)
	s.clock.Advance(time.Millisecond)
	s.Len(s.dialer.Requests(), 2)
	s.clock.Advance(2 * time.Second)
	s.Len(s.dialer.Requests(), 3)
	s.clock.Advance(4 * time.Second)
	s.Len(s.dialer.Requests(), 4)
	s.clock.Advance(8 * time.Second)
	s.Len(s.dialer.Requests(), 5)
}

func (s *ManagerSuite) TestHeartbeatSendsPing() {
	link := s.connected("p1")

	s.clock.Advance(HeartbeatInterval)
	s.Len(link.SentOfType(model.MsgPing), 1)

	link.Push(model.PongMessage())
	s.Eventually(func() bool { return len(s.ofType(EventMessage)) == 1 }, time.Second, 5*time.Millisecond)
	s.clock.Advance(HeartbeatTimeout)

	s.Equal(StateConnected, s.manager.State())
	s.clock.Advance(HeartbeatInterval - HeartbeatTimeout)
	s.Len(link.SentOfType(model.MsgPing), 2)
}

func (s *ManagerSuite) TestSilentLinkIsTreatedAsDead() {
	link := s.connected("p1")

	s.clock.Advance(HeartbeatInterval)
	s.clock.Advance(HeartbeatTimeout)

	s.Equal(StateReconnecting, s.manager.State())
	s.True(link.Closed())
}

func (s *ManagerSuite) TestCloseIsTerminal() {
	link := s.connected("p1")

	s.manager.Close()

	s.Equal(StateDisconnected, s.manager.State())
	s.True(link.Closed())
	s.Zero(s.clock.PendingTimers())
	s.ErrorIs(s.manager.Send(model.PingMessage()), model.ErrNotConnected)
	s.ErrorIs(s.manager.Connect(context.Background()), model.ErrConnClosed)
	s.clock.Advance(time.Minute)
	s.Len(s.dialer.Requests(), 1)
}

func (s *ManagerSuite) TestUnsubscribe() {
	var count int
	var mu sync.Mutex
	unsubscribe := s.manager.Subscribe(func(Event) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})
	unsubscribe()
	unsubscribe()

	s.connected("p1")

	mu.Lock()
	defer mu.Unlock()
	s.Zero(count)
}
