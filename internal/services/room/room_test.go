package room

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/minhtien379/Loto/internal/dependencies/mocks"
	"github.com/minhtien379/Loto/internal/dependencies/random"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/caller"
	"github.com/minhtien379/Loto/internal/services/generator"
	"github.com/minhtien379/Loto/internal/services/session"
	"github.com/minhtien379/Loto/internal/storage"
	"github.com/minhtien379/Loto/internal/storage/memory"
	"github.com/minhtien379/Loto/internal/testutil"
	"github.com/minhtien379/Loto/internal/transport"
)

const testCode model.RoomCode = "ABC234"

type RoomSuite struct {
	suite.Suite
	clock     *mocks.MockClock
	sessions  *session.Store
	generator *generator.Service
	room      *Room

	mu     sync.Mutex
	events []model.Event
}

func TestRoomSuite(t *testing.T) {
	suite.Run(t, new(RoomSuite))
}

func (s *RoomSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.sessions = session.New(memory.New(s.clock), s.clock, testutil.NopLogger())
	s.generator = generator.New(random.NewSeeded(7), testutil.NopLogger())
	s.room = New(testCode, "hash", DefaultConfig(), Deps{
		Clock:    s.clock,
		Random:   random.NewSeeded(11),
		Sheets:   s.generator,
		Sessions: s.sessions,
		Logger:   testutil.NopLogger(),
	})
	s.events = nil
	s.room.Subscribe(func(e model.Event) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = append(s.events, e)
	})
}

func (s *RoomSuite) connect(id model.PeerID, name string, sheets ...model.Sheet) *mocks.MockConn {
	conn := mocks.NewMockConn(id)
	_, err := s.room.Connect(conn, model.JoinMetadata{Name: name, Sheets: sheets})
	s.Require().NoError(err)
	return conn
}

func (s *RoomSuite) sheet() model.Sheet {
	return s.generator.GenerateSheet()
}

func (s *RoomSuite) eventsOfType(t model.EventType) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// startWithCalled restores the room so that the given numbers have been drawn
func (s *RoomSuite) startWithCalled(numbers ...int) {
	s.room.Restore(model.HostState{RoomCode: testCode, CalledNumbers: numbers})
}

func (s *RoomSuite) claim(id model.PeerID) {
	s.room.HandleMessage(id, model.WinClaimMessage())
}

// Connections

func (s *RoomSuite) TestConnectSendsWelcome() {
	sheet := s.sheet()
	conn := s.connect("p1", "An", sheet)

	welcome := conn.Last()
	s.Equal(model.MsgWelcome, welcome.Type)
	s.Equal(model.PeerID("p1"), welcome.PlayerID)
	s.Equal("An", welcome.Name)
	s.Equal(model.SheetList{sheet}, welcome.Sheets)
	s.Require().NotNil(welcome.GameState)
	s.Empty(welcome.GameState.CalledNumbers)
	s.False(welcome.GameState.GameStarted)
	s.Equal(model.VoiceModeReal, welcome.VoiceMode)
	s.Len(s.eventsOfType(model.EventPlayerJoined), 1)
}

func (s *RoomSuite) TestWelcomeCarriesCalledNumbers() {
	s.startWithCalled(4, 17, 90)

	conn := s.connect("p1", "An")

	welcome := conn.Last()
	s.Equal([]int{4, 17, 90}, welcome.GameState.CalledNumbers)
	s.True(welcome.GameState.GameStarted)
}

func (s *RoomSuite) TestIdentityHeldByOpenConnectionIsRejected() {
	s.connect("p1", "An")

	_, err := s.room.Connect(mocks.NewMockConn("p1"), model.JoinMetadata{Name: "Imposter"})

	s.ErrorIs(err, model.ErrIdentityTaken)
}

func (s *RoomSuite) TestReconnectKeepsNameAndSheets() {
	first := s.connect("p1", "An")
	sheets := first.Last().Sheets
	s.room.Disconnect(first)
	s.startWithCalled(1)

	second := s.connect("p1", "")

	s.Equal("An", second.Last().Name)
	s.Equal(sheets, second.Last().Sheets)
	s.Len(s.eventsOfType(model.EventPlayerReconnected), 1)
	s.Len(s.eventsOfType(model.EventPlayerLeft), 1)
}

func (s *RoomSuite) TestStaleDisconnectIsIgnored() {
	first := s.connect("p1", "An")
	s.room.Disconnect(first)
	second := s.connect("p1", "An")

	s.room.Disconnect(first)

	s.True(s.room.IdentityInUse("p1"))
	s.room.Disconnect(second)
	s.False(s.room.IdentityInUse("p1"))
}

func (s *RoomSuite) TestMigrationRetiresOldConnection() {
	first := s.connect("p1", "An")
	sheets := first.Last().Sheets

	second := mocks.NewMockConn("p2")
	res, err := s.room.Connect(second, model.JoinMetadata{LastSessionID: "p1"})
	s.Require().NoError(err)
	s.Equal("An", res.Name)
	s.Equal([]model.Sheet(sheets), res.Sheets)

	s.True(first.Closed())
	s.False(s.room.IdentityInUse("p1"))
	s.True(s.room.IdentityInUse("p2"))

	s.room.Disconnect(first)
	s.Empty(s.eventsOfType(model.EventPlayerLeft))

	players := s.room.Snapshot().Players
	s.Require().Len(players, 1)
	s.Equal(model.PeerID("p2"), players[0].ID)
	s.True(players[0].Connected)
}

func (s *RoomSuite) TestMessagesFromUnknownIdentityAreIgnored() {
	conn := s.connect("p1", "An")
	conn.Clear()

	s.room.HandleMessage("ghost", model.PingMessage())

	s.Empty(conn.Sent())
}

// Drawing

func (s *RoomSuite) TestDrawBroadcastsToEveryone() {
	a := s.connect("p1", "An")
	b := s.connect("p2", "Binh")

	res, err := s.room.Draw()
	s.Require().NoError(err)

	s.Equal(caller.Words(res.Number), res.Words)
	s.Equal(1, res.Called)
	s.Equal(89, res.Remaining)
	for _, conn := range []*mocks.MockConn{a, b} {
		msg := conn.Last()
		s.Equal(model.MsgNumberDrawn, msg.Type)
		s.Equal(res.Number, msg.Number)
		s.Equal(res.Words, msg.Text)
	}
	s.Len(s.eventsOfType(model.EventNumberDrawn), 1)
}

func (s *RoomSuite) TestDrawWaitsForAnnouncement() {
	_, err := s.room.Draw()
	s.Require().NoError(err)

	_, err = s.room.Draw()
	s.ErrorIs(err, model.ErrDrawInProgress)

	s.clock.Advance(400 * time.Millisecond)
	_, err = s.room.Draw()
	s.NoError(err)
}

func (s *RoomSuite) TestDrawPersistsHostState() {
	res, err := s.room.Draw()
	s.Require().NoError(err)

	state := s.sessions.LoadHostState(context.Background(), testCode)
	s.Require().NotNil(state)
	s.Equal([]int{res.Number}, state.CalledNumbers)
	s.Equal(res.Number, state.CurrentNumber)
	s.Equal("hash", state.HostTokenHash)
}

// blockingStorage holds the first host-state write until release is closed
type blockingStorage struct {
	storage.Storage
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingStorage) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.HasPrefix(key, storage.HostStateKey("")) {
		b.once.Do(func() {
			close(b.started)
			<-b.release
		})
	}
	return b.Storage.Put(ctx, key, value, ttl)
}

func (s *RoomSuite) TestSlowSaveIsNotOverwrittenByOlderState() {
	store := &blockingStorage{
		Storage: memory.New(s.clock),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	sessions := session.New(store, s.clock, testutil.NopLogger())
	rm := New(testCode, "hash", DefaultConfig(), Deps{
		Clock:    s.clock,
		Random:   random.NewSeeded(11),
		Sheets:   s.generator,
		Sessions: sessions,
		Logger:   testutil.NopLogger(),
	})

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, err := rm.Draw()
		s.NoError(err)
	}()
	<-store.started

	s.clock.Advance(time.Second)
	_, err := rm.Draw()
	s.Require().NoError(err)

	close(store.release)
	<-firstDone

	live := rm.Snapshot().Game.CalledNumbers
	s.Require().Len(live, 2)
	saved := sessions.LoadHostState(context.Background(), testCode)
	s.Require().NotNil(saved)
	s.Equal(live, saved.CalledNumbers)
}

func (s *RoomSuite) TestDrawAllNumbers() {
	seen := make(map[int]bool)
	for i := 0; i < model.MaxNumber; i++ {
		res, err := s.room.Draw()
		s.Require().NoError(err)
		s.False(seen[res.Number])
		seen[res.Number] = true
		s.clock.Advance(400 * time.Millisecond)
	}

	_, err := s.room.Draw()
	s.ErrorIs(err, model.ErrNoNumbersRemaining)
}

func (s *RoomSuite) TestRestoredNumbersAreNotDrawnAgain() {
	s.startWithCalled(1, 2, 3)

	for i := 0; i < model.MaxNumber-3; i++ {
		res, err := s.room.Draw()
		s.Require().NoError(err)
		s.Greater(res.Number, 3)
		s.clock.Advance(400 * time.Millisecond)
	}
}

// Tickets

func (s *RoomSuite) TestTicketUpdateBeforeStart() {
	s.connect("p1", "An")
	replacement := []model.Sheet{s.sheet(), s.sheet()}

	s.room.HandleMessage("p1", model.TicketUpdateMessage(replacement))

	players := s.room.Snapshot().Players
	s.Require().Len(players, 1)
	s.Equal(replacement, players[0].Sheets)
	s.Len(s.eventsOfType(model.EventTicketUpdated), 1)
}

func (s *RoomSuite) TestEmptyTicketUpdateFailsValidation() {
	original := s.sheet()
	s.connect("p1", "An", original)

	msg, err := model.DecodeMessage([]byte(`{"type":"ticketUpdate","sheets":[]}`))
	s.Require().NoError(err)
	s.room.HandleMessage("p1", msg)

	players := s.room.Snapshot().Players
	s.Require().Len(players, 1)
	s.Equal([]model.Sheet{original}, players[0].Sheets)
	s.Empty(s.eventsOfType(model.EventTicketUpdated))
}

func (s *RoomSuite) TestTicketUpdateAfterStartIsIgnored() {
	original := s.sheet()
	s.connect("p1", "An", original)
	_, err := s.room.Draw()
	s.Require().NoError(err)

	s.room.HandleMessage("p1", model.TicketUpdateMessage([]model.Sheet{s.sheet()}))

	s.Equal([]model.Sheet{original}, s.room.Snapshot().Players[0].Sheets)
	s.Empty(s.eventsOfType(model.EventTicketUpdated))
}

// Claims

func (s *RoomSuite) TestValidClaimConfirmedWhenWindowCloses() {
	sheet := s.sheet()
	s.startWithCalled(sheet[0].Row(0)...)
	winner := s.connect("p1", "An", sheet)
	other := s.connect("p2", "Binh")

	s.claim("p1")
	s.clock.Advance(1999 * time.Millisecond)
	s.Empty(other.SentOfType(model.MsgWinConfirmed))

	s.clock.Advance(time.Millisecond)
	for _, conn := range []*mocks.MockConn{winner, other} {
		confirmed := conn.SentOfType(model.MsgWinConfirmed)
		s.Require().Len(confirmed, 1)
		s.Equal("An", confirmed[0].WinnerName)
	}
	s.Len(s.eventsOfType(model.EventWinConfirmed), 1)
}

func (s *RoomSuite) TestSimultaneousWinnersShareOneAnnouncement() {
	first, second := s.sheet(), s.sheet()
	called := append(first[0].Row(0), second[1].Row(2)...)
	s.startWithCalled(called...)
	conn := s.connect("p1", "An", first)
	s.connect("p2", "Binh", second)

	s.claim("p1")
	s.clock.Advance(500 * time.Millisecond)
	s.claim("p2")
	s.clock.Advance(1500 * time.Millisecond)

	confirmed := conn.SentOfType(model.MsgWinConfirmed)
	s.Require().Len(confirmed, 1)
	s.Equal("An and Binh", confirmed[0].WinnerName)
}

func (s *RoomSuite) TestFalseClaimIsRejectedPublicly() {
	s.startWithCalled(1)
	claimant := s.connect("p1", "An", s.sheet())
	other := s.connect("p2", "Binh")

	s.claim("p1")

	s.Len(claimant.SentOfType(model.MsgWinRejected), 1)
	s.Empty(other.SentOfType(model.MsgWinRejected))
	toasts := other.SentOfType(model.MsgToast)
	s.Require().Len(toasts, 1)
	s.Equal("⚠️ An claimed a false win!", toasts[0].Message)
	s.Equal(model.ToastError, toasts[0].Style)
	s.Len(s.eventsOfType(model.EventClaimRejected), 1)
}

func (s *RoomSuite) TestClaimCooldown() {
	s.startWithCalled(1)
	conn := s.connect("p1", "An", s.sheet())

	s.claim("p1")
	s.claim("p1")

	s.Len(conn.SentOfType(model.MsgWinRejected), 1)
	last := conn.Last()
	s.Equal(model.MsgToast, last.Type)
	s.Equal(model.ToastWarning, last.Style)

	s.clock.Advance(5 * time.Second)
	s.claim("p1")
	s.Len(conn.SentOfType(model.MsgWinRejected), 2)
}

func (s *RoomSuite) TestResetCancelsPendingWin() {
	sheet := s.sheet()
	s.startWithCalled(sheet[0].Row(0)...)
	conn := s.connect("p1", "An", sheet)
	before := s.room.Snapshot().Game.RoundID

	s.claim("p1")
	roundID, err := s.room.Reset()
	s.Require().NoError(err)
	s.clock.Advance(3 * time.Second)

	s.Empty(conn.SentOfType(model.MsgWinConfirmed))
	s.Len(conn.SentOfType(model.MsgGameReset), 1)
	s.NotEqual(before, roundID)
	snap := s.room.Snapshot()
	s.Empty(snap.Game.CalledNumbers)
	s.Empty(snap.PendingWinners)
	s.Equal(model.MaxNumber, snap.Game.Remaining)
}

func (s *RoomSuite) TestResetClearsCooldowns() {
	s.startWithCalled(1)
	conn := s.connect("p1", "An", s.sheet())
	s.claim("p1")

	_, err := s.room.Reset()
	s.Require().NoError(err)
	s.startWithCalled(2)
	s.claim("p1")

	s.Len(conn.SentOfType(model.MsgWinRejected), 2)
}

// Waiting, chatter

func (s *RoomSuite) TestWaitSignalBroadcastsToast() {
	s.connect("p1", "An")
	other := s.connect("p2", "Binh")

	s.room.HandleMessage("p1", model.WaitSignalMessage("p1"))
	s.room.HandleMessage("p1", model.WaitSignalMessage("p1"))

	toasts := other.SentOfType(model.MsgToast)
	s.Require().Len(toasts, 1)
	s.Equal("⚠️ An is waiting!", toasts[0].Message)
	s.Equal(model.ToastWarning, toasts[0].Style)
	s.True(s.room.Snapshot().Players[0].Waiting)
}

func (s *RoomSuite) TestEmoteSkipsSender() {
	sender := s.connect("p1", "An")
	other := s.connect("p2", "Binh")
	sender.Clear()

	s.room.HandleMessage("p1", model.EmoteMessage("🎉", "spoofed"))
	s.room.HandleMessage("p1", model.EmoteMessage("🎉", "p1"))

	s.Empty(sender.Sent())
	emotes := other.SentOfType(model.MsgEmote)
	s.Require().Len(emotes, 1)
	s.Equal(model.PeerID("p1"), emotes[0].SenderID)

	s.clock.Advance(time.Second)
	s.room.HandleMessage("p1", model.EmoteMessage("🔥", ""))
	s.Len(other.SentOfType(model.MsgEmote), 2)
}

func (s *RoomSuite) TestShoutIsCapped() {
	s.connect("p1", "An")
	other := s.connect("p2", "Binh")

	s.room.HandleMessage("p1", model.ShoutMessage("  "+strings.Repeat("á", 200)+"  ", ""))

	shouts := other.SentOfType(model.MsgShout)
	s.Require().Len(shouts, 1)
	s.Equal(strings.Repeat("á", 140), shouts[0].Text)
}

func (s *RoomSuite) TestPingIsAnswered() {
	conn := s.connect("p1", "An")

	s.room.HandleMessage("p1", model.PingMessage())

	s.Equal(model.MsgPong, conn.Last().Type)
}

// Host operations

func (s *RoomSuite) TestAutoDraw() {
	s.Error(s.room.StartAutoDraw(100 * time.Millisecond))
	s.Require().NoError(s.room.StartAutoDraw(time.Second))
	s.Equal(int64(1000), s.room.Snapshot().AutoDrawMs)

	s.clock.Advance(time.Second)
	s.Len(s.room.Snapshot().Game.CalledNumbers, 1)
	s.clock.Advance(time.Second)
	s.Len(s.room.Snapshot().Game.CalledNumbers, 2)

	s.True(s.room.StopAutoDraw())
	s.False(s.room.StopAutoDraw())
	s.clock.Advance(5 * time.Second)
	s.Len(s.room.Snapshot().Game.CalledNumbers, 2)
	s.Len(s.eventsOfType(model.EventAutoDrawStopped), 1)
}

func (s *RoomSuite) TestAutoDrawStopsOnValidClaim() {
	sheet := s.sheet()
	s.startWithCalled(sheet[0].Row(0)...)
	s.connect("p1", "An", sheet)
	s.Require().NoError(s.room.StartAutoDraw(time.Second))

	s.claim("p1")

	s.Zero(s.room.Snapshot().AutoDrawMs)
	stopped := s.eventsOfType(model.EventAutoDrawStopped)
	s.Require().Len(stopped, 1)
	s.Equal(model.AutoDrawStoppedPayload{Reason: "win claimed"}, stopped[0].Payload)
}

func (s *RoomSuite) TestSetVoiceMode() {
	conn := s.connect("p1", "An")

	s.ErrorIs(s.room.SetVoiceMode("robot"), model.ErrInvalidVoiceMode)
	s.Require().NoError(s.room.SetVoiceMode(model.VoiceModeGoogle))

	s.Equal(model.VoiceModeMessage(model.VoiceModeGoogle), conn.Last())
	state := s.sessions.LoadHostState(context.Background(), testCode)
	s.Require().NotNil(state)
	s.Equal(model.VoiceModeGoogle, state.VoiceMode)
}

func (s *RoomSuite) TestBroadcastToast() {
	conn := s.connect("p1", "An")

	s.Error(s.room.BroadcastToast("  ", model.ToastInfo))
	s.Error(s.room.BroadcastToast("hi", "loud"))
	s.Require().NoError(s.room.BroadcastToast("Break time", ""))

	s.Equal(model.ToastMessage("Break time", model.ToastInfo), conn.Last())
}

func (s *RoomSuite) TestHostChatterUsesHostSender() {
	conn := s.connect("p1", "An")

	s.Require().NoError(s.room.HostEmote("👏"))
	s.Equal(model.EmoteMessage("👏", model.HostSenderID), conn.Last())
	s.Require().NoError(s.room.HostShout("Last number!"))
	s.Equal(model.ShoutMessage("Last number!", model.HostSenderID), conn.Last())
}

func (s *RoomSuite) TestCloseDisconnectsEveryone() {
	conn := s.connect("p1", "An")

	s.room.Close()

	s.True(conn.Closed())
	s.Equal(transport.CloseGoingAway, conn.CloseCode)
	s.True(s.room.Closed())
	_, err := s.room.Draw()
	s.ErrorIs(err, model.ErrRoomNotFound)
	_, err = s.room.Connect(mocks.NewMockConn("p2"), model.JoinMetadata{})
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.Len(s.eventsOfType(model.EventRoomClosed), 1)
}

func (s *RoomSuite) TestSubscribersRunOutsideTheLock() {
	var summaries []Summary
	s.room.Subscribe(func(e model.Event) {
		if e.Type == model.EventPlayerJoined {
			summaries = append(summaries, s.room.Summary())
		}
	})

	s.connect("p1", "An")

	s.Require().Len(summaries, 1)
	s.Equal(1, summaries[0].Players)
}
