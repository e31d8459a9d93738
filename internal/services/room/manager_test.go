package room

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/minhtien379/Loto/internal/dependencies/mocks"
	"github.com/minhtien379/Loto/internal/dependencies/random"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/auth"
	"github.com/minhtien379/Loto/internal/services/generator"
	"github.com/minhtien379/Loto/internal/services/session"
	"github.com/minhtien379/Loto/internal/storage/memory"
	"github.com/minhtien379/Loto/internal/testutil"
)

type ManagerSuite struct {
	suite.Suite
	ctx      context.Context
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	sessions *session.Store
	auth     *auth.Service
	manager  *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.sessions = session.New(memory.New(s.clock), s.clock, testutil.NopLogger())
	s.auth = auth.New(auth.Config{BcryptCost: bcrypt.MinCost})

	cfg := DefaultManagerConfig()
	cfg.RestoreRetryDelay = 0
	s.manager = NewManager(cfg, Deps{
		Clock:    s.clock,
		Random:   s.random,
		Sheets:   generator.New(random.NewSeeded(5), testutil.NopLogger()),
		Sessions: s.sessions,
		Logger:   testutil.NopLogger(),
	}, s.auth)
}

func (s *ManagerSuite) create(code model.RoomCode) (*Room, string) {
	s.random.QueueString(string(code))
	r, token, err := s.manager.CreateRoom(s.ctx)
	s.Require().NoError(err)
	return r, token
}

func (s *ManagerSuite) TestCreateRoom() {
	r, token := s.create("ABC234")

	s.Equal(model.RoomCode("ABC234"), r.Code())
	s.Equal(model.PeerID("loto-ABC234"), r.HostID())
	s.True(strings.HasPrefix(token, "ht_"))
	got, err := s.manager.Get("ABC234")
	s.Require().NoError(err)
	s.Same(r, got)
	s.NotNil(s.sessions.LoadHostState(s.ctx, "ABC234"))
}

func (s *ManagerSuite) TestCreateRoomSkipsCodesInUse() {
	s.create("AAAAAA")
	s.sessions.SaveHostState(s.ctx, model.HostState{RoomCode: "BBBBBB"})
	s.random.QueueString("AAAAAA", "BBBBBB", "bad", "CCCCCC")

	r, _, err := s.manager.CreateRoom(s.ctx)

	s.Require().NoError(err)
	s.Equal(model.RoomCode("CCCCCC"), r.Code())
}

func (s *ManagerSuite) TestCreateRoomGivesUpAfterFiveAttempts() {
	s.create("AAAAAA")
	s.random.QueueString("AAAAAA", "AAAAAA", "AAAAAA", "AAAAAA", "AAAAAA", "CCCCCC")

	_, _, err := s.manager.CreateRoom(s.ctx)

	s.ErrorIs(err, model.ErrRoomCodeTaken)
}

func (s *ManagerSuite) TestRestoreReattachesToLiveRoom() {
	r, token := s.create("ABC234")

	got, err := s.manager.RestoreRoom(s.ctx, "ABC234", token)

	s.Require().NoError(err)
	s.Same(r, got)
}

func (s *ManagerSuite) TestRestoreAfterClose() {
	r, token := s.create("ABC234")
	first, err := r.Draw()
	s.Require().NoError(err)
	s.clock.Advance(time.Second)
	second, err := r.Draw()
	s.Require().NoError(err)
	s.Require().NoError(r.SetVoiceMode(model.VoiceModeSystem))
	s.Require().NoError(s.manager.Close("ABC234"))

	restored, err := s.manager.RestoreRoom(s.ctx, "ABC234", token)

	s.Require().NoError(err)
	s.NotSame(r, restored)
	state := restored.Snapshot()
	s.Equal([]int{first.Number, second.Number}, state.Game.CalledNumbers)
	s.Equal(second.Number, state.Game.CurrentNumber)
	s.Equal(model.MaxNumber-2, state.Game.Remaining)
	s.Equal(model.VoiceModeSystem, state.VoiceMode)
	_, err = s.manager.Authorize("ABC234", token)
	s.NoError(err)
}

func (s *ManagerSuite) TestRestoreRejectsWrongToken() {
	_, token := s.create("ABC234")
	s.Require().NoError(s.manager.Close("ABC234"))

	_, err := s.manager.RestoreRoom(s.ctx, "ABC234", token+"x")

	s.ErrorIs(err, model.ErrInvalidHostToken)
}

func (s *ManagerSuite) TestRestoreWithoutSavedState() {
	_, err := s.manager.RestoreRoom(s.ctx, "ZZZZZZ", "ht_nothing")
	s.ErrorIs(err, model.ErrNoSavedState)

	_, err = s.manager.RestoreRoom(s.ctx, "nope", "ht_nothing")
	s.ErrorIs(err, model.ErrInvalidRoomCode)
}

func (s *ManagerSuite) TestRestoreGivesUpWhileAnotherHostHoldsTheCode() {
	s.create("ABC234")
	other, err := s.auth.IssueHostToken()
	s.Require().NoError(err)
	s.sessions.SaveHostState(s.ctx, model.HostState{RoomCode: "ABC234", HostTokenHash: other.Hash})

	_, err = s.manager.RestoreRoom(s.ctx, "ABC234", other.Token)

	s.ErrorIs(err, model.ErrRoomCodeTaken)
}

func (s *ManagerSuite) TestSavedStateAndDiscard() {
	_, token := s.create("ABC234")
	s.Require().NoError(s.manager.Close("ABC234"))

	state, err := s.manager.SavedState(s.ctx, "ABC234", token)
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ABC234"), state.RoomCode)

	s.ErrorIs(s.manager.DiscardSaved(s.ctx, "ABC234", "ht_wrong"), model.ErrInvalidHostToken)
	s.Require().NoError(s.manager.DiscardSaved(s.ctx, "ABC234", token))

	_, err = s.manager.RestoreRoom(s.ctx, "ABC234", token)
	s.ErrorIs(err, model.ErrNoSavedState)
}

func (s *ManagerSuite) TestAuthorize() {
	_, token := s.create("ABC234")

	_, err := s.manager.Authorize("ABC234", token)
	s.NoError(err)
	_, err = s.manager.Authorize("ABC234", "ht_wrong")
	s.ErrorIs(err, model.ErrInvalidHostToken)
	_, err = s.manager.Authorize("ZZZZZZ", token)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ManagerSuite) TestCloseAll() {
	a, _ := s.create("AAAAAA")
	b, _ := s.create("BBBBBB")

	s.manager.CloseAll()

	s.Zero(s.manager.Len())
	s.True(a.Closed())
	s.True(b.Closed())
	s.ErrorIs(s.manager.Close("AAAAAA"), model.ErrRoomNotFound)
}
