package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/minhtien379/Loto/internal/dependencies/mocks"
	"github.com/minhtien379/Loto/internal/dependencies/random"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/generator"
	"github.com/minhtien379/Loto/internal/storage"
	"github.com/minhtien379/Loto/internal/storage/memory"
	"github.com/minhtien379/Loto/internal/testutil"
)

type StoreSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	storage *memory.Storage
	store   *Store
	sheets  []model.Sheet
	ctx     context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.storage = memory.New(s.clock)
	s.store = New(s.storage, s.clock, testutil.NopLogger())
	sheets, err := generator.New(random.NewSeeded(3), testutil.NopLogger()).GenerateSheets(2)
	s.Require().NoError(err)
	s.sheets = sheets
	s.ctx = context.Background()
}

func (s *StoreSuite) putRaw(key string, value string) {
	s.Require().NoError(s.storage.Put(s.ctx, key, []byte(value), 0))
}

func (s *StoreSuite) exists(key string) bool {
	_, err := s.storage.Get(s.ctx, key)
	return err == nil
}

// Sessions

func (s *StoreSuite) TestSessionRoundTrip() {
	s.store.SaveSession(s.ctx, "default", model.Session{
		RoomCode:   "ABC123",
		PlayerName: "An",
		Sheets:     s.sheets,
		LastPeerID: "peer-1",
	})

	got := s.store.LoadSession(s.ctx, "default")
	s.Require().NotNil(got)
	s.Equal(model.RoomCode("ABC123"), got.RoomCode)
	s.Equal("An", got.PlayerName)
	s.Equal(s.sheets, got.Sheets)
	s.Equal(model.PeerID("peer-1"), got.LastPeerID)
	s.True(s.clock.Now().Equal(got.Timestamp))
}

func (s *StoreSuite) TestSessionIsVersioned() {
	s.store.SaveSession(s.ctx, "default", model.Session{RoomCode: "ABC123"})

	raw, err := s.storage.Get(s.ctx, storage.SessionKey("default"))
	s.Require().NoError(err)
	var env map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(raw, &env))
	s.JSONEq(`1`, string(env["v"]))
	s.JSONEq(`"session"`, string(env["kind"]))
}

func (s *StoreSuite) TestScopesAreIndependent() {
	s.store.SaveSession(s.ctx, "a", model.Session{RoomCode: "AAAAAA"})
	s.store.SaveSession(s.ctx, "b", model.Session{RoomCode: "BBBBBB"})

	s.Equal(model.RoomCode("AAAAAA"), s.store.LoadSession(s.ctx, "a").RoomCode)
	s.Equal(model.RoomCode("BBBBBB"), s.store.LoadSession(s.ctx, "b").RoomCode)
}

func (s *StoreSuite) TestMissingSessionIsNil() {
	s.Nil(s.store.LoadSession(s.ctx, "default"))
}

func (s *StoreSuite) TestSessionExpiresAfterAnHour() {
	s.store.SaveSession(s.ctx, "default", model.Session{RoomCode: "ABC123"})

	s.clock.Advance(59 * time.Minute)
	s.NotNil(s.store.LoadSession(s.ctx, "default"))

	s.clock.Advance(2 * time.Minute)
	s.Nil(s.store.LoadSession(s.ctx, "default"))
}

func (s *StoreSuite) TestExpiredLegacySessionIsCleared() {
	key := storage.SessionKey("default")
	stamp := s.clock.Now().Add(-61 * time.Minute).UnixMilli()
	s.putRaw(key, `{"roomCode":"ABC123","playerName":"An","timestamp":`+jsonInt(stamp)+`}`)

	s.Nil(s.store.LoadSession(s.ctx, "default"))
	s.False(s.exists(key))
}

func (s *StoreSuite) TestMalformedSessionIsCleared() {
	key := storage.SessionKey("default")
	for _, raw := range []string{
		`{not json`,
		`{"v":2,"kind":"session","data":{"roomCode":"ABC123"}}`,
		`{"v":1,"kind":"host","data":{"roomCode":"ABC123"}}`,
		`{"v":1,"kind":"session","data":{"roomCode":""}}`,
		`{"roomCode":"ABC123"}`,
	} {
		s.putRaw(key, raw)
		s.Nil(s.store.LoadSession(s.ctx, "default"), raw)
		s.False(s.exists(key), raw)
	}
}

func (s *StoreSuite) TestLegacySessionWithSheetList() {
	sheets, _ := json.Marshal(s.sheets)
	stamp := s.clock.Now().Add(-10 * time.Minute).UnixMilli()
	s.putRaw(storage.SessionKey("default"),
		`{"roomCode":"abc123","playerName":"An","playerSheets":`+string(sheets)+
			`,"peerId":"old-peer","timestamp":`+jsonInt(stamp)+`}`)

	got := s.store.LoadSession(s.ctx, "default")
	s.Require().NotNil(got)
	s.Equal(model.RoomCode("ABC123"), got.RoomCode)
	s.Equal(s.sheets, got.Sheets)
	s.Equal(model.PeerID("old-peer"), got.LastPeerID)
	s.Equal(stamp, got.Timestamp.UnixMilli())
}

func (s *StoreSuite) TestLegacySessionWithSingleTicket() {
	single, _ := json.Marshal(s.sheets[0])
	stamp := s.clock.Now().UnixMilli()
	s.putRaw(storage.SessionKey("default"),
		`{"roomCode":"ABC123","playerName":"An","playerTicket":`+string(single)+`,"timestamp":`+jsonInt(stamp)+`}`)

	got := s.store.LoadSession(s.ctx, "default")
	s.Require().NotNil(got)
	s.Equal([]model.Sheet{s.sheets[0]}, got.Sheets)
}

func (s *StoreSuite) TestClearSession() {
	s.store.SaveSession(s.ctx, "default", model.Session{RoomCode: "ABC123"})
	s.store.ClearSession(s.ctx, "default")

	s.Nil(s.store.LoadSession(s.ctx, "default"))
}

// Host state

func (s *StoreSuite) TestHostStateRoundTrip() {
	s.store.SaveHostState(s.ctx, model.HostState{
		RoomCode:      "ABC123",
		RoundID:       "round",
		CalledNumbers: []int{4, 8, 15},
		CurrentNumber: 15,
		VoiceMode:     model.VoiceModeGoogle,
		HostTokenHash: "hash",
	})

	got := s.store.LoadHostState(s.ctx, "ABC123")
	s.Require().NotNil(got)
	s.Equal([]int{4, 8, 15}, got.CalledNumbers)
	s.Equal(15, got.CurrentNumber)
	s.Equal(model.VoiceModeGoogle, got.VoiceMode)
	s.Equal("hash", got.HostTokenHash)
	s.Equal(model.RoundID("round"), got.RoundID)
}

func (s *StoreSuite) TestHostStateExpiresAfterTwoHours() {
	s.store.SaveHostState(s.ctx, model.HostState{RoomCode: "ABC123"})

	s.clock.Advance(119 * time.Minute)
	s.NotNil(s.store.LoadHostState(s.ctx, "ABC123"))

	s.clock.Advance(2 * time.Minute)
	s.Nil(s.store.LoadHostState(s.ctx, "ABC123"))
}

func (s *StoreSuite) TestLegacyHostState() {
	stamp := s.clock.Now().Add(-time.Hour).UnixMilli()
	s.putRaw(storage.HostStateKey("ABC123"),
		`{"roomCode":"ABC123","calledNumbers":[1,2,3],"currentNumber":3,"timestamp":`+jsonInt(stamp)+`}`)

	got := s.store.LoadHostState(s.ctx, "ABC123")
	s.Require().NotNil(got)
	s.Equal([]int{1, 2, 3}, got.CalledNumbers)
	s.Equal(3, got.CurrentNumber)
}

func (s *StoreSuite) TestMalformedHostStateIsCleared() {
	key := storage.HostStateKey("ABC123")
	s.putRaw(key, `{"v":1,"kind":"host","data":[]}`)

	s.Nil(s.store.LoadHostState(s.ctx, "ABC123"))
	s.False(s.exists(key))
}

func (s *StoreSuite) TestClearHostState() {
	s.store.SaveHostState(s.ctx, model.HostState{RoomCode: "ABC123"})
	s.store.ClearHostState(s.ctx, "ABC123")

	s.Nil(s.store.LoadHostState(s.ctx, "ABC123"))
}

// I/O failures

type failingStorage struct{ memory.Storage }

func (f *failingStorage) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("disk full")
}

func (f *failingStorage) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("unreachable")
}

func (s *StoreSuite) TestStorageErrorsAreSwallowed() {
	store := New(&failingStorage{}, s.clock, testutil.NopLogger())

	s.NotPanics(func() {
		store.SaveSession(s.ctx, "default", model.Session{RoomCode: "ABC123"})
	})
	s.Nil(store.LoadSession(s.ctx, "default"))
	s.Nil(store.LoadHostState(s.ctx, "ABC123"))
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
