package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/minhtien379/Loto/internal/dependencies/mocks"
	"github.com/minhtien379/Loto/internal/model"
)

type StorageSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	path    string
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.path = filepath.Join(s.T().TempDir(), "state", "loto.json")
	st, err := New(s.path, s.clock)
	s.Require().NoError(err)
	s.storage = st
	s.ctx = context.Background()
}

func (s *StorageSuite) TestPutAndGetSurvivesReopen() {
	s.Require().NoError(s.storage.Put(s.ctx, "k", []byte(`{"a":1}`), time.Hour))

	reopened, err := New(s.path, s.clock)
	s.Require().NoError(err)
	got, err := reopened.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.JSONEq(`{"a":1}`, string(got))
}

func (s *StorageSuite) TestGetMissingFile() {
	_, err := s.storage.Get(s.ctx, "k")
	s.ErrorIs(err, model.ErrTokenNotFound)
}

func (s *StorageSuite) TestExpiry() {
	s.Require().NoError(s.storage.Put(s.ctx, "k", []byte(`1`), time.Hour))
	s.clock.Advance(time.Hour)

	_, err := s.storage.Get(s.ctx, "k")
	s.ErrorIs(err, model.ErrTokenNotFound)
}

func (s *StorageSuite) TestDeleteKeepsOtherKeys() {
	s.Require().NoError(s.storage.Put(s.ctx, "a", []byte(`1`), 0))
	s.Require().NoError(s.storage.Put(s.ctx, "b", []byte(`2`), 0))
	s.Require().NoError(s.storage.Delete(s.ctx, "a"))
	s.Require().NoError(s.storage.Delete(s.ctx, "missing"))

	_, err := s.storage.Get(s.ctx, "a")
	s.ErrorIs(err, model.ErrTokenNotFound)
	got, err := s.storage.Get(s.ctx, "b")
	s.Require().NoError(err)
	s.Equal("2", string(got))
}

func (s *StorageSuite) TestRejectsNonJSON() {
	s.Error(s.storage.Put(s.ctx, "k", []byte("not json"), 0))
}

func (s *StorageSuite) TestCorruptFile() {
	s.Require().NoError(os.WriteFile(s.path, []byte("{broken"), 0o600))

	_, err := s.storage.Get(s.ctx, "k")
	s.Error(err)
	s.NotErrorIs(err, model.ErrTokenNotFound)
}

func (s *StorageSuite) TestEmptyPath() {
	_, err := New("", s.clock)
	s.Error(err)
}
