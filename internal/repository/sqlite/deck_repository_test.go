package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mnarita/kioku/internal/models"
	"github.com/mnarita/kioku/internal/repository"
	"github.com/mnarita/kioku/internal/repository/sqlite"
	"github.com/mnarita/kioku/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type DeckRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.DeckRepository
	ctx  context.Context
}

func (s *DeckRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewDeckRepository(s.db)
	s.ctx = context.Background()
}

func (s *DeckRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *DeckRepositorySuite) TestInsertAndGet() {
	id, err := s.repo.Insert(s.ctx, "kanji", []byte{0x4B, 0x44, 0x4B, 0x46})
	s.Require().NoError(err)
	s.Require().Positive(id)

	d, err := s.repo.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(d)
	s.Equal(id, d.ID)
	s.Equal("kanji", d.Name)
	s.Equal([]byte{0x4B, 0x44, 0x4B, 0x46}, d.Payload)
	s.False(d.CreatedAt.IsZero())
	s.False(d.UpdatedAt.IsZero())
}

func (s *DeckRepositorySuite) TestGetMissingReturnsNil() {
	d, err := s.repo.Get(s.ctx, 12345)
	s.Require().NoError(err)
	s.Nil(d)
}

func (s *DeckRepositorySuite) TestListWithFilter() {
	_, err := s.repo.Insert(s.ctx, "vocab", []byte{1})
	s.Require().NoError(err)
	_, err = s.repo.Insert(s.ctx, "kanji", []byte{2})
	s.Require().NoError(err)
	_, err = s.repo.Insert(s.ctx, "vocab", []byte{3})
	s.Require().NoError(err)

	decks, err := s.repo.List(s.ctx, models.DeckFilter{Name: "vocab"})
	s.Require().NoError(err)
	s.Len(decks, 2)
	for _, d := range decks {
		s.Equal("vocab", d.Name)
	}
}

func (s *DeckRepositorySuite) TestListOrderAndPagination() {
	for _, name := range []string{"beta", "alpha", "gamma"} {
		_, err := s.repo.Insert(s.ctx, name, []byte{1})
		s.Require().NoError(err)
	}

	decks, err := s.repo.List(s.ctx, models.DeckFilter{OrderBy: "name"})
	s.Require().NoError(err)
	s.Require().Len(decks, 3)
	s.Equal("alpha", decks[0].Name)
	s.Equal("beta", decks[1].Name)
	s.Equal("gamma", decks[2].Name)

	decks, err = s.repo.List(s.ctx, models.DeckFilter{OrderBy: "name", OrderDir: "DESC", Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(decks, 1)
	s.Equal("gamma", decks[0].Name)

	decks, err = s.repo.List(s.ctx, models.DeckFilter{OrderBy: "name", Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(decks, 1)
	s.Equal("beta", decks[0].Name)
}

func (s *DeckRepositorySuite) TestCount() {
	n, err := s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)

	_, err = s.repo.Insert(s.ctx, "vocab", []byte{1})
	s.Require().NoError(err)

	n, err = s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *DeckRepositorySuite) TestUpdate() {
	id, err := s.repo.Insert(s.ctx, "vocab", []byte{1})
	s.Require().NoError(err)

	err = s.repo.Update(s.ctx, id, "vocab2", []byte{9, 9})
	s.Require().NoError(err)

	d, err := s.repo.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("vocab2", d.Name)
	s.Equal([]byte{9, 9}, d.Payload)
}

func (s *DeckRepositorySuite) TestUpdateMissing() {
	err := s.repo.Update(s.ctx, 12345, "nope", []byte{1})
	s.ErrorIs(err, sql.ErrNoRows)
}

func (s *DeckRepositorySuite) TestDelete() {
	id, err := s.repo.Insert(s.ctx, "vocab", []byte{1})
	s.Require().NoError(err)

	s.Require().NoError(s.repo.Delete(s.ctx, id))

	d, err := s.repo.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Nil(d)

	// Deleting an absent row is not an error.
	s.NoError(s.repo.Delete(s.ctx, id))
}

func TestDeckRepositorySuite(t *testing.T) {
	suite.Run(t, new(DeckRepositorySuite))
}
