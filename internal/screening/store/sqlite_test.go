package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
)

type SQLiteSuite struct {
	suite.Suite
	store *SQLiteStore
	ctx   context.Context
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}

func (s *SQLiteSuite) SetupTest() {
	s.ctx = context.Background()
	st, err := OpenSQLite(s.ctx, filepath.Join(s.T().TempDir(), "entities.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = st.Close() })

	records, _, err := ReadNDJSON(strings.NewReader(sampleNDJSON), LoadOptions{})
	s.Require().NoError(err)
	n, err := st.Import(s.ctx, records)
	s.Require().NoError(err)
	s.Equal(len(records), n)
	s.store = st
}

func (s *SQLiteSuite) TestImportIsIdempotent() {
	records, _, err := ReadNDJSON(strings.NewReader(sampleNDJSON), LoadOptions{})
	s.Require().NoError(err)
	n, err := s.store.Import(s.ctx, records)
	s.Require().NoError(err)
	s.Zero(n)

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(len(records), count)
}

func (s *SQLiteSuite) TestSearchMatchesMemorySemantics() {
	got, err := s.store.ByName(s.ctx, "michael", 20)
	s.Require().NoError(err)
	s.Equal([]id.EntityID{"NK-001", "NK-002", "NK-004"}, ids(got))

	got, err = s.store.ByNationality(s.ctx, "ru", 2)
	s.Require().NoError(err)
	s.Equal([]id.EntityID{"NK-001", "NK-002"}, ids(got))
}

func (s *SQLiteSuite) TestByID() {
	got, err := s.store.ByID(s.ctx, "NK-001")
	s.Require().NoError(err)
	s.Equal("Michael Smith", got.Caption)

	_, err = s.store.ByID(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SQLiteSuite) TestListsRoundTrip() {
	got, err := s.store.ByName(s.ctx, "Michael Smith", 1)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal([]string{"Misha Smith", "Smith, Michael"}, got[0].Aliases)
	s.Equal([]string{"ru"}, got[0].Nationality)
}

func (s *SQLiteSuite) TestPropertiesAndCreationTimeRoundTrip() {
	got, err := s.store.ByID(s.ctx, "NK-001")
	s.Require().NoError(err)
	s.Equal([]string{"Listed under EO 13660"}, got.Property("notes"))
	s.Equal([]string{"UKR-EO13660"}, got.Property("programId"))
	s.Equal(time.Date(2014, 3, 20, 0, 0, 0, 0, time.UTC), got.CreatedAt)

	bare, err := s.store.ByID(s.ctx, "NK-005")
	s.Require().NoError(err)
	s.Equal([]string{"us"}, bare.Property("nationality"))
	s.False(bare.CreatedAt.IsZero())
}

func (s *SQLiteSuite) TestImportStampsRecordsWithoutCreationTime() {
	n, err := s.store.Import(s.ctx, []models.Record{{EntityID: "NK-900", Caption: "Hand Entered"}})
	s.Require().NoError(err)
	s.Equal(1, n)

	got, err := s.store.ByID(s.ctx, "NK-900")
	s.Require().NoError(err)
	s.Nil(got.Properties)
	s.WithinDuration(time.Now(), got.CreatedAt, time.Minute)
}

func (s *SQLiteSuite) TestWildcardsAreLiteral() {
	got, err := s.store.ByName(s.ctx, "100%_", 20)
	s.Require().NoError(err)
	s.Equal([]id.EntityID{"NK-005"}, ids(got))

	got, err = s.store.ByName(s.ctx, "%", 20)
	s.Require().NoError(err)
	s.Equal([]id.EntityID{"NK-005"}, ids(got))
}
