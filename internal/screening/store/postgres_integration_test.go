//go:build integration

package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"watchdesk/internal/screening/models"
	"watchdesk/internal/screening/store"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "name_entities"))

	records, _, err := store.ReadNDJSON(strings.NewReader(dataset), store.LoadOptions{})
	s.Require().NoError(err)
	_, err = s.store.Import(ctx, records)
	s.Require().NoError(err)
}

const dataset = `{"id":"P1","caption":"Michael Smith","schema":"Person","properties":{"nationality":["ru"],"alias":["Smith, M."],"notes":["Frozen assets"],"programId":["RUSSIA-EO14024"]},"first_seen":"2022-02-24T08:00:00Z"}
{"id":"P2","caption":"Anna Michaels","schema":"Person","properties":{"nationality":["ua","ru"]}}
{"id":"P3","caption":"Olga Petrova","schema":"Person","properties":{"nationality":["by"]}}
`

func entityIDs(records []models.Record) []id.EntityID {
	out := make([]id.EntityID, 0, len(records))
	for _, r := range records {
		out = append(out, r.EntityID)
	}
	return out
}

func (s *PostgresStoreSuite) TestByNameUsesInsertionOrder() {
	got, err := s.store.ByName(context.Background(), "MICHAEL", 20)
	s.Require().NoError(err)
	s.Equal([]id.EntityID{"P1", "P2"}, entityIDs(got))
	s.Equal([]string{"Smith, M."}, got[0].Aliases)
}

func (s *PostgresStoreSuite) TestByNationalityMatchesArrayElements() {
	got, err := s.store.ByNationality(context.Background(), "ru", 1)
	s.Require().NoError(err)
	s.Equal([]id.EntityID{"P1"}, entityIDs(got))

	got, err = s.store.ByNationality(context.Background(), "ua", 20)
	s.Require().NoError(err)
	s.Equal([]id.EntityID{"P2"}, entityIDs(got))
	s.Equal([]string{"ua", "ru"}, got[0].Nationality)
}

func (s *PostgresStoreSuite) TestImportSkipsExisting() {
	records, _, err := store.ReadNDJSON(strings.NewReader(dataset), store.LoadOptions{})
	s.Require().NoError(err)
	n, err := s.store.Import(context.Background(), records)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *PostgresStoreSuite) TestByID() {
	got, err := s.store.ByID(context.Background(), "P3")
	s.Require().NoError(err)
	s.Equal("Olga Petrova", got.Caption)

	_, err = s.store.ByID(context.Background(), "P404")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestPropertiesAndCreationTimeRoundTrip() {
	got, err := s.store.ByID(context.Background(), "P1")
	s.Require().NoError(err)
	s.Equal([]string{"Frozen assets"}, got.Property("notes"))
	s.Equal([]string{"RUSSIA-EO14024"}, got.Property("programId"))
	s.Equal([]string{"Smith, M."}, got.Property("alias"))
	s.True(time.Date(2022, 2, 24, 8, 0, 0, 0, time.UTC).Equal(got.CreatedAt))

	var programs string
	err = s.postgres.DB.QueryRowContext(context.Background(),
		`SELECT properties->'programId'->>0 FROM name_entities WHERE entity_id = 'P1'`).Scan(&programs)
	s.Require().NoError(err)
	s.Equal("RUSSIA-EO14024", programs)
}
