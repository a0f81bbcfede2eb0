//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"watchdesk/internal/archive/models"
	"watchdesk/internal/archive/store"
	casemodels "watchdesk/internal/cases/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/platform/tx"
	"watchdesk/pkg/testutil/containers"
)

type PostgresArchiveSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	officer  id.UserID
}

func TestPostgresArchiveSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresArchiveSuite))
}

func (s *PostgresArchiveSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresArchiveSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "history_records"))
	s.officer = id.UserID(uuid.New())
}

func (s *PostgresArchiveSuite) record(entityID string) *models.HistoryRecord {
	st, err := casemodels.Flagged(3)
	s.Require().NoError(err)
	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &casemodels.Case{
		EntityID:    id.EntityID(entityID),
		OfficerID:   s.officer,
		OfficerName: "Bob",
		Entity:      casemodels.EntitySnapshot{Caption: "Sergei Ivanov", Nationality: []string{"ru"}},
		Status:      st,
		Notes:       "confirmed by passport",
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     4,
	}
	return models.NewHistoryRecord(c, models.Actor{ID: s.officer, Name: "Bob"}, now)
}

func (s *PostgresArchiveSuite) TestAppendAndList() {
	ctx := context.Background()
	first := s.record("E1")
	second := s.record("E2")
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))

	got, err := s.store.ListByOfficer(ctx, s.officer)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(first.ID, got[0].ID)
	s.Equal("Flag:3", got[0].Status.String())
	s.Equal("confirmed by passport", got[0].Snapshot.Notes)
	s.Equal([]string{"ru"}, got[0].Snapshot.Entity.Nationality)
	s.Equal(int64(4), got[0].Snapshot.Version)
	s.Equal(second.ID, got[1].ID)
}

func (s *PostgresArchiveSuite) TestListIncludesRecordsClearedByTheRequester() {
	ctx := context.Background()
	manager := id.UserID(uuid.New())
	rec := s.record("E5")
	rec.ClearedBy = manager
	rec.ClearedByName = "Mona"
	s.Require().NoError(s.store.Append(ctx, rec))

	got, err := s.store.ListByOfficer(ctx, manager)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(rec.ID, got[0].ID)
	s.Equal(s.officer, got[0].OfficerID)

	owned, err := s.store.ListByOfficer(ctx, s.officer)
	s.Require().NoError(err)
	s.Len(owned, 1)
}

func (s *PostgresArchiveSuite) TestAppendRollsBackWithTransaction() {
	ctx := context.Background()
	err := tx.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		if err := s.store.Append(ctx, s.record("E1")); err != nil {
			return err
		}
		return sentinel.ErrConflict
	})
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.ListByOfficer(ctx, s.officer)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *PostgresArchiveSuite) TestRemove() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, s.record("E1")))

	n, err := s.store.Remove(ctx, "E1", s.officer)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.Remove(ctx, "E1", s.officer)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
