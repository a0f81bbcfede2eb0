package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"watchdesk/internal/country"
	"watchdesk/internal/screening/models"
	"watchdesk/internal/screening/store"
	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
)

type MatcherSuite struct {
	suite.Suite
	ctx     context.Context
	matcher *Matcher
}

func TestMatcherSuite(t *testing.T) {
	suite.Run(t, new(MatcherSuite))
}

func record(entityID, caption string, nationality ...string) models.Record {
	return models.Record{EntityID: id.EntityID(entityID), Caption: caption, Schema: "Person", Nationality: nationality}
}

func entityIDs(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.EntityID.String()
	}
	return out
}

func (s *MatcherSuite) SetupTest() {
	s.ctx = context.Background()
	src := store.NewInMemory([]models.Record{
		record("E1", "Michael Smith", "ru"),
		record("E2", "MICHAEL Brown", "gb"),
		record("E3", "Anna Petrova", "ru", "ua"),
		record("E4", "Jean-Michael Roux", "fr", "ru"),
		record("E5", "Sergei Ivanov", "ru"),
		record("E6", "Johan Smit", "nl"),
	})
	s.matcher = New(src, country.Default())
}

func (s *MatcherSuite) TestByName() {
	s.Run("case-insensitive substring in dataset order", func() {
		got, err := s.matcher.ByName(s.ctx, "Michael")
		s.Require().NoError(err)
		s.Equal([]string{"E1", "E2", "E4"}, entityIDs(got))
	})

	s.Run("no match is an empty result", func() {
		got, err := s.matcher.ByName(s.ctx, "zzz")
		s.Require().NoError(err)
		s.Empty(got)
	})
}

func (s *MatcherSuite) TestByNameIsCapped() {
	var records []models.Record
	for i := range 30 {
		records = append(records, record(fmt.Sprintf("M%02d", i), fmt.Sprintf("Michael %d", i), "ru"))
	}
	m := New(store.NewInMemory(records), country.Default())

	got, err := m.ByName(s.ctx, "michael")
	s.Require().NoError(err)
	s.Len(got, DefaultResultCap)
	s.Equal("M00", got[0].EntityID.String())
}

func (s *MatcherSuite) TestByNationality() {
	s.Run("country name resolves to its code", func() {
		got, err := s.matcher.ByNationality(s.ctx, "Russia")
		s.Require().NoError(err)
		s.Equal([]string{"E1", "E3", "E4", "E5"}, entityIDs(got))
	})

	s.Run("two-letter input is used as a code", func() {
		got, err := s.matcher.ByNationality(s.ctx, "UA")
		s.Require().NoError(err)
		s.Equal([]string{"E3"}, entityIDs(got))
	})

	s.Run("unresolved name falls back to raw matching", func() {
		code, resolved := s.matcher.ResolveNationality("Atlantis")
		s.False(resolved)
		s.Equal("atlantis", code)

		got, err := s.matcher.ByNationality(s.ctx, "Atlantis")
		s.Require().NoError(err)
		s.Empty(got)
	})
}

func (s *MatcherSuite) TestByNameAndNationality() {
	s.Run("intersection keeps name order", func() {
		got, err := s.matcher.ByNameAndNationality(s.ctx, "michael", "Russia")
		s.Require().NoError(err)
		s.Equal([]string{"E1", "E4"}, entityIDs(got))
	})

	s.Run("only records inside both capped legs are returned", func() {
		var records []models.Record
		// 20 Russian non-matches fill the nationality cap before the match.
		for i := range 20 {
			records = append(records, record(fmt.Sprintf("R%02d", i), fmt.Sprintf("Filler %d", i), "ru"))
		}
		records = append(records, record("TARGET", "Michael Target", "ru"))
		m := New(store.NewInMemory(records), country.Default())

		byName, err := m.ByName(s.ctx, "michael")
		s.Require().NoError(err)
		s.Equal([]string{"TARGET"}, entityIDs(byName))

		got, err := m.ByNameAndNationality(s.ctx, "michael", "ru")
		s.Require().NoError(err)
		s.Empty(got)
	})
}

func (s *MatcherSuite) TestSearch() {
	s.Run("blank query is a validation error", func() {
		_, err := s.matcher.Search(s.ctx, models.Query{Name: "  ", Nationality: ""})
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeValidation, "name or nationality is required"))
	})

	s.Run("overlong name is rejected", func() {
		long := make([]byte, MaxQueryLength+1)
		for i := range long {
			long[i] = 'a'
		}
		_, err := s.matcher.Search(s.ctx, models.Query{Name: string(long)})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("name only", func() {
		res, err := s.matcher.Search(s.ctx, models.Query{Name: "smith"})
		s.Require().NoError(err)
		s.Equal([]string{"E1"}, entityIDs(res.Records))
		s.True(res.Resolved)
	})

	s.Run("nationality only reports the resolved code", func() {
		res, err := s.matcher.Search(s.ctx, models.Query{Nationality: "Russia"})
		s.Require().NoError(err)
		s.Equal("ru", res.NationalityCode)
		s.True(res.Resolved)
		s.Len(res.Records, 4)
	})

	s.Run("combined reports unresolved nationality", func() {
		res, err := s.matcher.Search(s.ctx, models.Query{Name: "michael", Nationality: "Narnia"})
		s.Require().NoError(err)
		s.False(res.Resolved)
		s.Empty(res.Records)
	})
}

func (s *MatcherSuite) TestLookup() {
	s.Run("known entity", func() {
		got, err := s.matcher.Lookup(s.ctx, "E3")
		s.Require().NoError(err)
		s.Equal("Anna Petrova", got.Caption)
	})

	s.Run("unknown entity is not found", func() {
		_, err := s.matcher.Lookup(s.ctx, "E404")
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeNotFound, "entity not found"))
	})

	s.Run("blank id is a validation error", func() {
		_, err := s.matcher.Lookup(s.ctx, " ")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

type failingSource struct{}

func (failingSource) ByName(context.Context, string, int) ([]models.Record, error) {
	return nil, errors.New("connection reset")
}

func (failingSource) ByNationality(context.Context, string, int) ([]models.Record, error) {
	return []models.Record{}, nil
}

func (failingSource) ByID(context.Context, id.EntityID) (models.Record, error) {
	return models.Record{}, errors.New("connection reset")
}

func (s *MatcherSuite) TestSourceFailureIsInternal() {
	m := New(failingSource{}, country.Default())

	_, err := m.ByNameAndNationality(s.ctx, "x", "ru")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *MatcherSuite) TestWithResultCap() {
	m := New(failingSource{}, nil, WithResultCap(5), WithResultCap(-1))
	s.Equal(5, m.ResultCap())
}

func TestIntersect(t *testing.T) {
	a := []models.Record{record("1", "a"), record("2", "b"), record("3", "c")}
	b := []models.Record{record("3", "c"), record("1", "a")}

	got := Intersect(a, b)
	if ids := entityIDs(got); len(ids) != 2 || ids[0] != "1" || ids[1] != "3" {
		t.Fatalf("unexpected intersection %v", ids)
	}
}
