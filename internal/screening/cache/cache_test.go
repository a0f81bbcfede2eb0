package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
)

type countingSource struct {
	calls   int
	records []models.Record
	err     error
}

func (c *countingSource) ByName(_ context.Context, q string, limit int) ([]models.Record, error) {
	c.calls++
	return c.records, c.err
}

func (c *countingSource) ByNationality(_ context.Context, q string, limit int) ([]models.Record, error) {
	c.calls++
	return c.records, c.err
}

func (c *countingSource) ByID(_ context.Context, entityID id.EntityID) (models.Record, error) {
	c.calls++
	return models.Record{EntityID: entityID}, c.err
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]models.Record, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, []models.Record) error {
	return errors.New("connection refused")
}

type CachedSourceSuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
}

func TestCachedSourceSuite(t *testing.T) {
	suite.Run(t, new(CachedSourceSuite))
}

func (s *CachedSourceSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *CachedSourceSuite) TestKey() {
	s.Equal(Key("name", "Michael", 20), Key("name", "MICHAEL", 20))
	s.NotEqual(Key("name", "michael", 20), Key("nationality", "michael", 20))
	s.NotEqual(Key("name", "michael", 20), Key("name", "michael", 10))
	s.Contains(Key("name", "x", 1), "search:v1:name:")
}

func (s *CachedSourceSuite) TestReadThrough() {
	src := &countingSource{records: []models.Record{{EntityID: "E1", Nationality: []string{"ru"}}}}
	cached := NewCachedSource(src, NewMemory(time.Minute), s.logger, nil)

	first, err := cached.ByName(s.ctx, "mich", 20)
	s.Require().NoError(err)
	second, err := cached.ByName(s.ctx, "MICH", 20)
	s.Require().NoError(err)

	s.Equal(1, src.calls)
	s.Equal(first, second)

	_, err = cached.ByNationality(s.ctx, "mich", 20)
	s.Require().NoError(err)
	s.Equal(2, src.calls, "legs are cached independently")
}

func (s *CachedSourceSuite) TestCachedRecordsAreIsolated() {
	src := &countingSource{records: []models.Record{{EntityID: "E1", Nationality: []string{"ru"}}}}
	cached := NewCachedSource(src, NewMemory(time.Minute), s.logger, nil)

	got, err := cached.ByName(s.ctx, "x", 20)
	s.Require().NoError(err)
	got[0].Nationality[0] = "mutated"

	again, err := cached.ByName(s.ctx, "x", 20)
	s.Require().NoError(err)
	s.Equal("ru", again[0].Nationality[0])
}

func (s *CachedSourceSuite) TestBrokenCacheFallsThrough() {
	src := &countingSource{records: []models.Record{{EntityID: "E1"}}}
	cached := NewCachedSource(src, brokenCache{}, s.logger, nil)

	got, err := cached.ByName(s.ctx, "x", 20)
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *CachedSourceSuite) TestSourceErrorsAreNotCached() {
	src := &countingSource{err: errors.New("db down")}
	cached := NewCachedSource(src, NewMemory(time.Minute), s.logger, nil)

	_, err := cached.ByName(s.ctx, "x", 20)
	s.Require().Error(err)

	src.err = nil
	src.records = []models.Record{{EntityID: "E1"}}
	got, err := cached.ByName(s.ctx, "x", 20)
	s.Require().NoError(err)
	s.Len(got, 1)
	s.Equal(2, src.calls)
}
