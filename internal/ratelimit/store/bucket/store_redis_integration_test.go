//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"watchdesk/internal/ratelimit/store/bucket"
	"watchdesk/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedisBucketStore(s.redis.Client)
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketStoreSuite) TestAllowUpToLimit() {
	ctx := context.Background()
	for i := range 3 {
		result, err := s.store.Allow(ctx, "search:user:u1", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(2-i, result.Remaining)
	}

	result, err := s.store.Allow(ctx, "search:user:u1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.GreaterOrEqual(result.RetryAfter, 1)

	s.Require().NoError(s.store.Reset(ctx, "search:user:u1"))
	result, err = s.store.Allow(ctx, "search:user:u1", 3, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisBucketStoreSuite) TestKeysAreIndependent() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "a", 1, time.Minute)
	s.Require().NoError(err)

	result, err := s.store.Allow(ctx, "b", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
