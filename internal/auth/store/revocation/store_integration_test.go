//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"watchdesk/internal/auth/store/revocation"
	"watchdesk/pkg/testutil/containers"
)

type TRL interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	RevokeTokens(ctx context.Context, jtis []string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type RevocationSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	stores   map[string]TRL
}

func TestRevocationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RevocationSuite))
}

func (s *RevocationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	rd := mgr.GetRedis(s.T())
	s.stores = map[string]TRL{
		"postgres": revocation.NewPostgresTRL(s.postgres.DB),
		"redis":    revocation.NewRedisTRL(rd.Client),
	}
}

func (s *RevocationSuite) TestRevokeAndCheck() {
	ctx := context.Background()
	for name, trl := range s.stores {
		s.Run(name, func() {
			jti := uuid.NewString()
			revoked, err := trl.IsRevoked(ctx, jti)
			s.Require().NoError(err)
			s.False(revoked)

			s.Require().NoError(trl.RevokeToken(ctx, jti, time.Minute))
			revoked, err = trl.IsRevoked(ctx, jti)
			s.Require().NoError(err)
			s.True(revoked)
		})
	}
}

func (s *RevocationSuite) TestBatchSkipsEmpty() {
	ctx := context.Background()
	for name, trl := range s.stores {
		s.Run(name, func() {
			a, b := uuid.NewString(), uuid.NewString()
			s.Require().NoError(trl.RevokeTokens(ctx, []string{a, "", b}, time.Minute))
			for _, jti := range []string{a, b} {
				revoked, err := trl.IsRevoked(ctx, jti)
				s.Require().NoError(err)
				s.True(revoked)
			}
			s.Require().NoError(trl.RevokeTokens(ctx, []string{""}, time.Minute))
		})
	}
}

func (s *RevocationSuite) TestPostgresExpiryAndPurge() {
	ctx := context.Background()
	now := time.Now()
	trl := revocation.NewPostgresTRL(s.postgres.DB,
		revocation.WithPostgresClock(func() time.Time { return now }))

	jti := uuid.NewString()
	s.Require().NoError(trl.RevokeToken(ctx, jti, time.Second))
	now = now.Add(time.Minute)

	revoked, err := trl.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.False(revoked)

	purged, err := trl.Purge(ctx)
	s.Require().NoError(err)
	s.GreaterOrEqual(purged, int64(1))
}
