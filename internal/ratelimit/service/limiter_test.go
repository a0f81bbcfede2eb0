package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"watchdesk/internal/ratelimit/models"
	"watchdesk/internal/ratelimit/store/bucket"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/audit"
	"watchdesk/pkg/platform/circuit"
)

type flakyStore struct {
	down  bool
	inner *bucket.InMemoryBucketStore
}

func (f *flakyStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	if f.down {
		return nil, errors.New("connection refused")
	}
	return f.inner.Allow(ctx, key, limit, window)
}

func (f *flakyStore) Reset(ctx context.Context, key string) error {
	if f.down {
		return errors.New("connection refused")
	}
	return f.inner.Reset(ctx, key)
}

type auditSink struct{ events []audit.Event }

func (a *auditSink) Emit(_ context.Context, e audit.Event) { a.events = append(a.events, e) }

type LimiterSuite struct {
	suite.Suite
	ctx     context.Context
	primary *flakyStore
	auditor *auditSink
	limiter *Limiter
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.ctx = context.Background()
	s.primary = &flakyStore{inner: bucket.NewInMemoryBucketStore()}
	s.auditor = &auditSink{}
	s.limiter = New(s.primary, Config{
		Search: models.Policy{Limit: 2, Window: time.Minute},
		Login:  models.Policy{Limit: 3, Window: time.Minute},
	},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.auditor),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))),
	)
}

func (s *LimiterSuite) TestSearchIsPerUser() {
	alice, bob := id.UserID(uuid.New()), id.UserID(uuid.New())
	for range 2 {
		result, err := s.limiter.CheckSearch(s.ctx, alice)
		s.Require().NoError(err)
		s.True(result.Allowed)
	}
	result, err := s.limiter.CheckSearch(s.ctx, alice)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Require().Len(s.auditor.events, 1)
	s.Equal(audit.EventRateLimitExceeded, s.auditor.events[0].Action)
	s.Equal("search", s.auditor.events[0].Reason)

	result, err = s.limiter.CheckSearch(s.ctx, bob)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *LimiterSuite) TestLoginResetClearsAttempts() {
	for range 3 {
		_, err := s.limiter.CheckLogin(s.ctx, "Alice@example.com", "10.0.0.1")
		s.Require().NoError(err)
	}
	result, err := s.limiter.CheckLogin(s.ctx, "alice@example.com", "10.0.0.1")
	s.Require().NoError(err)
	s.False(result.Allowed, "email is matched case-insensitively")

	s.limiter.ResetLogin(s.ctx, "alice@example.com", "10.0.0.1")
	result, err = s.limiter.CheckLogin(s.ctx, "alice@example.com", "10.0.0.1")
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *LimiterSuite) TestFailsOverToFallback() {
	user := id.UserID(uuid.New())
	s.primary.down = true

	result, err := s.limiter.CheckSearch(s.ctx, user)
	s.Require().NoError(err)
	s.True(result.Allowed, "first failure is let through")
	s.True(result.Degraded)

	// breaker opens on the second failure, fallback starts counting
	for range 2 {
		result, err = s.limiter.CheckSearch(s.ctx, user)
		s.Require().NoError(err)
		s.True(result.Allowed)
	}
	result, err = s.limiter.CheckSearch(s.ctx, user)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.True(result.Degraded)

	s.primary.down = false
	result, err = s.limiter.CheckSearch(s.ctx, id.UserID(uuid.New()))
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.False(result.Degraded, "breaker closed after one success")
}

func (s *LimiterSuite) TestDisabledPolicyAllows() {
	l := New(s.primary, Config{})
	for range 10 {
		result, err := l.CheckSearch(s.ctx, id.UserID(uuid.New()))
		s.Require().NoError(err)
		s.True(result.Allowed)
	}
}
