// Package service decides whether a request fits its sliding window. A
// shared store backs the decision; a circuit breaker fails over to a local
// store when the shared one errors.
package service

import (
	"context"
	"log/slog"
	"time"

	"watchdesk/internal/ratelimit/metrics"
	"watchdesk/internal/ratelimit/models"
	"watchdesk/internal/ratelimit/store/bucket"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/audit"
	"watchdesk/pkg/platform/circuit"
	"watchdesk/pkg/requestcontext"
)

const (
	ClassSearch = "search"
	ClassLogin  = "login"
)

type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Config struct {
	Search models.Policy
	Login  models.Policy
}

type Limiter struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  AuditPublisher
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(l *Limiter) {
		l.auditor = publisher
	}
}

// WithFallback sets the store used while the breaker is open. Without it
// the limiter fails open on store errors.
func WithFallback(store BucketStore) Option {
	return func(l *Limiter) {
		l.fallback = store
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(l *Limiter) {
		l.breaker = b
	}
}

func New(primary BucketStore, cfg Config, opts ...Option) *Limiter {
	l := &Limiter{
		primary: primary,
		cfg:     cfg,
		logger:  slog.Default(),
		breaker: circuit.New("ratelimit"),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback == nil {
		if _, local := primary.(*bucket.InMemoryBucketStore); !local {
			l.fallback = bucket.NewInMemoryBucketStore()
		}
	}
	return l
}

// CheckSearch counts one search by userID.
func (l *Limiter) CheckSearch(ctx context.Context, userID id.UserID) (*models.RateLimitResult, error) {
	return l.check(ctx, ClassSearch, models.SearchKey(userID.String()), l.cfg.Search)
}

// CheckLogin counts one login attempt for email from ip.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) (*models.RateLimitResult, error) {
	return l.check(ctx, ClassLogin, models.LoginKey(email, ip), l.cfg.Login)
}

// ResetLogin forgets the attempts for email from ip after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, email, ip string) {
	key := models.LoginKey(email, ip)
	if err := l.primary.Reset(ctx, key); err != nil {
		l.logger.WarnContext(ctx, "failed to reset login bucket", "error", err)
	}
	if l.fallback != nil {
		_ = l.fallback.Reset(ctx, key)
	}
}

func (l *Limiter) check(ctx context.Context, class, key string, policy models.Policy) (*models.RateLimitResult, error) {
	if !policy.Enabled() {
		return &models.RateLimitResult{Allowed: true}, nil
	}
	l.metrics.IncrementCheck(class)

	result, err := l.allow(ctx, key, policy)
	if err != nil {
		return nil, err
	}
	if !result.Allowed {
		l.metrics.IncrementRejection(class)
		l.logger.WarnContext(ctx, "rate limit exceeded",
			"class", class,
			"user_id", requestcontext.UserID(ctx),
			"request_id", requestcontext.RequestID(ctx),
		)
		if l.auditor != nil {
			l.auditor.Emit(ctx, audit.Event{
				Category:  audit.EventRateLimitExceeded.Category(),
				Timestamp: requestcontext.Now(ctx),
				Action:    audit.EventRateLimitExceeded,
				ActorID:   requestcontext.UserID(ctx),
				ActorRole: requestcontext.Role(ctx).String(),
				Reason:    class,
				RequestID: requestcontext.RequestID(ctx),
			})
		}
	}
	return result, nil
}

func (l *Limiter) allow(ctx context.Context, key string, policy models.Policy) (*models.RateLimitResult, error) {
	if l.fallback == nil {
		return l.primary.Allow(ctx, key, policy.Limit, policy.Window)
	}

	result, err := l.primary.Allow(ctx, key, policy.Limit, policy.Window)
	if err != nil {
		l.metrics.IncrementStoreFailure()
		useFallback, change := l.breaker.RecordFailure()
		if change.Opened {
			l.metrics.SetDegraded(true)
			l.logger.WarnContext(ctx, "rate limit store unhealthy, using in-memory fallback", "error", err)
		}
		if !useFallback {
			// Below the threshold a single store error lets the request through.
			l.logger.WarnContext(ctx, "rate limit check failed, allowing request", "error", err)
			return &models.RateLimitResult{Allowed: true, Limit: policy.Limit, Degraded: true}, nil
		}
		return l.fromFallback(ctx, key, policy)
	}

	usePrimary, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.metrics.SetDegraded(false)
		l.logger.InfoContext(ctx, "rate limit store recovered")
	}
	if !usePrimary {
		return l.fromFallback(ctx, key, policy)
	}
	return result, nil
}

func (l *Limiter) fromFallback(ctx context.Context, key string, policy models.Policy) (*models.RateLimitResult, error) {
	result, err := l.fallback.Allow(ctx, key, policy.Limit, policy.Window)
	if err != nil {
		return nil, err
	}
	result.Degraded = true
	return result, nil
}
