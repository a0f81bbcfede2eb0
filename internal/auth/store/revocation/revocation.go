// Package revocation holds the token revocation list consulted by the auth
// middleware. Entries live until the revoked token would have expired anyway.
package revocation

import (
	"context"
	"sync"
	"time"

	dErrors "watchdesk/pkg/domain-errors"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "revocation ttl must be positive")
	}
	return nil
}

// InMemoryTRL is the single-process revocation list.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

type InMemoryTRLOption func(*InMemoryTRL)

func WithClock(clock Clock) InMemoryTRLOption {
	return func(t *InMemoryTRL) {
		if clock != nil {
			t.clock = clock
		}
	}
}

func NewInMemoryTRL(opts ...InMemoryTRLOption) *InMemoryTRL {
	trl := &InMemoryTRL{revoked: make(map[string]time.Time), clock: time.Now}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	for k, exp := range t.revoked {
		if now.After(exp) {
			delete(t.revoked, k)
		}
	}
	t.revoked[jti] = now.Add(ttl)
	return nil
}

func (t *InMemoryTRL) RevokeTokens(ctx context.Context, jtis []string, ttl time.Duration) error {
	for _, jti := range jtis {
		if err := t.RevokeToken(ctx, jti, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	exp, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	return !t.clock().After(exp), nil
}
