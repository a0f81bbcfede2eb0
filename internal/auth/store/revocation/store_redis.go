package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "watchdesk_is_token_revoked_duration_ms",
	Help:    "Latency of token revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedTokenKeyPrefix = "watchdesk:trl:"

// RedisTRL shares revocation state across instances. Keys expire with the
// token, so nothing needs purging.
type RedisTRL struct {
	client *redis.Client
}

func NewRedisTRL(client *redis.Client) *RedisTRL {
	return &RedisTRL{client: client}
}

func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	return t.RevokeTokens(ctx, []string{jti}, ttl)
}

func (t *RedisTRL) RevokeTokens(ctx context.Context, jtis []string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	pipe := t.client.Pipeline()
	n := 0
	for _, jti := range jtis {
		if jti != "" {
			pipe.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl)
			n++
		}
	}
	if n == 0 {
		return nil
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if jti == "" {
		return false, nil
	}
	_, err := t.client.Get(ctx, revokedTokenKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
