package revocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"watchdesk/pkg/platform/tx"
)

// PostgresTRL persists revoked JTIs in token_revocations.
type PostgresTRL struct {
	db    *sql.DB
	clock Clock
}

type PostgresTRLOption func(*PostgresTRL)

func WithPostgresClock(clock Clock) PostgresTRLOption {
	return func(trl *PostgresTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

func NewPostgresTRL(db *sql.DB, opts ...PostgresTRLOption) *PostgresTRL {
	trl := &PostgresTRL{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

func (t *PostgresTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	return t.RevokeTokens(ctx, []string{jti}, ttl)
}

// RevokeTokens writes every non-empty jti in one statement.
func (t *PostgresTRL) RevokeTokens(ctx context.Context, jtis []string, ttl time.Duration) error {
	valid := make([]string, 0, len(jtis))
	for _, jti := range jtis {
		if jti != "" {
			valid = append(valid, jti)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	_, err := tx.Pick(ctx, t.db).ExecContext(ctx, `
		INSERT INTO token_revocations (jti, expires_at)
		SELECT unnest($1::text[]), $2
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = EXCLUDED.expires_at`,
		pq.Array(valid), t.clock().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

func (t *PostgresTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var expiresAt time.Time
	err := tx.Pick(ctx, t.db).QueryRowContext(ctx,
		`SELECT expires_at FROM token_revocations WHERE jti = $1`, jti).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return !t.clock().After(expiresAt), nil
}

// Purge drops entries whose tokens have expired.
func (t *PostgresTRL) Purge(ctx context.Context) (int64, error) {
	res, err := tx.Pick(ctx, t.db).ExecContext(ctx,
		`DELETE FROM token_revocations WHERE expires_at < $1`, t.clock())
	if err != nil {
		return 0, fmt.Errorf("purge token revocations: %w", err)
	}
	return res.RowsAffected()
}
