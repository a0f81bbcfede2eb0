package main

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/zeebo/xxh3"

	"watchdesk/internal/cases/models"
	casesservice "watchdesk/internal/cases/service"
	dErrors "watchdesk/pkg/domain-errors"
	"watchdesk/pkg/platform/tx"
)

// casesPostgresTx runs a case mutation in one database transaction holding
// an advisory lock per touched key, so the read-check-write inside fn cannot
// interleave with another mutation of the same case.
type casesPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newCasesPostgresTx(db *sql.DB) *casesPostgresTx {
	return &casesPostgresTx{db: db, timeout: casesservice.DefaultTxTimeout}
}

func (t *casesPostgresTx) RunInTx(ctx context.Context, keys []models.Key, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = casesservice.DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	// Ascending lock order, as in the in-memory runner.
	for _, lockID := range advisoryLockIDs(keys) {
		if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockID); err != nil {
			return err
		}
	}

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func advisoryLockIDs(keys []models.Key) []int64 {
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, int64(xxh3.HashString("case:"+k.String())))
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
