package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"watchdesk/internal/cases/models"
	dErrors "watchdesk/pkg/domain-errors"
)

// TxRunner gives a case mutation a transactional boundary over the keys it
// touches. Implementations wrap a database transaction or, in memory, a set
// of key locks. fn must use the ctx it is handed.
type TxRunner interface {
	RunInTx(ctx context.Context, keys []models.Key, fn func(ctx context.Context) error) error
}

// numCaseShards is the number of lock shards. Keys hash onto shards, so two
// unrelated cases only contend when they collide.
const numCaseShards = 128

// DefaultTxTimeout bounds a case transaction when ctx has no deadline.
const DefaultTxTimeout = 5 * time.Second

// ShardedTx serializes mutations per case key with sharded mutexes. It is
// the runner for the in-memory store.
type ShardedTx struct {
	shards  [numCaseShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx(timeout time.Duration) *ShardedTx {
	return &ShardedTx{timeout: timeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, keys []models.Key, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Shards are always taken in ascending order so a reassign locking two
	// keys cannot deadlock against another locking the same pair.
	shards := shardsFor(keys)
	for _, s := range shards {
		t.shards[s].Lock()
	}
	defer func() {
		for i := len(shards) - 1; i >= 0; i-- {
			t.shards[shards[i]].Unlock()
		}
	}()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

func shardsFor(keys []models.Key) []uint64 {
	out := make([]uint64, 0, len(keys))
	for _, k := range keys {
		out = append(out, xxh3.HashString(k.String())%numCaseShards)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
