// Package cache holds read-through caches for entity search legs. The
// dataset is reference data, so a short TTL is the only invalidation.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"

	"watchdesk/internal/screening/metrics"
	"watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
)

const keyPrefix = "search:v1:"

// Key hashes a search leg into a fixed-size cache key. Queries are folded
// to lower case since both legs match case-insensitively.
func Key(kind, query string, limit int) string {
	h := xxh3.HashString128(kind + "\x00" + strings.ToLower(query) + "\x00" + strconv.Itoa(limit))
	b := h.Bytes()
	return keyPrefix + kind + ":" + hex.EncodeToString(b[:])
}

// Cache stores search leg results.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.Record, bool, error)
	Set(ctx context.Context, key string, records []models.Record) error
}

// Memory is a process-local cache backed by go-cache.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a cache whose entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: gocache.New(ttl, 2*ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]models.Record, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return cloneAll(v.([]models.Record)), true, nil
}

func (m *Memory) Set(_ context.Context, key string, records []models.Record) error {
	m.c.Set(key, cloneAll(records), gocache.DefaultExpiration)
	return nil
}

// Redis shares cached results across instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]models.Record, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var records []models.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, err
	}
	return records, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, records []models.Record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

// Source is the search surface being cached.
type Source interface {
	ByName(ctx context.Context, q string, limit int) ([]models.Record, error)
	ByNationality(ctx context.Context, q string, limit int) ([]models.Record, error)
	ByID(ctx context.Context, entityID id.EntityID) (models.Record, error)
}

// CachedSource decorates a Source. Cache errors are logged and bypassed so
// a cache outage degrades to uncached search.
type CachedSource struct {
	next    Source
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewCachedSource wraps next with cache.
func NewCachedSource(next Source, cache Cache, logger *slog.Logger, m *metrics.Metrics) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{next: next, cache: cache, logger: logger, metrics: m}
}

func (c *CachedSource) ByName(ctx context.Context, q string, limit int) ([]models.Record, error) {
	return c.lookup(ctx, "name", q, limit, c.next.ByName)
}

func (c *CachedSource) ByNationality(ctx context.Context, q string, limit int) ([]models.Record, error) {
	return c.lookup(ctx, "nationality", q, limit, c.next.ByNationality)
}

// ByID is not cached; it backs case creation, not search.
func (c *CachedSource) ByID(ctx context.Context, entityID id.EntityID) (models.Record, error) {
	return c.next.ByID(ctx, entityID)
}

func (c *CachedSource) lookup(ctx context.Context, kind, q string, limit int,
	load func(context.Context, string, int) ([]models.Record, error)) ([]models.Record, error) {
	key := Key(kind, q, limit)
	records, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.RecordCacheLookup("error")
		c.logger.WarnContext(ctx, "search cache read failed", "kind", kind, "error", err)
	case ok:
		c.metrics.RecordCacheLookup("hit")
		return records, nil
	default:
		c.metrics.RecordCacheLookup("miss")
	}

	records, err = load(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, records); err != nil {
		c.logger.WarnContext(ctx, "search cache write failed", "kind", kind, "error", err)
	}
	return records, nil
}

func cloneAll(in []models.Record) []models.Record {
	out := make([]models.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
