// Package redis builds the shared go-redis client used by the search cache,
// rate-limit buckets and token revocation list.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"watchdesk/internal/platform/config"
)

type Client struct {
	*redis.Client
}

// Options turns configuration into client options. Zero pool settings keep
// the go-redis defaults.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// New connects and pings. It returns (nil, nil) when no URL is configured so
// callers fall back to in-memory backends.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &Client{Client: client}, nil
}

// Health backs the /health check. Pool counters are attached to failures.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		stats := c.PoolStats()
		return fmt.Errorf("redis unreachable (total=%d idle=%d timeouts=%d): %w",
			stats.TotalConns, stats.IdleConns, stats.Timeouts, err)
	}
	return nil
}
