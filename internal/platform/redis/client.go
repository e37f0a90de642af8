// Package redis holds the shared go-redis client. Redis is optional in this
// service: it only backs the per-IP rate limiter, and deployments without a
// REDIS_URL simply run unlimited. The wrapper exists so main and the health
// endpoint deal with one nil-able handle instead of raw go-redis options.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"serenyx/internal/platform/config"
)

// Client embeds the go-redis client; middleware uses it directly.
type Client struct {
	*redis.Client
}

// New dials Redis from config. An empty URL returns (nil, nil), which callers
// treat as "not configured". A configured-but-unreachable Redis is an error:
// silently starting without the rate limiter would be worse than failing.
func New(cfg config.Redis) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health pings the connection for the health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
