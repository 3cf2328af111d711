// Package redis provides an optional advisory lock over sync passes, so
// that multiple indexer replicas can share one chain RPC endpoint and
// database without running the same pass concurrently. The sync engine
// itself does not require Redis: a nil *Client degrades every lock call
// to always-granted.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Client wraps the advisory locking operations the sync coordinator uses
// to keep a pass from running on two replicas at once.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func lockKey(pass string) string {
	return fmt.Sprintf("indexer:pass-lock:%s", pass)
}

// TryLock attempts to acquire the named pass's advisory lock for ttl. A
// nil Client always grants the lock, so single-replica deployments pay
// no Redis dependency.
func (c *Client) TryLock(ctx context.Context, pass string, ttl time.Duration) (bool, error) {
	if c == nil || c.rdb == nil {
		return true, nil
	}
	ok, err := c.rdb.SetNX(ctx, lockKey(pass), "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// Unlock releases the named pass's advisory lock.
func (c *Client) Unlock(ctx context.Context, pass string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, lockKey(pass)).Err()
}
