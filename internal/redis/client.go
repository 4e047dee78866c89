package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *redis.Client
}

func New(dsn string) (*Client, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.ConnMaxIdleTime = 5 * time.Minute
	opts.ConnMaxLifetime = 30 * time.Minute

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Feed cache helpers. The rendered ICS document is cached for a short TTL
// so calendar clients polling aggressively do not hit Postgres every time.

func feedKey(userID string) string {
	return fmt.Sprintf("feed:%s", userID)
}

func (c *Client) GetFeed(ctx context.Context, userID string) (string, error) {
	return c.rdb.Get(ctx, feedKey(userID)).Result()
}

func (c *Client) SetFeed(ctx context.Context, userID, doc string, ttl time.Duration) error {
	return c.rdb.Set(ctx, feedKey(userID), doc, ttl).Err()
}

// InvalidateFeed drops the cached document, used after a successful
// reconciliation or a user deletion.
func (c *Client) InvalidateFeed(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, feedKey(userID)).Err()
}
