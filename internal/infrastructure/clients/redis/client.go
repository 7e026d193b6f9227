package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/kasuwa/searchstream/pkg/config"
	apperrors "github.com/kasuwa/searchstream/pkg/errors"
)

// Client wraps the Redis connection backing the devserver's result-cache
// token store.
type Client struct {
	client *redis.Client
}

// NewClient connects to Redis and verifies the connection before handing it
// out. The devserver treats a failure here as "run without a cache", so the
// caller bounds the ping with ctx rather than waiting on a dead instance.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperrors.NewExternalError("connecting to redis", err)
	}

	return &Client{client: client}, nil
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}
