package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/carbon-ledger/pkg/config"
)

const connectTimeout = 5 * time.Second

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// NewRedisClient creates a Redis client and verifies the connection
func NewRedisClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s: %w", cfg.RedisAddr(), err)
	}

	return &Client{Client: client}, nil
}

// GetBytes returns the raw value stored at key. A missing key yields redis.Nil.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return c.Get(ctx, key).Bytes()
}

// SetWithExpiration sets a key-value pair with expiration
func (c *Client) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.Set(ctx, key, value, expiration).Err()
}

// Delete deletes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.Del(ctx, keys...).Err()
}

// IsMiss reports whether err means the key was absent
func IsMiss(err error) bool {
	return err == redis.Nil
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}
