// Package redisapp wraps the go-redis client used for view counters.
package redisapp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 3 * time.Second

type Client struct {
	*redis.Client
}

// NewClient does not dial; call HealthCheck to find out whether redis is
// reachable. A zero timeout falls back to three seconds for every phase.
func NewClient(addr, password string, db int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		Client: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		}),
	}
}

func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.Options().Addr, err)
	}

	return nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
