package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
}

// New parses a redis:// connection URL and returns a wrapped client.
// Read timeout stays unset on the options so blocking pops can exceed it;
// go-redis handles the per-command timeout for BLPOP itself.
func New(rawURL string) (*Client, error) {
	opts, err := redis.ParseURL(rawURL)

	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.DialTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	return &Client{redisdb: redis.NewClient(opts)}, nil
}

// this ping function checks redis connectivity

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

// this closes the client

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// this exposes the raw client for the queue store

func (c *Client) Raw() *redis.Client {
	return c.redisdb
}
