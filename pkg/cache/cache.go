// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package cache wraps the redis client used for listing responses and
// idempotency records.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/errs"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"
)

var (
	mon = monkit.Package()

	// Error is the class of cache errors.
	Error = errs.Class("cache error")
)

// Config holds the redis connection settings.
type Config struct {
	Addr         string `help:"redis host:port" default:"localhost:6379"`
	Password     string `help:"redis password" default:""`
	DB           int    `help:"redis database index" default:"0"`
	PoolSize     int    `help:"maximum number of socket connections" default:"100"`
	MinIdleConns int    `help:"idle connections kept ready for bursty traffic" default:"10"`
}

// Client wraps the raw redis client with JSON helpers.
type Client struct {
	db *redis.Client
}

// Open connects to redis and verifies the connection with a ping.
func Open(config Config) (*Client, error) {
	if config.PoolSize == 0 {
		config.PoolSize = 100
	}
	if config.MinIdleConns == 0 {
		config.MinIdleConns = 10
	}

	db := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,

		// Bounded wait for a pool slot; fail closed instead of hanging
		// when redis is slow.
		PoolTimeout: 4 * time.Second,

		// Drop connections that sat idle long enough to go stale.
		ConnMaxIdleTime: 5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Ping(ctx).Err(); err != nil {
		return nil, Error.Wrap(err)
	}

	return &Client{db: db}, nil
}

// GetJSON reads key and unmarshals it into out. The second return reports
// whether the key existed.
func (client *Client) GetJSON(ctx context.Context, key string, out interface{}) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := client.db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, Error.Wrap(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, Error.Wrap(err)
	}
	return true, nil
}

// SetJSON marshals value and stores it under key with a TTL.
func (client *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) (err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := json.Marshal(value)
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(client.db.Set(ctx, key, data, ttl).Err())
}

// SetNX atomically sets key only if it does not exist yet. Returns whether
// the key was set.
func (client *Client) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := json.Marshal(value)
	if err != nil {
		return false, Error.Wrap(err)
	}
	ok, err := client.db.SetNX(ctx, key, data, ttl).Result()
	return ok, Error.Wrap(err)
}

// Delete removes keys. Missing keys are not an error.
func (client *Client) Delete(ctx context.Context, keys ...string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return Error.Wrap(client.db.Del(ctx, keys...).Err())
}

// Ping verifies the connection.
func (client *Client) Ping(ctx context.Context) error {
	return Error.Wrap(client.db.Ping(ctx).Err())
}

// Close releases the connection pool.
func (client *Client) Close() error {
	return Error.Wrap(client.db.Close())
}
