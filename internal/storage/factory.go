// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Type names a storage driver.
type Type string

const (
	TypeFile   Type = "file"
	TypeSQLite Type = "sqlite"
	TypeRedis  Type = "redis"
	TypeMemory Type = "memory"
)

// Types lists the accepted driver names.
var Types = []Type{TypeFile, TypeSQLite, TypeRedis, TypeMemory}

// Option configures a store created by New.
type Option func(*options)

type options struct {
	dir         string
	dbPath      string
	redisURL    string
	redisClient *redis.Client
	redisPrefix string
	redisTTL    time.Duration
}

// WithDir sets the data directory for the file driver.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithDatabasePath sets the database file for the sqlite driver.
func WithDatabasePath(path string) Option {
	return func(o *options) { o.dbPath = path }
}

// WithRedisURL sets the connection URL for the redis driver.
func WithRedisURL(url string) Option {
	return func(o *options) { o.redisURL = url }
}

// WithRedisClient supplies an existing client for the redis driver.
func WithRedisClient(client *redis.Client) Option {
	return func(o *options) { o.redisClient = client }
}

// WithRedisPrefix sets the key prefix for the redis driver.
func WithRedisPrefix(prefix string) Option {
	return func(o *options) { o.redisPrefix = prefix }
}

// WithRedisTTL sets an expiry on stored keys. Zero keeps keys forever.
func WithRedisTTL(ttl time.Duration) Option {
	return func(o *options) { o.redisTTL = ttl }
}

// New creates a store for the given driver type.
func New(t Type, opts ...Option) (Store, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	switch t {
	case TypeFile, "":
		if o.dir == "" {
			return nil, fmt.Errorf("%w: file driver needs a directory", ErrInvalidConfig)
		}
		return NewFileStore(o.dir)

	case TypeSQLite:
		if o.dbPath == "" {
			return nil, fmt.Errorf("%w: sqlite driver needs a database path", ErrInvalidConfig)
		}
		return NewSQLiteStore(o.dbPath)

	case TypeRedis:
		client := o.redisClient
		if client == nil {
			if o.redisURL == "" {
				return nil, fmt.Errorf("%w: redis driver needs a url or client", ErrInvalidConfig)
			}
			redisOpts, err := redis.ParseURL(o.redisURL)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
			}
			client = redis.NewClient(redisOpts)
		}
		return NewRedisStore(client, o.redisPrefix, o.redisTTL), nil

	case TypeMemory:
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, t)
	}
}
