// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/rigchat/internal/storage"
)

// DatabaseFile is the sqlite database name inside DataDir.
const DatabaseFile = "rigchat.db"

// Open constructs the configured persistent store.
func (s StorageConfig) Open() (storage.Store, error) {
	switch storage.Type(s.Driver) {
	case storage.TypeFile, "":
		return storage.New(storage.TypeFile, storage.WithDir(s.DataDir))
	case storage.TypeSQLite:
		if err := os.MkdirAll(s.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return storage.New(storage.TypeSQLite, storage.WithDatabasePath(filepath.Join(s.DataDir, DatabaseFile)))
	case storage.TypeRedis:
		return storage.New(storage.TypeRedis,
			storage.WithRedisURL(s.RedisURL),
			storage.WithRedisPrefix(s.RedisPrefix))
	default:
		return storage.New(storage.Type(s.Driver))
	}
}

// PersistEveryDelta reports whether sessions are written after each
// streamed fragment rather than once per reply.
func (s StorageConfig) PersistEveryDelta() bool {
	return s.Persist != PersistEnd
}

// ProbeTimeout returns the probe timeout as a duration.
func (s ServerConfig) ProbeTimeout() time.Duration {
	return time.Duration(s.ProbeTimeoutSecs) * time.Second
}

// RequestTimeout returns the request timeout as a duration.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}
