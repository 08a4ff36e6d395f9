// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key/value blob store behind rigchat's
// persisted state.
//
// Callers see an opaque get/set-by-key store of JSON documents. Three
// logical keys are used: the settings singleton, the session collection and
// the prompt-template collection.
//
// # Drivers
//
//   - file: one JSON file per key under a data directory, written atomically
//   - sqlite: a single kv table in a local SQLite database (modernc.org/sqlite)
//   - redis: one Redis string per key under a prefix
//   - memory: process-local map, used by tests and --ephemeral runs
//
// # Usage
//
//	store, err := storage.New(storage.TypeFile, storage.WithDir(dataDir))
//	var sessions []*model.Session
//	err = storage.LoadJSON(ctx, store, storage.KeySessions, &sessions)
//	err = storage.SaveJSON(ctx, store, storage.KeySessions, sessions)
package storage
