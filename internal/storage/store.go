// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Logical keys of the persisted blobs.
const (
	KeySettings = "ollama-settings"
	KeySessions = "ollama-chats"
	KeyPrompts  = "ollama-system-prompts"
)

// Store is an opaque blob store addressed by logical key.
//
// Save must be durable when it returns: a crash right after a successful
// Save never loses the written value.
type Store interface {
	// Load returns the blob stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the blob stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned by Load when the key has never been saved.
var ErrNotFound = errors.New("storage: key not found")

// ErrInvalidKey is returned for empty keys or keys that cannot be mapped
// onto the driver's namespace.
var ErrInvalidKey = errors.New("storage: invalid key")

// ErrInvalidConfig is returned by New when a driver is missing a required option.
var ErrInvalidConfig = errors.New("storage: invalid configuration")

// validateKey accepts lowercase-ish identifiers safe for every driver.
func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\:*?"<>|`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// =============================================================================
// JSON HELPERS
// =============================================================================

// LoadJSON decodes the blob under key into v. It returns ErrNotFound
// unchanged so callers can fall back to defaults.
func LoadJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Save(ctx, key, data)
}
