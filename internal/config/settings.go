// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

// LoadSettings reads the persisted Settings and merges them over defaults.
// A missing or unreadable record yields the defaults.
func LoadSettings(ctx context.Context, store storage.Store, defaults model.Settings) model.Settings {
	var saved model.Settings
	err := storage.LoadJSON(ctx, store, storage.KeySettings, &saved)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return defaults
	case err != nil:
		logging.Warn("SETTINGS_LOAD_FAILED", logging.Fields{"error": err.Error()})
		return defaults
	}
	return saved.MergeOver(defaults)
}

// SaveSettings persists s after validating the endpoint.
func SaveSettings(ctx context.Context, store storage.Store, s model.Settings) error {
	if s.Endpoint != "" {
		if err := ValidateEndpoint(s.Endpoint); err != nil {
			return ValidationError{Field: "endpoint", Message: err.Error()}
		}
	}
	return storage.SaveJSON(ctx, store, storage.KeySettings, s)
}
