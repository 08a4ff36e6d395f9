// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"slices"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
)

// =============================================================================
// CONNECTION
// =============================================================================

// Connect probes the server and, when reachable, refreshes the model list.
// It never fails; the result is the new connection state.
func (c *Controller) Connect(ctx context.Context) model.ConnectionState {
	c.setConnection(model.Connecting, nil)

	state := c.client.Probe(ctx)
	var models []string
	if state == model.Connected {
		models = c.client.ListModelNames(ctx)
	}
	c.setConnection(state, models)

	logging.Info("CONNECTION", logging.Fields{
		"endpoint": c.client.BaseURL(),
		"state":    state.String(),
		"models":   len(models),
	})
	return state
}

func (c *Controller) setConnection(state model.ConnectionState, models []string) {
	c.mu.Lock()
	c.conn = state
	if state != model.Connecting {
		c.models = models
	}
	models = slices.Clone(c.models)
	c.mu.Unlock()

	if c.hooks.OnConnection != nil {
		c.hooks.OnConnection(state, models)
	}
}

// ConnectionState returns the result of the last probe.
func (c *Controller) ConnectionState() model.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Models returns the model names advertised at the last successful probe.
func (c *Controller) Models() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.models)
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns the effective settings.
func (c *Controller) Settings() model.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SaveSettings validates and persists s, points the client at the new
// endpoint and re-probes. Empty fields keep their current values.
func (c *Controller) SaveSettings(ctx context.Context, s model.Settings) (model.ConnectionState, error) {
	merged := s.MergeOver(c.Settings())

	if c.store != nil {
		if err := config.SaveSettings(ctx, c.store, merged); err != nil {
			return c.ConnectionState(), err
		}
	} else if err := config.ValidateEndpoint(merged.Endpoint); err != nil {
		return c.ConnectionState(), config.ValidationError{Field: "endpoint", Message: err.Error()}
	}

	c.mu.Lock()
	c.settings = merged
	c.mu.Unlock()

	c.client.SetBaseURL(merged.Endpoint)
	return c.Connect(ctx), nil
}

// UseEndpoint points the client at endpoint for this process only. The
// saved settings are left unchanged.
func (c *Controller) UseEndpoint(endpoint string) error {
	if err := config.ValidateEndpoint(endpoint); err != nil {
		return config.ValidationError{Field: "endpoint", Message: err.Error()}
	}
	c.mu.Lock()
	c.settings.Endpoint = endpoint
	c.mu.Unlock()
	c.client.SetBaseURL(endpoint)
	return nil
}

// TestConnection probes endpoint without touching the saved settings.
func (c *Controller) TestConnection(ctx context.Context, endpoint string) (model.ConnectionState, error) {
	if err := config.ValidateEndpoint(endpoint); err != nil {
		return model.Disconnected, config.ValidationError{Field: "endpoint", Message: err.Error()}
	}
	return ollama.NewClient(endpoint).Probe(ctx), nil
}
