// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Settings is the user-editable server configuration.
type Settings struct {
	Endpoint     string `json:"endpoint"`
	DefaultModel string `json:"defaultModel"`
}

// MergeOver returns defaults with every non-empty field of s laid over it.
// The merge is shallow: each field is taken whole from one side.
func (s Settings) MergeOver(defaults Settings) Settings {
	out := defaults
	if s.Endpoint != "" {
		out.Endpoint = s.Endpoint
	}
	if s.DefaultModel != "" {
		out.DefaultModel = s.DefaultModel
	}
	return out
}

// =============================================================================
// CONNECTION STATE
// =============================================================================

// ConnectionState is the reachability of the inference server as seen by
// the last capability probe.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

// String returns the display label for the state.
func (c ConnectionState) String() string {
	switch c {
	case Connected:
		return "Connected"
	case Connecting:
		return "Connecting..."
	default:
		return "Disconnected"
	}
}
