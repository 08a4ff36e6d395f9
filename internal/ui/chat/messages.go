// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea messages used by the chat view:
//   - Controller events forwarded by the Bridge
//   - Results of controller calls run as commands
//   - Ticks and transient status text

package chat

import (
	"time"

	chatctl "github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// CONTROLLER EVENTS
// =============================================================================

// ConnectionMsg reports a connection state change.
type ConnectionMsg struct {
	State  model.ConnectionState
	Models []string
}

// StateMsg reports a send lifecycle transition for a session.
type StateMsg struct {
	SessionID string
	State     chatctl.State
}

// SessionsChangedMsg signals that the session list changed.
type SessionsChangedMsg struct{}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// SendDoneMsg carries the result of a send.
type SendDoneMsg struct {
	SessionID string
	Outcome   chatctl.Outcome
	Err       error
}

// ResetDoneMsg carries the result of a reset.
type ResetDoneMsg struct {
	SessionID string
	Err       error
}

// ActionDoneMsg carries the result of a slash command or other action run
// off the update loop.
type ActionDoneMsg struct {
	Status string
	Err    error
}

// =============================================================================
// UI
// =============================================================================

// StreamTickMsg drives throttled re-rendering while replies stream.
type StreamTickMsg struct {
	Time time.Time
}

// statusTimeout is how long transient status text stays visible.
const statusTimeout = 4 * time.Second

// clearStatusMsg clears status text set at the given time.
type clearStatusMsg struct {
	setAt time.Time
}
