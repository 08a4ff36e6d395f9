// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	chatctl "github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
)

// Bridge forwards controller hooks into a running Bubble Tea program.
//
// The controller is created before the program exists, so the program is
// attached later. Events raised before Attach are dropped; the view reads
// current state from the controller when it starts. Deltas are not sent as
// messages at all: they go into the StreamingBuffer that the view drains on
// its frame tick.
type Bridge struct {
	program atomic.Pointer[tea.Program]
	buffer  *StreamingBuffer
}

// NewBridge creates an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{buffer: NewStreamingBuffer()}
}

// Attach starts forwarding events to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.program.Store(p)
}

// Buffer returns the delta buffer shared with the view.
func (b *Bridge) Buffer() *StreamingBuffer {
	return b.buffer
}

// send delivers msg without blocking the caller. Hooks may fire while the
// update loop itself is calling into the controller.
func (b *Bridge) send(msg tea.Msg) {
	if p := b.program.Load(); p != nil {
		go p.Send(msg)
	}
}

// Hooks returns controller hooks bound to this bridge.
func (b *Bridge) Hooks() chatctl.Hooks {
	return chatctl.Hooks{
		OnConnection: func(state model.ConnectionState, models []string) {
			b.send(ConnectionMsg{State: state, Models: models})
		},
		OnStateChange: func(id string, state chatctl.State) {
			b.send(StateMsg{SessionID: id, State: state})
		},
		OnDelta: func(_, delta string) {
			b.buffer.Write(delta)
		},
		OnSessionsChanged: func() {
			b.send(SessionsChangedMsg{})
		},
	}
}
