// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// =============================================================================
// SEND STATE
// =============================================================================

// State is the lifecycle position of a send operation.
type State int

const (
	Idle State = iota
	Sending
	Streaming
	Settled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	case Settled:
		return "settled"
	default:
		return "idle"
	}
}

// operation tracks one in-flight send.
type operation struct {
	mu         sync.Mutex
	state      State
	cancelFunc context.CancelFunc
	done       chan struct{}
}

func newOperation(cancel context.CancelFunc) *operation {
	return &operation{
		state:      Sending,
		cancelFunc: cancel,
		done:       make(chan struct{}),
	}
}

func (op *operation) setState(s State) {
	op.mu.Lock()
	op.state = s
	op.mu.Unlock()
}

func (op *operation) getState() State {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

// cancel is safe to call repeatedly.
func (op *operation) cancel() {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.cancelFunc != nil {
		op.cancelFunc()
		op.cancelFunc = nil
	}
}

// wait blocks until the operation settles or ctx ends.
func (op *operation) wait(ctx context.Context) bool {
	select {
	case <-op.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// begin registers an operation for id, failing if one is already running.
func (c *Controller) begin(id string, cancel context.CancelFunc) (*operation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inflight[id]; busy {
		return nil, ErrAlreadySending
	}
	op := newOperation(cancel)
	c.inflight[id] = op
	return op, nil
}

// end unregisters op and releases waiters.
func (c *Controller) end(id string, op *operation) {
	op.cancel()
	op.setState(Settled)

	c.mu.Lock()
	if c.inflight[id] == op {
		delete(c.inflight, id)
	}
	c.mu.Unlock()

	close(op.done)
}

// State returns the send state of a session.
func (c *Controller) State(id string) State {
	c.mu.Lock()
	op := c.inflight[id]
	c.mu.Unlock()

	if op == nil {
		return Idle
	}
	return op.getState()
}

// Busy reports whether a send is in flight for the session.
func (c *Controller) Busy(id string) bool {
	return c.State(id) != Idle
}

// Cancel stops the in-flight send for a session. Partial reply text is kept.
// It reports whether a send was running.
func (c *Controller) Cancel(id string) bool {
	c.mu.Lock()
	op := c.inflight[id]
	c.mu.Unlock()

	if op == nil {
		return false
	}
	op.cancel()
	return true
}

// cancelAndWait cancels any send for id and waits for it to settle.
func (c *Controller) cancelAndWait(ctx context.Context, id string) {
	c.mu.Lock()
	op := c.inflight[id]
	c.mu.Unlock()

	if op == nil {
		return
	}
	op.cancel()
	op.wait(ctx)
}
