// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"sync"

	"github.com/jeranaias/rigchat/internal/chat"
)

// Printer echoes streamed deltas of one followed session to a writer.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	follow string
	wrote  bool
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Hooks returns controller hooks that feed the printer.
func (p *Printer) Hooks() chat.Hooks {
	return chat.Hooks{OnDelta: p.onDelta}
}

// Follow starts echoing deltas for id. An empty id stops echoing.
func (p *Printer) Follow(id string) {
	p.mu.Lock()
	p.follow = id
	p.wrote = false
	p.mu.Unlock()
}

// Wrote reports whether any delta was echoed since the last Follow.
func (p *Printer) Wrote() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wrote
}

func (p *Printer) onDelta(id, delta string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.follow == "" || id != p.follow {
		return
	}
	io.WriteString(p.out, delta)
	p.wrote = true
}
