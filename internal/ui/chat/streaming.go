// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file throttles rendering while replies stream. Deltas are written to
// a StreamingBuffer from the controller goroutine and the view re-renders
// on a capped frame-rate tick instead of once per fragment.

package chat

import (
	"crypto/sha256"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches deltas for rendering. It is flushed when the batch
// size is reached or enough time passed since the last flush.
//
// Write is called from the streaming goroutine and Flush from the Bubble Tea
// loop, so every operation takes the mutex.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize  int
	maxFPS     int
	minFlushMs time.Duration
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamingBuffer creates a buffer flushing every 15 deltas or ~33ms.
func NewStreamingBuffer() *StreamingBuffer {
	return NewStreamingBufferWithConfig(defaultBatchSize, defaultMaxFPS)
}

// NewStreamingBufferWithConfig creates a buffer with custom thresholds.
// Out-of-range values fall back to the defaults.
func NewStreamingBufferWithConfig(batchSize, maxFPS int) *StreamingBuffer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &StreamingBuffer{
		batchSize:  batchSize,
		maxFPS:     maxFPS,
		minFlushMs: time.Duration(1000/maxFPS) * time.Millisecond,
		lastFlush:  time.Now(),
	}
}

// Write adds a delta.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns the buffered text if a threshold was reached.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if !sb.shouldFlushLocked() {
		return "", false
	}
	return sb.takeLocked(), true
}

// ForceFlush returns the buffered text regardless of thresholds. Use it
// once a reply settles so the tail is rendered.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.takeLocked(), true
}

func (sb *StreamingBuffer) takeLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content
}

// shouldFlushLocked must be called with mu held.
func (sb *StreamingBuffer) shouldFlushLocked() bool {
	if sb.buffer.Len() == 0 {
		return false
	}
	if sb.tokenCount >= sb.batchSize {
		return true
	}
	return time.Since(sb.lastFlush) >= sb.minFlushMs
}

// Reset drops buffered text.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of deltas waiting to be flushed.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

// GetConfig returns the buffer thresholds.
func (sb *StreamingBuffer) GetConfig() (batchSize, maxFPS int, minFlushMs time.Duration) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.batchSize, sb.maxFPS, sb.minFlushMs
}

// =============================================================================
// VIEWPORT OPTIMIZER
// =============================================================================

// ViewportOptimizer skips viewport updates when the rendered content did
// not change. It is only used from the Bubble Tea loop.
type ViewportOptimizer struct {
	lastHash    [sha256.Size]byte
	hasContent  bool
	updateCount uint64
	skipCount   uint64
}

// NewViewportOptimizer returns an optimizer that accepts the first update.
func NewViewportOptimizer() *ViewportOptimizer {
	return &ViewportOptimizer{}
}

// ShouldUpdate reports whether content differs from the last accepted one.
func (vo *ViewportOptimizer) ShouldUpdate(content string) bool {
	vo.updateCount++
	h := sha256.Sum256([]byte(content))
	if vo.hasContent && h == vo.lastHash {
		vo.skipCount++
		return false
	}
	vo.lastHash = h
	vo.hasContent = true
	return true
}

// ForceUpdate makes the next ShouldUpdate return true.
func (vo *ViewportOptimizer) ForceUpdate() {
	vo.hasContent = false
}

// Stats returns attempted and skipped update counts.
func (vo *ViewportOptimizer) Stats() (total, skipped uint64) {
	return vo.updateCount, vo.skipCount
}

// =============================================================================
// STREAMING TICK
// =============================================================================

// streamTickInterval matches the buffer's default frame rate.
const streamTickInterval = time.Second / defaultMaxFPS

// streamTickCmd schedules the next StreamTickMsg.
func streamTickCmd() tea.Cmd {
	return tea.Tick(streamTickInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
