// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"time"
)

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// StreamStats holds statistics collected during streaming.
type StreamStats struct {
	// Timing
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Durations (from the final record)
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration

	// Token counts (from the final record)
	PromptTokens     int
	CompletionTokens int

	// Engine counters
	Deltas         int
	SkippedRecords int
	DoneReason     string

	// Computed
	TTFT            time.Duration // Time to first token
	TokensPerSecond float64
}

// NewStreamStats creates a new StreamStats with start time set.
func NewStreamStats() *StreamStats {
	return &StreamStats{
		StartTime: time.Now(),
	}
}

// RecordFirstToken marks the time of first token arrival.
func (s *StreamStats) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize copies the server counters from the done record.
func (s *StreamStats) Finalize(rec streamRecord) {
	s.EndTime = time.Now()
	s.DoneReason = rec.DoneReason
	s.TotalDuration = time.Duration(rec.TotalDuration)
	s.LoadDuration = time.Duration(rec.LoadDuration)
	s.PromptEvalDuration = time.Duration(rec.PromptEvalDuration)
	s.EvalDuration = time.Duration(rec.EvalDuration)
	s.PromptTokens = rec.PromptEvalCount
	s.CompletionTokens = rec.EvalCount

	if s.EvalDuration > 0 {
		s.TokensPerSecond = float64(s.CompletionTokens) / s.EvalDuration.Seconds()
	}
}

// Complete reports whether a done record was received.
func (s *StreamStats) Complete() bool {
	return !s.EndTime.IsZero()
}

// Format returns a one-line summary.
func (s *StreamStats) Format() string {
	return formatStatsDuration(s.TotalDuration.Seconds()) + " | " +
		formatStatsInt(s.CompletionTokens) + " tokens | " +
		formatStatsFloat(s.TokensPerSecond) + " tok/s | " +
		"TTFT " + formatStatsInt(int(s.TTFT.Milliseconds())) + "ms"
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// formatStatsInt formats an integer without using fmt.
func formatStatsInt(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	if negative {
		return "-" + string(digits)
	}
	return string(digits)
}

// formatStatsFloat formats a float with one decimal place.
func formatStatsFloat(f float64) string {
	whole := int(f)
	frac := int((f - float64(whole)) * 10)
	if frac < 0 {
		frac = -frac
	}
	return formatStatsInt(whole) + "." + formatStatsInt(frac)
}

// formatStatsDuration formats seconds as a short duration string.
func formatStatsDuration(seconds float64) string {
	if seconds < 1 {
		return formatStatsInt(int(seconds*1000)) + "ms"
	}
	return formatStatsFloat(seconds) + "s"
}
