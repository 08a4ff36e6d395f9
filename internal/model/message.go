// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ErrorReply is the fixed assistant text appended when a send fails.
const ErrorReply = "Sorry, I encountered an error while processing your message. " +
	"Please check your connection and try again."

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a session.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Images holds base64 encoded image payloads attached by the user.
	Images []string `json:"images,omitempty"`

	IsError bool `json:"isError,omitempty"`

	// Generation stats, set when the server reported them.
	TokenCount   int     `json:"tokenCount,omitempty"`
	TokensPerSec float64 `json:"tokensPerSec,omitempty"`

	// streaming is true only for the in-flight assistant message.
	streaming bool
}

// NewUserMessage creates a user message, optionally carrying images.
func NewUserMessage(content string, images ...string) *Message {
	msg := &Message{
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
	if len(images) > 0 {
		msg.Images = append([]string(nil), images...)
	}
	return msg
}

// NewStreamingMessage creates the empty assistant message that receives deltas.
func NewStreamingMessage() *Message {
	return &Message{
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		streaming: true,
	}
}

// NewErrorMessage creates the error-flagged assistant reply.
func NewErrorMessage() *Message {
	return &Message{
		Role:      RoleAssistant,
		Content:   ErrorReply,
		Timestamp: time.Now(),
		IsError:   true,
	}
}

// IsStreaming reports whether the message still accepts deltas.
func (m *Message) IsStreaming() bool {
	return m.streaming
}

// AppendDelta appends a content fragment to a streaming message. It reports
// false and leaves the message untouched once the message is finalized.
func (m *Message) AppendDelta(delta string) bool {
	if !m.streaming {
		return false
	}
	m.Content += delta
	return true
}

// Finalize freezes the message. Later AppendDelta calls are ignored.
func (m *Message) Finalize() {
	m.streaming = false
}

// Preview returns a one-line preview of at most maxLen runes plus ellipsis.
func (m *Message) Preview(maxLen int) string {
	return util.Ellipsize(util.SingleLine(m.Content), maxLen)
}

// HasImages reports whether the message carries image payloads.
func (m *Message) HasImages() bool {
	return len(m.Images) > 0
}

// Clone returns a deep copy. The copy is never streaming.
func (m *Message) Clone() *Message {
	c := *m
	c.streaming = false
	if m.Images != nil {
		c.Images = append([]string(nil), m.Images...)
	}
	return &c
}

// IsBlank reports whether text is empty after trimming whitespace.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
