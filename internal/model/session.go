// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/rigchat/internal/util"
)

const (
	// DefaultTitle is the title of a session that has no messages yet.
	DefaultTitle = "New Chat"

	// TitleLength is how many runes of the first message become the title.
	TitleLength = 50

	// PreviewLength is how many runes of the last message are shown in lists.
	PreviewLength = 60

	// EmptyPreview is shown for sessions without messages.
	EmptyPreview = "No messages yet"
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds one conversation thread.
type Session struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Model        string     `json:"model"`
	Messages     []*Message `json:"messages"`
	SystemPrompt string     `json:"systemPrompt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NewSession creates an empty session with a fresh ID.
func NewSession(defaultModel string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Model:     defaultModel,
		Messages:  make([]*Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch refreshes UpdatedAt.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}

// AddMessage appends msg and refreshes UpdatedAt.
func (s *Session) AddMessage(msg *Message) {
	s.Messages = append(s.Messages, msg)
	s.Touch()
}

// LastMessage returns the most recent message, or nil if empty.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// ClearHistory removes every message and restores the default title.
func (s *Session) ClearHistory() {
	s.Messages = make([]*Message, 0)
	s.Title = DefaultTitle
	s.Touch()
}

// IsEmpty returns true if there are no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// Preview returns a one-line preview of the last message for session lists.
func (s *Session) Preview() string {
	last := s.LastMessage()
	if last == nil {
		return EmptyPreview
	}
	return last.Preview(PreviewLength)
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = make([]*Message, len(s.Messages))
	for i, msg := range s.Messages {
		c.Messages[i] = msg.Clone()
	}
	return &c
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// DeriveTitle returns the session title for a first message: the first
// TitleLength runes, with an ellipsis marker when the text is longer.
func DeriveTitle(text string) string {
	return util.Ellipsize(text, TitleLength)
}
