// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// SESSION SELECTION
// =============================================================================

// Sessions returns every session, most recently updated first.
func (c *Controller) Sessions() []*model.Session {
	return c.sessions.List()
}

// Session returns a snapshot of one session.
func (c *Controller) Session(id string) (*model.Session, error) {
	return c.sessions.Get(id)
}

// NewSession creates a session bound to the default model and selects it.
func (c *Controller) NewSession(ctx context.Context) (*model.Session, error) {
	s, err := c.sessions.Create(ctx, c.Settings().DefaultModel)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Select(s.ID); err != nil {
		return nil, err
	}
	c.notifySessions()
	return s, nil
}

// Select makes id the active session.
func (c *Controller) Select(id string) error {
	if err := c.sessions.Select(id); err != nil {
		return err
	}
	c.notifySessions()
	return nil
}

// Active returns the selected session or ErrNoSession.
func (c *Controller) Active() (*model.Session, error) {
	id := c.sessions.ActiveID()
	if id == "" {
		return nil, ErrNoSession
	}
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, ErrNoSession
	}
	return s, nil
}

// ActiveID returns the selected session id or "".
func (c *Controller) ActiveID() string {
	return c.sessions.ActiveID()
}

// Delete cancels any send for the session and removes it. It reports
// whether the deleted session was the active one.
func (c *Controller) Delete(ctx context.Context, id string) (bool, error) {
	c.cancelAndWait(ctx, id)

	wasActive, err := c.sessions.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	c.notifySessions()
	return wasActive, nil
}

// Rename sets a session title.
func (c *Controller) Rename(ctx context.Context, id, title string) error {
	if err := c.sessions.Rename(ctx, id, title); err != nil {
		return err
	}
	c.notifySessions()
	return nil
}

// =============================================================================
// SESSION SETTINGS
// =============================================================================

// SetModel binds a session to a model name.
func (c *Controller) SetModel(ctx context.Context, id, modelName string) error {
	modelName = strings.TrimSpace(modelName)
	return c.sessions.Update(ctx, id, func(s *model.Session) error {
		s.Model = modelName
		return nil
	})
}

// SetSystemPrompt stores a copy of text as the session's system prompt.
// An empty text removes it.
func (c *Controller) SetSystemPrompt(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	return c.sessions.Update(ctx, id, func(s *model.Session) error {
		s.SystemPrompt = text
		return nil
	})
}

// ApplyTemplate copies a library template's text into the session. Later
// edits to the template do not affect the session.
func (c *Controller) ApplyTemplate(ctx context.Context, id, key string) (model.PromptTemplate, error) {
	t, err := c.prompts.Get(key)
	if err != nil {
		return model.PromptTemplate{}, err
	}
	if err := c.SetSystemPrompt(ctx, id, t.Prompt); err != nil {
		return model.PromptTemplate{}, fmt.Errorf("apply template %s: %w", key, err)
	}
	return t, nil
}
