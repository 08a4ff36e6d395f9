// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	chatctl "github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.busy() {
			m.ctrl.Cancel(m.activeID)
			return m, m.setStatus("Stopping reply...")
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.busy() {
			m.ctrl.Cancel(m.activeID)
			return m, m.setStatus("Stopping reply...")
		}
		if len(m.images) > 0 {
			m.clearAttachments()
			return m, m.setStatus("Attachments cleared")
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Newline):
		m.input.InsertString("\n")
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m, m.newChatCmd()

	case key.Matches(msg, m.keys.Reset):
		return m.reset()

	case key.Matches(msg, m.keys.NextChat):
		return m.switchRelative(1)

	case key.Matches(msg, m.keys.PrevChat):
		return m.switchRelative(-1)

	case key.Matches(msg, m.keys.DeleteChat):
		return m, m.deleteCmd(m.activeID)

	case key.Matches(msg, m.keys.Sidebar):
		m.showSidebar = !m.showSidebar
		m.layout()
		m.optimizer.ForceUpdate()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Reconnect):
		return m, tea.Batch(m.setStatus("Connecting..."), m.connectCmd())

	case key.Matches(msg, m.keys.CycleModels):
		return m.cycleModel()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input or runs it as a slash command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.runSlash(text)
	}
	if text == "" && len(m.images) == 0 {
		return m, nil
	}
	if m.activeID == "" {
		return m, m.setError(chatctl.ErrNoSession)
	}
	if m.busy() {
		return m, m.setStatus("Wait for the reply or press Esc to stop it")
	}
	if m.conn != model.Connected {
		return m, tea.Batch(m.setError(chatctl.ErrNotConnected), m.connectCmd())
	}
	if s := m.active(); s != nil && s.Model == "" {
		return m, m.setError(chatctl.ErrNoModel)
	}

	id := m.activeID
	images := m.images
	m.input.Reset()
	m.clearAttachments()
	m.sending[id] = true
	m.optimizer.ForceUpdate()

	logging.Debug("TUI_SEND", logging.Fields{"session": id, "images": len(images)})
	return m, tea.Batch(m.sendCmd(id, text, images), m.startTicking())
}

func (m Model) reset() (tea.Model, tea.Cmd) {
	if m.activeID == "" {
		return m, nil
	}
	return m, tea.Batch(m.setStatus("Clearing chat..."), m.resetCmd(m.activeID))
}

// switchRelative selects the session delta places away in the list.
func (m Model) switchRelative(delta int) (tea.Model, tea.Cmd) {
	if len(m.sessions) == 0 {
		return m, nil
	}
	idx := 0
	for i, s := range m.sessions {
		if s.ID == m.activeID {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(m.sessions)) % len(m.sessions)
	if err := m.ctrl.Select(m.sessions[idx].ID); err != nil {
		return m, m.setError(err)
	}
	m.activeID = m.sessions[idx].ID
	m.optimizer.ForceUpdate()
	m.refresh()
	m.viewport.GotoBottom()
	return m, nil
}

// cycleModel moves the active session to the next available model.
func (m Model) cycleModel() (tea.Model, tea.Cmd) {
	s := m.active()
	if s == nil || len(m.models) == 0 {
		return m, nil
	}
	next := m.models[0]
	for i, name := range m.models {
		if name == s.Model {
			next = m.models[(i+1)%len(m.models)]
			break
		}
	}
	return m, m.setModelCmd(s.ID, next)
}

func (m *Model) clearAttachments() {
	hadImages := len(m.imageNames) > 0
	m.images = nil
	m.imageNames = nil
	if hadImages && m.ready {
		m.layout()
	}
}

// =============================================================================
// CONTROLLER ACTIONS
// =============================================================================

func (m Model) newChatCmd() tea.Cmd {
	ctrl := m.ctrl
	return m.actionCmd(func(ctx context.Context) (string, error) {
		if _, err := ctrl.NewSession(ctx); err != nil {
			return "", err
		}
		return "New chat", nil
	})
}

func (m Model) deleteCmd(id string) tea.Cmd {
	if id == "" {
		return nil
	}
	ctrl := m.ctrl
	return m.actionCmd(func(ctx context.Context) (string, error) {
		if _, err := ctrl.Delete(ctx, id); err != nil {
			return "", err
		}
		// Keep a chat open so typing always has a target.
		if _, err := ctrl.Active(); err != nil {
			if list := ctrl.Sessions(); len(list) > 0 {
				if err := ctrl.Select(list[0].ID); err != nil {
					return "", err
				}
			} else if _, err := ctrl.NewSession(ctx); err != nil {
				return "", err
			}
		}
		return "Chat deleted", nil
	})
}

func (m Model) setModelCmd(id, name string) tea.Cmd {
	ctrl := m.ctrl
	return m.actionCmd(func(ctx context.Context) (string, error) {
		if err := ctrl.SetModel(ctx, id, name); err != nil {
			return "", err
		}
		return "Model: " + name, nil
	})
}

// attach reads an image file for the next message.
func (m Model) attach(path string) (tea.Model, tea.Cmd) {
	img, err := m.app.AttachImage(path)
	if err != nil {
		return m, m.setError(err)
	}
	m.images = append(m.images, img)
	m.imageNames = append(m.imageNames, filepath.Base(path))
	if m.ready {
		m.layout()
	}
	return m, m.setStatus("Attached " + filepath.Base(path))
}
