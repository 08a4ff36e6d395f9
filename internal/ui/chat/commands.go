// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// slashHelp is shown by /help in the status bar.
const slashHelp = "/new /clear /model NAME /system TEXT /prompt KEY /image PATH /rename TITLE /export [FILE] /endpoint URL /delete /quit"

// runSlash executes a "/command args" line typed into the input.
func (m Model) runSlash(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return m, m.setStatus(slashHelp)
	}
	name := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "/"), fields[0]))
	id := m.activeID
	ctrl := m.ctrl

	switch name {
	case "help", "?":
		m.showHelp = true
		return m, m.setStatus(slashHelp)

	case "quit", "exit", "q":
		return m, tea.Quit

	case "new", "n":
		return m, m.newChatCmd()

	case "clear", "reset":
		return m.reset()

	case "delete", "rm":
		return m, m.deleteCmd(id)

	case "connect":
		return m, tea.Batch(m.setStatus("Connecting..."), m.connectCmd())

	case "models":
		if len(m.models) == 0 {
			return m, m.setStatus("No models available")
		}
		return m, m.setStatus("Models: " + strings.Join(m.models, ", "))

	case "model", "m":
		if arg == "" {
			if s := m.active(); s != nil && s.Model != "" {
				return m, m.setStatus("Model: " + s.Model)
			}
			return m, m.setStatus("No model selected. Use /model NAME")
		}
		return m, m.setModelCmd(id, arg)

	case "system":
		if strings.EqualFold(arg, "clear") {
			arg = ""
		}
		return m, m.actionCmd(func(ctx context.Context) (string, error) {
			if err := ctrl.SetSystemPrompt(ctx, id, arg); err != nil {
				return "", err
			}
			if arg == "" {
				return "System prompt removed", nil
			}
			return "System prompt set", nil
		})

	case "prompt", "prompts":
		if arg == "" {
			var keys []string
			for _, t := range ctrl.Prompts().List() {
				keys = append(keys, t.Key)
			}
			return m, m.setStatus("Prompts: " + strings.Join(keys, ", "))
		}
		return m, m.actionCmd(func(ctx context.Context) (string, error) {
			t, err := ctrl.ApplyTemplate(ctx, id, arg)
			if err != nil {
				return "", err
			}
			return "Using prompt " + t.Name, nil
		})

	case "image", "img":
		if arg == "" {
			return m, m.setStatus(fmt.Sprintf("%d image(s) attached", len(m.images)))
		}
		if strings.EqualFold(arg, "clear") {
			m.clearAttachments()
			return m, m.setStatus("Attachments cleared")
		}
		return m.attach(arg)

	case "rename":
		if arg == "" {
			return m, m.setError(errors.New("usage: /rename TITLE"))
		}
		return m, m.actionCmd(func(ctx context.Context) (string, error) {
			return "Renamed", ctrl.Rename(ctx, id, arg)
		})

	case "export":
		s := m.active()
		if s == nil {
			return m, nil
		}
		path := arg
		if path == "" {
			path = session.ExportFileName(s)
		}
		return m, m.actionCmd(func(context.Context) (string, error) {
			if err := util.AtomicWriteFile(path, []byte(session.ExportMarkdown(s)), 0600); err != nil {
				return "", err
			}
			return "Exported to " + path, nil
		})

	case "endpoint", "url":
		if arg == "" {
			return m, m.setStatus("Endpoint: " + ctrl.Settings().Endpoint)
		}
		return m, m.actionCmd(func(ctx context.Context) (string, error) {
			state, err := ctrl.SaveSettings(ctx, model.Settings{Endpoint: arg})
			if err != nil {
				return "", err
			}
			return "Endpoint saved. " + state.String(), nil
		})
	}

	return m, m.setError(fmt.Errorf("unknown command /%s", name))
}
