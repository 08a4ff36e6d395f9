// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	chatctl "github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

// renderChat assembles header, body, input and status bar.
func (m Model) renderChat() string {
	if !m.ready {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.showHelp {
		body = m.renderHelp()
	}
	if sw := m.sidebarWidth(); sw > 0 {
		sidebar := m.renderSidebar(sw-2, m.viewport.Height)
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, body)
	}

	parts := []string{m.renderHeader(), body}
	if len(m.imageNames) > 0 {
		parts = append(parts, m.theme.Attachment.Render(
			fmt.Sprintf("%s %s", styles.StatusIndicators.Warning, strings.Join(m.imageNames, ", "))))
	}
	parts = append(parts,
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.renderStatusBar(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	title := model.DefaultTitle
	modelName := "no model"
	if s := m.active(); s != nil {
		title = s.Title
		if s.Model != "" {
			modelName = s.Model
		}
	}
	left := m.theme.HeaderTitle.Render("rigchat") + "  " + util.Ellipsize(title, max(m.width/2, 10))
	right := m.theme.HeaderMeta.Render(modelName)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderSidebar lists sessions, most recent first.
func (m Model) renderSidebar(width, height int) string {
	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Chats"))
	sb.WriteString("\n")

	rows := 1
	for i, s := range m.sessions {
		if rows >= height {
			break
		}
		label := fmt.Sprintf("%d %s", i+1, util.TruncateRunes(util.SingleLine(s.Title), max(width-5, 4)))
		style := m.theme.SessionItem
		if s.ID == m.activeID {
			style = m.theme.SessionItemSelected
		}
		line := util.PadRight(label, width)
		if m.ctrl.Busy(s.ID) {
			line = util.PadRight(label+" "+styles.StatusIndicators.Active, width)
		}
		sb.WriteString(style.Render(line))
		sb.WriteString("\n")
		rows++
	}
	return m.theme.Sidebar.Width(width).Height(height).Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderStatusBar() string {
	var conn string
	switch m.conn {
	case model.Connected:
		conn = m.theme.Connected.Render(styles.StatusIndicators.Success + " " + m.conn.String())
	case model.Connecting:
		conn = m.theme.Connecting.Render(styles.StatusIndicators.Warning + " " + m.conn.String())
	default:
		conn = m.theme.Disconnected.Render(styles.StatusIndicators.Error + " " + m.conn.String())
	}

	parts := []string{conn}
	if m.busy() {
		label := "Thinking"
		if m.ctrl.State(m.activeID) == chatctl.Streaming {
			label = "Streaming"
		}
		parts = append(parts, m.spinner.View()+" "+label)
	}
	switch {
	case m.status != "" && m.statusErr:
		parts = append(parts, m.theme.ErrorStyle.Render(m.status))
	case m.status != "":
		parts = append(parts, m.status)
	default:
		parts = append(parts, m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	line := strings.Join(parts, "  ")
	return m.theme.StatusBar.Width(m.width).MaxWidth(m.width).Render(line)
}

func (m Model) renderHelp() string {
	h := m.help
	h.ShowAll = true
	return lipgloss.NewStyle().
		Width(m.viewport.Width).
		Height(m.viewport.Height).
		Padding(1, 2).
		Render(h.View(m.keys) + "\n\n" + m.theme.Muted.Render(slashHelp))
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders a session's transcript for a viewport of width.
func (m Model) renderMessages(s *model.Session, width int) string {
	if s == nil {
		return m.theme.Muted.Render("No chat selected. Press C-n to start one.")
	}

	bubbleWidth := max(width-2, 10)
	var sb strings.Builder

	if !model.IsBlank(s.SystemPrompt) {
		sb.WriteString(m.theme.SystemNote.Render("System: " + util.Ellipsize(util.SingleLine(s.SystemPrompt), bubbleWidth-8)))
		sb.WriteString("\n\n")
	}

	if len(s.Messages) == 0 && !m.busy() {
		if s.Model == "" {
			sb.WriteString(m.theme.Muted.Render("Pick a model with /model NAME or C-t, then start typing."))
		} else {
			sb.WriteString(m.theme.Muted.Render("Start typing to chat with " + s.Model + "."))
		}
		return sb.String()
	}

	streaming := m.ctrl.State(s.ID) == chatctl.Streaming
	for i, msg := range s.Messages {
		last := i == len(s.Messages)-1
		sb.WriteString(m.renderMessage(msg, bubbleWidth, last && streaming))
		sb.WriteString("\n\n")
	}

	if m.ctrl.State(s.ID) == chatctl.Sending {
		sb.WriteString(m.theme.AssistantLabel.Render("Assistant") + " " + m.spinner.View() + " " + m.theme.Muted.Render("Thinking..."))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderMessage(msg *model.Message, width int, streaming bool) string {
	clock := m.theme.Timestamp.Render(model.FormatClock(msg.Timestamp))

	if msg.Role == model.RoleUser {
		content := msg.Content
		if n := len(msg.Images); n > 0 {
			note := m.theme.Attachment.Render("[" + strconv.Itoa(n) + " image(s) attached]")
			if content == "" {
				content = note
			} else {
				content += "\n" + note
			}
		}
		return m.theme.UserLabel.Render("You") + " " + clock + "\n" +
			m.theme.UserBubble.Width(width).Render(content)
	}

	header := m.theme.AssistantLabel.Render(msg.Role.DisplayName()) + " " + clock
	if msg.IsError {
		return header + "\n" + m.theme.ErrorBubble.Width(width).Render(
			styles.StatusIndicators.Error+" "+msg.Content)
	}

	var content string
	switch {
	case streaming:
		content = m.theme.AssistantBubble.Width(width).Render(msg.Content + styles.TypingCursor)
	case m.plain:
		content = m.theme.AssistantBubble.Width(width).Render(msg.Content)
	default:
		content = m.markdown.render(msg, width)
	}

	out := header + "\n" + content
	if msg.TokenCount > 0 && !streaming {
		stats := fmt.Sprintf("%d tokens", msg.TokenCount)
		if msg.TokensPerSec > 0 {
			stats += fmt.Sprintf(" | %.1f tok/s", msg.TokensPerSec)
		}
		out += "\n" + m.theme.Stats.Render(stats)
	}
	return out
}

// =============================================================================
// MARKDOWN CACHE
// =============================================================================

// markdownCache renders settled replies with glamour once per width.
type markdownCache struct {
	style     string
	renderers map[int]*glamour.TermRenderer
	rendered  map[string]string
}

func newMarkdownCache(dark bool) *markdownCache {
	style := "light"
	if dark {
		style = "dark"
	}
	return &markdownCache{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		rendered:  make(map[string]string),
	}
}

func (c *markdownCache) render(msg *model.Message, width int) string {
	content := msg.Content
	key := fmt.Sprintf("%d/%d/%d", msg.Timestamp.UnixNano(), width, len(content))
	if out, ok := c.rendered[key]; ok {
		return out
	}

	r, ok := c.renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(c.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		c.renderers[width] = r
	}

	out, err := r.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	c.rendered[key] = out
	return out
}
