// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// EXPORT
// =============================================================================

var (
	nonFileChars = regexp.MustCompile(`[^a-z0-9-]+`)
	dashRun      = regexp.MustCompile(`-{2,}`)
)

// ExportMarkdown renders a session as a Markdown document.
func ExportMarkdown(s *model.Session) string {
	var sb strings.Builder
	sb.WriteString("# " + s.Title + "\n\n")
	sb.WriteString("Model: " + s.Model + "  \n")
	sb.WriteString("Created: " + s.CreatedAt.Format(time.RFC3339) + "\n\n")
	if !model.IsBlank(s.SystemPrompt) {
		sb.WriteString("> " + strings.ReplaceAll(strings.TrimSpace(s.SystemPrompt), "\n", "\n> ") + "\n\n")
	}
	sb.WriteString("---\n\n")

	for _, msg := range s.Messages {
		role := "**" + msg.Role.DisplayName() + "**"
		if msg.IsError {
			role += " _(error)_"
		}
		sb.WriteString(role + " (" + model.FormatClock(msg.Timestamp) + "):\n\n")
		if n := len(msg.Images); n > 0 {
			sb.WriteString("_[" + strconv.Itoa(n) + " image(s) attached]_\n\n")
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportFileName returns a file name for a Markdown export of s, built
// from its title and the first characters of its ID.
func ExportFileName(s *model.Session) string {
	base := nonFileChars.ReplaceAllString(model.TemplateKey(s.Title), "")
	base = strings.Trim(dashRun.ReplaceAllString(base, "-"), "-")
	if base == "" {
		base = "chat"
	}
	id := s.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return base + "-" + id + ".md"
}

// FormatList renders sessions as an aligned table for terminal output.
// activeID is marked with an asterisk.
func FormatList(sessions []*model.Session, activeID string, now time.Time) string {
	if len(sessions) == 0 {
		return "No chats yet."
	}

	var sb strings.Builder
	sb.WriteString("  " + util.PadRight("#", 4) + util.PadRight("Title", 32) + util.PadRight("Updated", 14) + "Last message\n")
	sb.WriteString("  " + strings.Repeat("-", 76) + "\n")

	for i, s := range sessions {
		marker := "  "
		if s.ID == activeID {
			marker = "* "
		}
		sb.WriteString(marker +
			util.PadRight(strconv.Itoa(i+1), 4) +
			util.PadRight(util.TruncateWidth(s.Title, 30), 32) +
			util.PadRight(model.FormatRelative(s.UpdatedAt, now), 14) +
			util.TruncateWidth(s.Preview(), 40) + "\n")
	}
	return sb.String()
}
