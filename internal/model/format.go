// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strconv"
	"time"
)

// FormatRelative renders t relative to now for session lists.
func FormatRelative(t, now time.Time) string {
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return strconv.Itoa(days) + " days ago"
	default:
		return t.Format("2006-01-02")
	}
}

// FormatClock renders a message timestamp as hours and minutes.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}
