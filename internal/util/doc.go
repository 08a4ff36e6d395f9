// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across rigchat packages.
//
// # Key Functions
//
// String Utilities:
//   - Ellipsize: keep the first N runes and mark truncation with "..."
//   - TruncateRunes: UTF-8 safe truncation that fits the ellipsis inside N runes
//   - TruncateWidth, PadRight: display-width aware helpers for list rendering
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	title := util.Ellipsize(firstMessage, 50)
//	row := util.PadRight(title, 40) + " " + age
//	err := util.AtomicWriteFile(path, data, 0600)
package util
