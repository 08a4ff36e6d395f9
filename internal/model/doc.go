// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions and messages.
//
// # Key Types
//
//   - Session: one conversation thread with its messages, model and system prompt
//   - Message: a single turn; the in-flight assistant message is the only value
//     whose content changes after it is appended
//   - PromptTemplate: a named, reusable system prompt
//   - Settings: server endpoint and default model
//   - ConnectionState: outcome of the last capability probe
//
// JSON tags keep the camelCase layout of the stored blobs so existing data
// round-trips unchanged.
package model
