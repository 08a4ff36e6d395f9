// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"regexp"
	"strings"
)

// PromptTemplate is a named system prompt. Key is derived from Name.
type PromptTemplate struct {
	Key    string `json:"key" yaml:"key,omitempty"`
	Name   string `json:"name" yaml:"name"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// TemplateKey derives the library key for a template name: lowercase, with
// each run of whitespace replaced by a single hyphen. Names that differ only
// in case or spacing map to the same key.
func TemplateKey(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
