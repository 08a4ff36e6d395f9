// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompts

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigchat/internal/model"
)

// document is the on-disk YAML layout for import and export.
type document struct {
	Prompts []model.PromptTemplate `yaml:"prompts"`
}

// ExportYAML writes every template to w.
func (l *Library) ExportYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Prompts: l.List()}); err != nil {
		return fmt.Errorf("encode prompts: %w", err)
	}
	return enc.Close()
}

// ImportYAML upserts every template read from r and returns how many were
// saved. Entries missing a name or prompt are skipped.
func (l *Library) ImportYAML(ctx context.Context, r io.Reader) (int, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("decode prompts: %w", err)
	}

	imported := 0
	for _, t := range doc.Prompts {
		if _, err := l.Upsert(ctx, t.Name, t.Prompt); err != nil {
			if err == ErrEmptyName || err == ErrEmptyPrompt {
				continue
			}
			return imported, err
		}
		imported++
	}
	return imported, nil
}
