// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompts stores named, reusable system-prompt templates.
//
// Templates are keyed by a slug of their name (see model.TemplateKey).
// Saving a template whose slug already exists replaces it in place. The
// library seeds three built-in templates the first time it is opened empty.
package prompts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned for an unknown template key.
	ErrNotFound = errors.New("prompt template not found")

	// ErrEmptyName is returned when saving a template without a name.
	ErrEmptyName = errors.New("prompt template name is required")

	// ErrEmptyPrompt is returned when saving a template without prompt text.
	ErrEmptyPrompt = errors.New("prompt template text is required")
)

// =============================================================================
// BUILT-IN TEMPLATES
// =============================================================================

// Builtins are seeded into an empty library.
var Builtins = []model.PromptTemplate{
	{
		Key:    "helpful",
		Name:   "Helpful Assistant",
		Prompt: "You are a helpful, harmless, and honest AI assistant. Provide clear, accurate, and useful responses.",
	},
	{
		Key:    "creative",
		Name:   "Creative Writer",
		Prompt: "You are a creative writing assistant. Help with storytelling, character development, and creative expression.",
	},
	{
		Key:    "technical",
		Name:   "Technical Expert",
		Prompt: "You are a technical expert. Provide detailed, accurate technical information and help solve complex problems.",
	},
}

// =============================================================================
// LIBRARY
// =============================================================================

// Library is an insertion-ordered collection of prompt templates.
type Library struct {
	mu        sync.RWMutex
	store     storage.Store
	templates map[string]model.PromptTemplate
	order     []string
}

// Open loads the library from store, seeding the built-ins when it is empty.
func Open(ctx context.Context, store storage.Store) (*Library, error) {
	l := &Library{
		store:     store,
		templates: make(map[string]model.PromptTemplate),
	}

	var records []model.PromptTemplate
	err := storage.LoadJSON(ctx, store, storage.KeyPrompts, &records)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	for _, t := range records {
		if t.Key == "" {
			t.Key = model.TemplateKey(t.Name)
		}
		if t.Key == "" {
			continue
		}
		l.putLocked(t)
	}

	if len(l.order) == 0 {
		for _, t := range Builtins {
			l.putLocked(t)
		}
		if err := l.persistLocked(ctx); err != nil {
			return nil, err
		}
		logging.Info("PROMPTS_SEEDED", logging.Fields{"count": len(Builtins)})
	}
	return l, nil
}

func (l *Library) putLocked(t model.PromptTemplate) {
	if _, exists := l.templates[t.Key]; !exists {
		l.order = append(l.order, t.Key)
	}
	l.templates[t.Key] = t
}

func (l *Library) persistLocked(ctx context.Context) error {
	records := make([]model.PromptTemplate, 0, len(l.order))
	for _, key := range l.order {
		records = append(records, l.templates[key])
	}
	if err := storage.SaveJSON(ctx, l.store, storage.KeyPrompts, records); err != nil {
		return fmt.Errorf("persist prompts: %w", err)
	}
	return nil
}

// Upsert saves a template under the key derived from name. An existing
// template with the same key is overwritten and keeps its position.
func (l *Library) Upsert(ctx context.Context, name, prompt string) (model.PromptTemplate, error) {
	name = strings.TrimSpace(name)
	prompt = strings.TrimSpace(prompt)
	if name == "" {
		return model.PromptTemplate{}, ErrEmptyName
	}
	if prompt == "" {
		return model.PromptTemplate{}, ErrEmptyPrompt
	}

	t := model.PromptTemplate{Key: model.TemplateKey(name), Name: name, Prompt: prompt}

	l.mu.Lock()
	defer l.mu.Unlock()

	old, exists := l.templates[t.Key]
	if exists {
		logging.Debug("PROMPT_OVERWRITE", logging.Fields{"key": t.Key, "previous": old.Name})
	}
	l.putLocked(t)
	if err := l.persistLocked(ctx); err != nil {
		if exists {
			l.templates[t.Key] = old
		} else {
			delete(l.templates, t.Key)
			l.order = l.order[:len(l.order)-1]
		}
		return model.PromptTemplate{}, err
	}
	return t, nil
}

// Get returns the template stored under key.
func (l *Library) Get(key string) (model.PromptTemplate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.templates[key]
	if !ok {
		return model.PromptTemplate{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return t, nil
}

// List returns every template in insertion order.
func (l *Library) List() []model.PromptTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.PromptTemplate, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.templates[key])
	}
	return out
}

// Delete removes the template stored under key. The template stays in
// place if the removal cannot be persisted.
func (l *Library) Delete(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.templates[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	prevOrder := l.order
	l.order = make([]string, 0, len(prevOrder))
	for _, k := range prevOrder {
		if k != key {
			l.order = append(l.order, k)
		}
	}
	delete(l.templates, key)

	if err := l.persistLocked(ctx); err != nil {
		l.templates[key] = t
		l.order = prevOrder
		return err
	}
	return nil
}
