// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

// NotFoundError reports an operation on an absent session id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ErrNotFound matches every NotFoundError.
var ErrNotFound = &NotFoundError{}

// IsNotFound returns true if err is a session NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// =============================================================================
// REPOSITORY
// =============================================================================

// Repository holds every session keyed by id, in creation order, and
// tracks which one is active.
type Repository struct {
	mu       sync.Mutex
	store    storage.Store
	sessions map[string]*model.Session
	order    []string
	activeID string
	dirty    bool
}

// Open loads the session collection from store. A missing blob yields an
// empty repository; a corrupt one is an error.
func Open(ctx context.Context, store storage.Store) (*Repository, error) {
	r := &Repository{
		store:    store,
		sessions: make(map[string]*model.Session),
	}

	var records []*model.Session
	err := storage.LoadJSON(ctx, store, storage.KeySessions, &records)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	for _, s := range records {
		if s == nil || s.ID == "" {
			continue
		}
		if s.Messages == nil {
			s.Messages = make([]*model.Message, 0)
		}
		if _, dup := r.sessions[s.ID]; !dup {
			r.order = append(r.order, s.ID)
		}
		r.sessions[s.ID] = s
	}

	logging.Debug("SESSIONS_LOADED", logging.Fields{"count": len(r.order)})
	return r, nil
}

// persistLocked writes the whole collection. Callers hold r.mu.
func (r *Repository) persistLocked(ctx context.Context) error {
	records := make([]*model.Session, 0, len(r.order))
	for _, id := range r.order {
		records = append(records, r.sessions[id])
	}
	if err := storage.SaveJSON(ctx, r.store, storage.KeySessions, records); err != nil {
		r.dirty = true
		logging.Error("SESSIONS_SAVE_FAILED", logging.Fields{"error": err.Error()})
		return fmt.Errorf("persist sessions: %w", err)
	}
	r.dirty = false
	return nil
}

func (r *Repository) getLocked(id string) (*model.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return s, nil
}

// Create inserts a new empty session bound to defaultModel.
func (r *Repository) Create(ctx context.Context, defaultModel string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := model.NewSession(defaultModel)
	r.sessions[s.ID] = s
	r.order = append(r.order, s.ID)

	wasDirty := r.dirty
	if err := r.persistLocked(ctx); err != nil {
		delete(r.sessions, s.ID)
		r.order = r.order[:len(r.order)-1]
		r.dirty = wasDirty
		return nil, err
	}
	return s.Clone(), nil
}

// Delete removes a session. It reports whether the deleted session was the
// active one; in that case the selection is cleared. If the removal cannot
// be persisted the session and the selection are restored.
func (r *Repository) Delete(ctx context.Context, id string) (wasActive bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.getLocked(id)
	if err != nil {
		return false, err
	}

	prevOrder := r.order
	r.order = make([]string, 0, len(prevOrder))
	for _, oid := range prevOrder {
		if oid != id {
			r.order = append(r.order, oid)
		}
	}
	delete(r.sessions, id)

	wasActive = r.activeID == id
	if wasActive {
		r.activeID = ""
	}

	wasDirty := r.dirty
	if err := r.persistLocked(ctx); err != nil {
		r.sessions[id] = s
		r.order = prevOrder
		if wasActive {
			r.activeID = id
		}
		r.dirty = wasDirty
		return false, err
	}
	return wasActive, nil
}

// Get returns a snapshot of the session.
func (r *Repository) Get(id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// List returns snapshots of every session, most recently updated first.
func (r *Repository) List() []*model.Session {
	r.mu.Lock()
	out := make([]*model.Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id].Clone())
	}
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Len returns the number of sessions.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Rename sets the session title. A blank title restores the default.
func (r *Repository) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultTitle
	}
	return r.Update(ctx, id, func(s *model.Session) error {
		s.Title = title
		return nil
	})
}

// AppendMessage adds msg to the session. The first user message with text
// also names the session.
func (r *Repository) AppendMessage(ctx context.Context, id string, msg *model.Message) error {
	return r.Update(ctx, id, func(s *model.Session) error {
		if msg.Role == model.RoleUser && s.IsEmpty() && !model.IsBlank(msg.Content) {
			s.Title = model.DeriveTitle(strings.TrimSpace(msg.Content))
		}
		s.AddMessage(msg)
		return nil
	})
}

// Update runs fn against the live session and persists the result. fn must
// not retain the pointer. If fn returns an error nothing is persisted.
func (r *Repository) Update(ctx context.Context, id string, fn func(*model.Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.applyLocked(id, fn); err != nil {
		return err
	}
	return r.persistLocked(ctx)
}

// Apply runs fn against the live session without persisting. The change is
// written by the next Flush or persisting mutation.
func (r *Repository) Apply(id string, fn func(*model.Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(id, fn)
}

func (r *Repository) applyLocked(id string, fn func(*model.Session) error) error {
	s, err := r.getLocked(id)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	s.Touch()
	r.dirty = true
	return nil
}

// Flush persists pending changes made through Apply.
func (r *Repository) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return nil
	}
	return r.persistLocked(ctx)
}

// Dirty reports whether there are unpersisted changes.
func (r *Repository) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// =============================================================================
// ACTIVE SELECTION
// =============================================================================

// Select makes id the active session.
func (r *Repository) Select(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.getLocked(id); err != nil {
		return err
	}
	r.activeID = id
	return nil
}

// ClearSelection leaves no session active.
func (r *Repository) ClearSelection() {
	r.mu.Lock()
	r.activeID = ""
	r.mu.Unlock()
}

// ActiveID returns the active session id, or "" when none is selected.
func (r *Repository) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}
