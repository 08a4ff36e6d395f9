// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/prompts"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

// ClearContextTimeout bounds the best-effort context clear during Reset.
const ClearContextTimeout = 5 * time.Second

// =============================================================================
// COLLABORATORS
// =============================================================================

// Inference is the subset of the Ollama client the controller drives.
type Inference interface {
	Probe(ctx context.Context) model.ConnectionState
	ListModelNames(ctx context.Context) []string
	StreamChat(ctx context.Context, modelName string, history []*model.Message, systemPrompt string) (*ollama.Engine, error)
	ClearContext(ctx context.Context, modelName string)
	BaseURL() string
	SetBaseURL(baseURL string)
}

// Hooks are optional observers. They run on the goroutine that caused the
// event and must not block; front-ends forward them to their own loop.
type Hooks struct {
	// OnConnection fires when the connection state or model list changes.
	OnConnection func(state model.ConnectionState, models []string)

	// OnStateChange fires on each send lifecycle transition.
	OnStateChange func(sessionID string, state State)

	// OnDelta fires after a delta has been applied to the session.
	OnDelta func(sessionID, delta string)

	// OnSessionsChanged fires after sessions are created, deleted, renamed
	// or cleared.
	OnSessionsChanged func()
}

// Options configures a Controller.
type Options struct {
	Sessions *session.Repository
	Prompts  *prompts.Library
	Client   Inference

	// Store persists Settings. Nil keeps settings in memory only.
	Store storage.Store

	// Settings are the effective settings at startup.
	Settings model.Settings

	// PersistEveryDelta writes the session after every streamed fragment.
	// When false the session is written once the reply settles.
	PersistEveryDelta bool

	Hooks Hooks
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the application state shared by the front-ends.
type Controller struct {
	sessions *session.Repository
	prompts  *prompts.Library
	client   Inference
	store    storage.Store
	hooks    Hooks

	persistEveryDelta bool

	mu       sync.Mutex
	settings model.Settings
	conn     model.ConnectionState
	models   []string
	inflight map[string]*operation
}

// New creates a controller. Sessions, Prompts and Client are required.
func New(opts Options) *Controller {
	return &Controller{
		sessions:          opts.Sessions,
		prompts:           opts.Prompts,
		client:            opts.Client,
		store:             opts.Store,
		hooks:             opts.Hooks,
		persistEveryDelta: opts.PersistEveryDelta,
		settings:          opts.Settings,
		inflight:          make(map[string]*operation),
	}
}

// Prompts returns the prompt library.
func (c *Controller) Prompts() *prompts.Library {
	return c.prompts
}

// Close cancels every in-flight send, waits for them to settle and
// flushes pending session writes.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	ops := make([]*operation, 0, len(c.inflight))
	for _, op := range c.inflight {
		ops = append(ops, op)
	}
	c.mu.Unlock()

	for _, op := range ops {
		op.cancel()
		op.wait(ctx)
	}
	return c.sessions.Flush(ctx)
}

func (c *Controller) notifySessions() {
	if c.hooks.OnSessionsChanged != nil {
		c.hooks.OnSessionsChanged()
	}
}

func (c *Controller) notifyState(id string, st State) {
	if c.hooks.OnStateChange != nil {
		c.hooks.OnStateChange(id, st)
	}
}
