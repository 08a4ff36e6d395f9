// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app assembles the store, repositories, inference client and chat
// controller from a Config. Both front-ends start from an App.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/imaging"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/prompts"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

// App holds the wired components.
type App struct {
	Store    storage.Store
	Sessions *session.Repository
	Prompts  *prompts.Library
	Client   *ollama.Client
	Chat     *chat.Controller

	mu      sync.Mutex
	config  *config.Config
	logFile io.Closer
}

// New opens the configured store, loads sessions, prompts and settings and
// builds the controller. The caller owns the App and must Close it.
func New(ctx context.Context, cfg *config.Config, hooks chat.Hooks) (*App, error) {
	store, err := cfg.Storage.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	return NewWithStore(ctx, cfg, store, hooks)
}

// NewWithStore is New with an already opened store.
func NewWithStore(ctx context.Context, cfg *config.Config, store storage.Store, hooks chat.Hooks) (*App, error) {
	repo, err := session.Open(ctx, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	lib, err := prompts.Open(ctx, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	settings := config.LoadSettings(ctx, store, cfg.DefaultSettings())

	clientCfg := ollama.DefaultConfig()
	clientCfg.BaseURL = settings.Endpoint
	clientCfg.ProbeTimeout = cfg.Server.ProbeTimeout()
	clientCfg.Timeout = cfg.Server.RequestTimeout()
	client := ollama.NewClientWithConfig(clientCfg)

	ctrl := chat.New(chat.Options{
		Sessions:          repo,
		Prompts:           lib,
		Client:            client,
		Store:             store,
		Settings:          settings,
		PersistEveryDelta: cfg.Storage.PersistEveryDelta(),
		Hooks:             hooks,
	})

	return &App{
		Store:    store,
		Sessions: repo,
		Prompts:  lib,
		Client:   client,
		Chat:     ctrl,
		config:   cfg,
	}, nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}

// Resume selects the most recently updated session, creating one if the
// store is empty.
func (a *App) Resume(ctx context.Context) (*model.Session, error) {
	if list := a.Chat.Sessions(); len(list) > 0 {
		if err := a.Chat.Select(list[0].ID); err != nil {
			return nil, err
		}
		return list[0], nil
	}
	return a.Chat.NewSession(ctx)
}

// ImageOptions returns the attachment scaling options.
func (a *App) ImageOptions() imaging.Options {
	cfg := a.Config()
	return imaging.Options{MaxDimension: cfg.Image.MaxDimension, Quality: cfg.Image.Quality}
}

// AttachImage reads, scales and encodes an image file for sending.
func (a *App) AttachImage(path string) (string, error) {
	return imaging.PrepareFile(path, a.ImageOptions())
}

// Close settles in-flight sends, flushes sessions and closes the store.
func (a *App) Close(ctx context.Context) error {
	err := a.Chat.Close(ctx)
	if cerr := a.Store.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return err
}

// =============================================================================
// LOGGING
// =============================================================================

// InitLogging points the global logger at the configured log file. A file
// that cannot be opened falls back to stderr.
func (a *App) InitLogging() {
	cfg := a.Config()
	if cfg.Log.File == "" {
		logging.Init(cfg.Log.Level, os.Stderr)
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0700); err == nil {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err == nil {
			logging.Init(cfg.Log.Level, f)
			a.logFile = f
			return
		}
	}
	logging.Init(cfg.Log.Level, os.Stderr)
	logging.Warn("LOG_FILE_UNAVAILABLE", logging.Fields{"path": cfg.Log.File})
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

// Reload applies a changed configuration. A new server endpoint is saved to
// the settings and the server is re-probed.
func (a *App) Reload(ctx context.Context, next *config.Config) {
	a.mu.Lock()
	prev := a.config
	a.config = next
	a.mu.Unlock()

	if next.Log.Level != prev.Log.Level {
		logging.Info("LOG_LEVEL_CHANGED", logging.Fields{"level": next.Log.Level})
	}
	if next.Server.Endpoint != prev.Server.Endpoint {
		if _, err := a.Chat.SaveSettings(ctx, model.Settings{Endpoint: next.Server.Endpoint}); err != nil {
			logging.Warn("ENDPOINT_RELOAD_FAILED", logging.Fields{"error": err.Error()})
		}
	}
}

// Watch reloads the config file at path until ctx ends.
func (a *App) Watch(ctx context.Context, path string) error {
	return config.Watch(ctx, path, config.DefaultDebounce, func(next *config.Config) {
		a.Reload(ctx, next)
	})
}
