// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat coordinates sessions, the prompt library and the inference
// client. The Controller is front-end agnostic: user intents become method
// calls and progress is reported through Hooks.
//
// # Send Lifecycle
//
//	Idle -> Sending -> Streaming -> Settled (Complete | Errored | Cancelled)
//
// Only one send may be in flight per session; a second attempt fails with
// ErrAlreadySending. A failed send keeps whatever reply text already arrived
// and appends a fixed error message. A cancelled send keeps the partial
// reply and appends nothing.
//
// # Usage
//
//	ctrl := chat.New(chat.Options{
//	    Sessions: repo,
//	    Prompts:  lib,
//	    Client:   ollama.NewClient(settings.Endpoint),
//	    Store:    store,
//	    Settings: settings,
//	})
//	ctrl.Connect(ctx)
//	s, _ := ctrl.NewSession(ctx)
//	outcome, err := ctrl.Send(ctx, s.ID, "Hello")
package chat
