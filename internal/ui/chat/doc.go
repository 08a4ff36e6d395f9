// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat view of the rigchat TUI.

The view is a Bubble Tea model layered over the session controller. It never
owns conversation state: every render reads sessions from the controller, and
controller calls that touch the network or the store run as commands off the
update loop.

# Components

## Model (model.go, update.go)

The Model holds the viewport, the input textarea, the spinner and a mirror of
the session list, the active session and the connection state. Key handling
and controller actions live in update.go.

## Bridge (bridge.go)

Controller hooks fire on the controller's goroutine. The Bridge turns them
into Bubble Tea messages sent asynchronously to the program. Reply deltas
bypass the message queue and go to the StreamingBuffer.

## Streaming (streaming.go)

The StreamingBuffer and ViewportOptimizer cap re-rendering at 30 frames per
second while a reply streams and skip frames whose content did not change.

## Slash commands (commands.go)

Commands typed into the input, such as /model, /system, /prompt and /export.

## View (view.go)

Header, session sidebar, message bubbles, attachments line and status bar.
Settled replies are rendered as Markdown with glamour and cached.
*/
package chat
