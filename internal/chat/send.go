// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/session"
)

// =============================================================================
// OUTCOME
// =============================================================================

// Status is how a send settled.
type Status int

const (
	Complete Status = iota
	Errored
	Cancelled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Errored:
		return "errored"
	case Cancelled:
		return "cancelled"
	default:
		return "complete"
	}
}

// Outcome describes a settled send.
type Outcome struct {
	Status Status

	// Reply is the assistant text received, possibly partial.
	Reply string

	// Err is the transport or server error for Errored sends.
	Err error

	// Stats are the stream statistics; nil if the request never started.
	Stats *ollama.StreamStats
}

// =============================================================================
// SEND
// =============================================================================

// Send appends a user message to the session and streams the assistant
// reply into it. It blocks until the reply settles.
//
// A PreconditionError or ErrAlreadySending means nothing was changed. Once
// the user message is appended the error return is nil and the Outcome
// reports how the reply ended.
func (c *Controller) Send(ctx context.Context, id, text string, images ...string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(images) == 0 {
		return Outcome{}, ErrNoContent
	}
	if c.ConnectionState() != model.Connected {
		return Outcome{}, ErrNotConnected
	}
	sess, err := c.sessions.Get(id)
	if err != nil {
		return Outcome{}, ErrNoSession
	}
	if sess.Model == "" {
		return Outcome{}, ErrNoModel
	}

	opCtx, cancel := context.WithCancel(ctx)
	op, err := c.begin(id, cancel)
	if err != nil {
		cancel()
		return Outcome{}, err
	}
	defer c.end(id, op)
	c.notifyState(id, Sending)

	// Writes outlive cancellation so a stopped reply is still saved.
	persistCtx := context.WithoutCancel(ctx)

	if err := c.sessions.AppendMessage(persistCtx, id, model.NewUserMessage(text, images...)); err != nil {
		if session.IsNotFound(err) {
			return Outcome{}, ErrNoSession
		}
		// The message is in memory and the repository is dirty; the next
		// successful write carries it.
		logging.Warn("USER_MESSAGE_PERSIST_FAILED", logging.Fields{"session": id, "error": err.Error()})
	}
	c.notifySessions()

	outcome := c.stream(opCtx, persistCtx, id, op)

	c.settle(persistCtx, id, &outcome)
	c.notifyState(id, Settled)
	c.notifySessions()
	return outcome, nil
}

// stream runs the request and applies deltas until the stream ends.
func (c *Controller) stream(ctx, persistCtx context.Context, id string, op *operation) Outcome {
	snap, err := c.sessions.Get(id)
	if err != nil {
		return Outcome{Status: Cancelled}
	}

	engine, err := c.client.StreamChat(ctx, snap.Model, snap.Messages, snap.SystemPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Status: Cancelled}
		}
		if ollama.IsConnectionError(err) {
			c.setConnection(model.Disconnected, nil)
		}
		return Outcome{Status: Errored, Err: err}
	}
	defer engine.Close()

	var reply strings.Builder
	started := false
	for {
		delta, err := engine.Next()
		if err != nil {
			out := Outcome{Reply: reply.String(), Stats: engine.Stats()}
			switch {
			case errors.Is(err, io.EOF):
				out.Status = Complete
			case ctx.Err() != nil:
				out.Status = Cancelled
			default:
				out.Status = Errored
				out.Err = err
			}
			return out
		}

		if !started {
			started = true
			op.setState(Streaming)
			c.notifyState(id, Streaming)
		}
		if !c.applyDelta(persistCtx, id, delta) {
			return Outcome{Status: Cancelled, Reply: reply.String(), Stats: engine.Stats()}
		}
		reply.WriteString(delta)
		if c.hooks.OnDelta != nil {
			c.hooks.OnDelta(id, delta)
		}
	}
}

// applyDelta appends delta to the in-flight assistant message, creating it
// for the first delta. It reports false if the session is gone.
func (c *Controller) applyDelta(ctx context.Context, id, delta string) bool {
	fn := func(s *model.Session) error {
		last := s.LastMessage()
		if last == nil || !last.IsStreaming() {
			last = model.NewStreamingMessage()
			s.Messages = append(s.Messages, last)
		}
		last.AppendDelta(delta)
		return nil
	}

	var err error
	if c.persistEveryDelta {
		err = c.sessions.Update(ctx, id, fn)
	} else {
		err = c.sessions.Apply(id, fn)
	}
	if session.IsNotFound(err) {
		return false
	}
	return true
}

// settle freezes the assistant message, records stats, appends the error
// reply when needed and persists.
func (c *Controller) settle(ctx context.Context, id string, out *Outcome) {
	err := c.sessions.Update(ctx, id, func(s *model.Session) error {
		if last := s.LastMessage(); last != nil && last.IsStreaming() {
			last.Finalize()
			if out.Stats != nil && out.Stats.Complete() {
				last.TokenCount = out.Stats.CompletionTokens
				last.TokensPerSec = out.Stats.TokensPerSecond
			}
		}
		if out.Status == Errored {
			s.AddMessage(model.NewErrorMessage())
		}
		return nil
	})
	if err != nil && !session.IsNotFound(err) {
		logging.Warn("REPLY_PERSIST_FAILED", logging.Fields{"session": id, "error": err.Error()})
	}

	switch out.Status {
	case Errored:
		logging.Error("STREAM_ERROR", logging.Fields{"session": id, "error": out.Err.Error()})
	case Cancelled:
		logging.Info("STREAM_CANCELLED", logging.Fields{"session": id, "chars": len(out.Reply)})
	default:
		fields := logging.Fields{"session": id, "chars": len(out.Reply)}
		if out.Stats != nil {
			fields["skipped"] = out.Stats.SkippedRecords
		}
		logging.Debug("STREAM_COMPLETE", fields)
	}
}

// =============================================================================
// RESET
// =============================================================================

// Reset empties a session and restores its default title. Any in-flight
// send is cancelled first. When connected, the server is asked to drop its
// cached context for the session's model; that request never blocks or
// fails the reset.
func (c *Controller) Reset(ctx context.Context, id string) error {
	c.cancelAndWait(ctx, id)

	sess, err := c.sessions.Get(id)
	if err != nil {
		return err
	}

	if c.ConnectionState() == model.Connected && sess.Model != "" {
		clearCtx, cancel := context.WithTimeout(ctx, ClearContextTimeout)
		c.client.ClearContext(clearCtx, sess.Model)
		cancel()
	}

	err = c.sessions.Update(ctx, id, func(s *model.Session) error {
		s.ClearHistory()
		return nil
	})
	c.notifySessions()
	return err
}
