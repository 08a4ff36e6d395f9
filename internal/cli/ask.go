// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Command: ask
// Short:   Ask a single question
//
// Examples:
//   rigchat ask "What is a goroutine?"
//   rigchat ask --model llava --image cat.png "What is in this picture?"
//   rigchat ask --session 3f2a "And what about channels?"
//   echo "Explain this" | rigchat ask --plain
//
// With a TTY the reply streams as it arrives and is re-rendered as
// Markdown at the end. Piped output gets the raw reply.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
)

// RunAsk handles the "ask" command.
func RunAsk(ctx context.Context, env Env, args Args) error {
	question := strings.TrimSpace(strings.Join(args.Rest, " "))
	if question == "" && !IsTTY() {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}

	a := env.App
	var images []string
	for _, path := range args.Images {
		img, err := a.AttachImage(path)
		if err != nil {
			return fmt.Errorf("attach %s: %w", path, err)
		}
		images = append(images, img)
	}
	if question == "" && len(images) == 0 {
		return errors.New("usage: rigchat ask \"question\"")
	}

	var id string
	if args.Session != "" {
		s, err := resolveSession(a.Chat.Sessions(), args.Session)
		if err != nil {
			return err
		}
		id = s.ID
	} else {
		s, err := a.Chat.NewSession(ctx)
		if err != nil {
			return err
		}
		id = s.ID
	}
	if args.Model != "" {
		if err := a.Chat.SetModel(ctx, id, args.Model); err != nil {
			return err
		}
	}

	if a.Chat.Connect(ctx) != model.Connected {
		return &UnreachableError{Endpoint: a.Client.BaseURL(), Hint: "Start it with: ollama serve"}
	}

	render := ShouldRenderMarkdown(args.Plain)
	stream := env.Printer != nil && !render
	if stream {
		env.Printer.Follow(id)
		defer env.Printer.Follow("")
	}

	outcome, err := a.Chat.Send(ctx, id, question, images...)
	if err != nil {
		if errors.Is(err, chat.ErrNoModel) {
			return fmt.Errorf("%w: pass --model or set a default with 'rigchat config set server.default_model NAME'", err)
		}
		return err
	}

	switch {
	case render:
		fmt.Fprint(env.Out, RenderMarkdown(outcome.Reply))
	case stream:
		fmt.Fprintln(env.Out)
	default:
		fmt.Fprintln(env.Out, outcome.Reply)
	}

	switch outcome.Status {
	case chat.Errored:
		return fmt.Errorf("%s (%v)", model.ErrorReply, outcome.Err)
	case chat.Cancelled:
		return errors.New("cancelled")
	}
	if !args.Quiet && outcome.Stats != nil && outcome.Stats.Complete() {
		fmt.Fprintln(env.Err, DimStyle.Render(outcome.Stats.Format()))
	}
	return nil
}
