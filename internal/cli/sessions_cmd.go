// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - Chat history management.
//
// Command: sessions [subcommand]
//
// Subcommands:
//   list (default)       List chats, most recent first
//   show ID              Print a chat as Markdown
//   export ID [-o FILE]  Export a chat as Markdown
//   rename ID TITLE      Rename a chat
//   delete ID            Delete a chat
//
// ID may be a list position, a full ID or a unique ID prefix.

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/util"
)

// sessionSummary is the --json shape of a list entry.
type sessionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	Messages  int       `json:"messages"`
	Preview   string    `json:"preview"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RunSessions handles the "sessions" command.
func RunSessions(ctx context.Context, env Env, args Args) error {
	ctrl := env.App.Chat
	list := ctrl.Sessions()

	target := func() (*model.Session, error) {
		if len(args.Rest) == 0 {
			return nil, fmt.Errorf("usage: rigchat sessions %s ID", args.Subcommand)
		}
		return resolveSession(list, args.Rest[0])
	}

	switch args.Subcommand {
	case "", "list", "ls":
		if args.JSON {
			out := make([]sessionSummary, 0, len(list))
			for _, s := range list {
				out = append(out, sessionSummary{
					ID: s.ID, Title: s.Title, Model: s.Model,
					Messages: len(s.Messages), Preview: s.Preview(), UpdatedAt: s.UpdatedAt,
				})
			}
			return writeJSON(env.Out, out)
		}
		fmt.Fprint(env.Out, session.FormatList(list, "", time.Now()))
		fmt.Fprintln(env.Out)
		return nil

	case "show":
		s, err := target()
		if err != nil {
			return err
		}
		doc := session.ExportMarkdown(s)
		if ShouldRenderMarkdown(args.Plain) {
			doc = RenderMarkdown(doc)
		}
		fmt.Fprint(env.Out, doc)
		return nil

	case "export":
		s, err := target()
		if err != nil {
			return err
		}
		doc := session.ExportMarkdown(s)
		if args.Output == "" {
			fmt.Fprint(env.Out, doc)
			return nil
		}
		if err := util.AtomicWriteFile(args.Output, []byte(doc), 0600); err != nil {
			return err
		}
		fmt.Fprintln(env.Err, SuccessStyle.Render("Exported")+" "+args.Output)
		return nil

	case "rename":
		s, err := target()
		if err != nil {
			return err
		}
		title := strings.Join(args.Rest[1:], " ")
		return ctrl.Rename(ctx, s.ID, title)

	case "delete", "rm":
		s, err := target()
		if err != nil {
			return err
		}
		ok, err := RequireConfirmation(env.Err, fmt.Sprintf("Delete chat %q", s.Title),
			ConfirmationOptions{Yes: args.Yes, JSONMode: args.JSON})
		if err != nil || !ok {
			return err
		}
		if _, err := ctrl.Delete(ctx, s.ID); err != nil {
			return err
		}
		fmt.Fprintln(env.Err, SuccessStyle.Render("Deleted")+" "+s.Title)
		return nil
	}
	return errors.New("unknown sessions command: " + args.Subcommand)
}
