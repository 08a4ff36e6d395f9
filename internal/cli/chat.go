// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line-mode chat.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Examples:
//   rigchat chat                       Continue the most recent chat
//   rigchat chat --session 3f2a        Continue a specific chat
//   rigchat chat --model mistral       Use a model for this chat
//
// Type /help inside the chat for commands. Ctrl+C cancels a reply in
// progress; Ctrl+D or /quit exits.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/rigchat/internal/app"
	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineReader reads one line of input. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// lineEditor wraps liner with a persistent history file.
type lineEditor struct {
	*liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{State: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(e.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return e
}

// Close saves history with owner-only permissions and restores the terminal.
func (e *lineEditor) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.WriteHistory(f)
			f.Close()
		}
	}
	e.State.Close()
}

// =============================================================================
// REPL
// =============================================================================

// errQuit ends the REPL loop.
var errQuit = errors.New("quit")

// REPL is the line-mode chat loop.
type REPL struct {
	app     *app.App
	ctrl    *chat.Controller
	printer *Printer
	in      LineReader
	out     io.Writer
	plain   bool

	// interrupt wraps ctx for the duration of one reply so Ctrl+C cancels it.
	interrupt func(ctx context.Context) (context.Context, context.CancelFunc)

	// images are attached to the next message
	images []string
}

// NewREPL creates a REPL over in and out.
func NewREPL(a *app.App, printer *Printer, in LineReader, out io.Writer, plain bool) *REPL {
	return &REPL{
		app:     a,
		ctrl:    a.Chat,
		printer: printer,
		in:      in,
		out:     out,
		plain:   plain,
		interrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
	}
}

// RunChat handles the "chat" command.
func RunChat(ctx context.Context, env Env, args Args) error {
	if err := openSession(ctx, env.App, args); err != nil {
		return err
	}

	editor := newLineEditor()
	defer editor.Close()

	printer := env.Printer
	if printer == nil {
		return errors.New("chat needs a printer wired into the controller hooks")
	}
	r := NewREPL(env.App, printer, editor, env.Out, args.Plain)
	r.ctrl.Connect(ctx)
	if !args.Quiet {
		r.printWelcome()
	}
	return r.Run(ctx)
}

// openSession selects the session named by --session, or resumes the most
// recent one, and applies --model.
func openSession(ctx context.Context, a *app.App, args Args) error {
	if args.Session != "" {
		s, err := resolveSession(a.Chat.Sessions(), args.Session)
		if err != nil {
			return err
		}
		if err := a.Chat.Select(s.ID); err != nil {
			return err
		}
	} else if _, err := a.Resume(ctx); err != nil {
		return err
	}
	if args.Model != "" {
		return a.Chat.SetModel(ctx, a.Chat.ActiveID(), args.Model)
	}
	return nil
}

// Run reads lines until EOF or /quit.
func (r *REPL) Run(ctx context.Context) error {
	for {
		input, err := r.in.Prompt(PromptStyle.Render("rigchat> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D and closed input all exit.
			fmt.Fprintln(r.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			if err := r.dispatch(ctx, input); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				r.printError(err)
			}
			continue
		}

		if err := r.send(ctx, input); err != nil {
			r.printError(err)
		}
	}
}

// send streams one reply into the active session.
func (r *REPL) send(ctx context.Context, text string) error {
	active, err := r.ctrl.Active()
	if err != nil {
		if active, err = r.ctrl.NewSession(ctx); err != nil {
			return err
		}
	}
	if r.ctrl.ConnectionState() != model.Connected {
		r.ctrl.Connect(ctx)
	}

	sendCtx, stop := r.interrupt(ctx)
	defer stop()

	r.printer.Follow(active.ID)
	fmt.Fprintln(r.out, AssistantStyle.Render("Assistant:"))
	outcome, err := r.ctrl.Send(sendCtx, active.ID, text, r.images...)
	r.printer.Follow("")
	if err != nil {
		return err
	}
	r.images = nil
	fmt.Fprintln(r.out)

	switch outcome.Status {
	case chat.Errored:
		fmt.Fprintln(r.out, ErrorStyle.Render(model.ErrorReply))
		fmt.Fprintln(r.out, DimStyle.Render(outcome.Err.Error()))
	case chat.Cancelled:
		fmt.Fprintln(r.out, WarningStyle.Render("[Cancelled]"))
	default:
		if outcome.Stats != nil && outcome.Stats.Complete() {
			fmt.Fprintln(r.out, DimStyle.Render(outcome.Stats.Format()))
		}
	}
	return nil
}

func (r *REPL) printError(err error) {
	fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
}

func (r *REPL) printInfo(format string, args ...any) {
	fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf(format, args...)))
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, TitleStyle.Render("rigchat")+" "+DimStyle.Render(Version))
	state := r.ctrl.ConnectionState()
	fmt.Fprintln(r.out, RenderLabel("Server", r.app.Client.BaseURL())+" "+
		RenderStatus(state == model.Connected, state.String()))
	if s, err := r.ctrl.Active(); err == nil {
		fmt.Fprintln(r.out, RenderLabel("Chat", s.Title))
		fmt.Fprintln(r.out, RenderLabel("Model", orNone(s.Model)))
	}
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Fprintln(r.out)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
