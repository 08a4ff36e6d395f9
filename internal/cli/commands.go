// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Slash commands available inside the chat REPL.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/util"
)

// slashCommand is one REPL command.
type slashCommand struct {
	name    string
	aliases []string
	usage   string
	help    string
	run     func(r *REPL, ctx context.Context, args []string) error
}

var slashCommands []*slashCommand

func init() {
	slashCommands = []*slashCommand{
		{name: "help", aliases: []string{"h", "?"}, help: "Show commands", run: (*REPL).cmdHelp},
		{name: "new", aliases: []string{"n"}, help: "Start a new chat", run: (*REPL).cmdNew},
		{name: "list", aliases: []string{"ls", "chats"}, help: "List chats", run: (*REPL).cmdList},
		{name: "switch", aliases: []string{"open"}, usage: "N|ID", help: "Switch to a chat", run: (*REPL).cmdSwitch},
		{name: "delete", aliases: []string{"rm"}, usage: "[N|ID]", help: "Delete a chat (default: current)", run: (*REPL).cmdDelete},
		{name: "rename", usage: "TITLE", help: "Rename the current chat", run: (*REPL).cmdRename},
		{name: "clear", aliases: []string{"reset", "c"}, help: "Clear the current chat", run: (*REPL).cmdClear},
		{name: "model", aliases: []string{"m"}, usage: "[NAME]", help: "Show or set the chat's model", run: (*REPL).cmdModel},
		{name: "models", help: "List models on the server", run: (*REPL).cmdModels},
		{name: "system", usage: "[TEXT|clear]", help: "Show or set the system prompt", run: (*REPL).cmdSystem},
		{name: "prompt", aliases: []string{"prompts"}, usage: "[list|use|save|delete|import|export]", help: "Manage prompt templates", run: (*REPL).cmdPrompt},
		{name: "image", aliases: []string{"img"}, usage: "PATH|clear", help: "Attach an image to the next message", run: (*REPL).cmdImage},
		{name: "show", help: "Show the current chat", run: (*REPL).cmdShow},
		{name: "export", usage: "[FILE]", help: "Export the current chat as Markdown", run: (*REPL).cmdExport},
		{name: "settings", usage: "[endpoint URL|model NAME|test [URL]]", help: "Show or change settings", run: (*REPL).cmdSettings},
		{name: "connect", help: "Probe the server again", run: (*REPL).cmdConnect},
		{name: "quit", aliases: []string{"q", "exit"}, help: "Exit", run: func(*REPL, context.Context, []string) error { return errQuit }},
	}
}

func findSlashCommand(name string) *slashCommand {
	name = strings.ToLower(name)
	for _, c := range slashCommands {
		if c.name == name {
			return c
		}
		for _, a := range c.aliases {
			if a == name {
				return c
			}
		}
	}
	return nil
}

// dispatch runs a "/command args" line.
func (r *REPL) dispatch(ctx context.Context, input string) error {
	fields := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(fields) == 0 {
		return r.cmdHelp(ctx, nil)
	}
	cmd := findSlashCommand(fields[0])
	if cmd == nil {
		if hint := SuggestCommand(fields[0], slashCommandNames()); hint != "" {
			return fmt.Errorf("unknown command /%s (did you mean /%s?)", fields[0], hint)
		}
		return fmt.Errorf("unknown command /%s (try /help)", fields[0])
	}
	return cmd.run(r, ctx, fields[1:])
}

// restOf returns the raw text after the command word, spacing preserved.
func restOf(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// resolveSession finds a session by 1-based list position, exact ID or
// unique ID prefix.
func resolveSession(list []*model.Session, ref string) (*model.Session, error) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(list) {
		return list[n-1], nil
	}
	var match *model.Session
	for _, s := range list {
		if s.ID == ref {
			return s, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("%q matches more than one chat", ref)
			}
			match = s
		}
	}
	if match == nil {
		return nil, &session.NotFoundError{ID: ref}
	}
	return match, nil
}

// =============================================================================
// SESSION COMMANDS
// =============================================================================

func (r *REPL) cmdHelp(context.Context, []string) error {
	fmt.Fprintln(r.out, TitleStyle.Render("Commands"))
	for _, c := range slashCommands {
		name := "/" + c.name
		if c.usage != "" {
			name += " " + c.usage
		}
		fmt.Fprintln(r.out, "  "+util.PadRight(name, 46)+DimStyle.Render(c.help))
	}
	return nil
}

func (r *REPL) cmdNew(ctx context.Context, _ []string) error {
	s, err := r.ctrl.NewSession(ctx)
	if err != nil {
		return err
	}
	r.printInfo("Started a new chat with %s.", orNone(s.Model))
	return nil
}

func (r *REPL) cmdList(context.Context, []string) error {
	fmt.Fprint(r.out, session.FormatList(r.ctrl.Sessions(), r.ctrl.ActiveID(), time.Now()))
	fmt.Fprintln(r.out)
	return nil
}

func (r *REPL) cmdSwitch(_ context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: /switch N|ID")
	}
	s, err := resolveSession(r.ctrl.Sessions(), args[0])
	if err != nil {
		return err
	}
	if err := r.ctrl.Select(s.ID); err != nil {
		return err
	}
	r.printInfo("Switched to %q (%d messages).", s.Title, len(s.Messages))
	return nil
}

func (r *REPL) cmdDelete(ctx context.Context, args []string) error {
	id := r.ctrl.ActiveID()
	if len(args) > 0 {
		s, err := resolveSession(r.ctrl.Sessions(), args[0])
		if err != nil {
			return err
		}
		id = s.ID
	}
	if id == "" {
		return errors.New("no chat selected")
	}
	wasActive, err := r.ctrl.Delete(ctx, id)
	if err != nil {
		return err
	}
	r.printInfo("Chat deleted.")
	if wasActive {
		if _, err := r.app.Resume(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *REPL) cmdRename(ctx context.Context, args []string) error {
	active, err := r.ctrl.Active()
	if err != nil {
		return err
	}
	return r.ctrl.Rename(ctx, active.ID, restOf(args))
}

func (r *REPL) cmdClear(ctx context.Context, _ []string) error {
	active, err := r.ctrl.Active()
	if err != nil {
		return err
	}
	if err := r.ctrl.Reset(ctx, active.ID); err != nil {
		return err
	}
	r.images = nil
	r.printInfo("Chat cleared.")
	return nil
}

// =============================================================================
// MODEL AND PROMPT COMMANDS
// =============================================================================

func (r *REPL) cmdModel(ctx context.Context, args []string) error {
	active, err := r.ctrl.Active()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprintln(r.out, RenderLabel("Model", orNone(active.Model)))
		return nil
	}
	name := args[0]
	if models := r.ctrl.Models(); len(models) > 0 && !slices.Contains(models, name) {
		r.printInfo("Note: %s is not in the server's model list.", name)
	}
	if err := r.ctrl.SetModel(ctx, active.ID, name); err != nil {
		return err
	}
	r.printInfo("Model set to %s.", name)
	return nil
}

func (r *REPL) cmdModels(ctx context.Context, _ []string) error {
	if r.ctrl.Connect(ctx) != model.Connected {
		return errors.New("not connected to Ollama")
	}
	current := ""
	if active, err := r.ctrl.Active(); err == nil {
		current = active.Model
	}
	for _, m := range r.ctrl.Models() {
		marker := "  "
		if m == current {
			marker = "* "
		}
		fmt.Fprintln(r.out, marker+m)
	}
	return nil
}

func (r *REPL) cmdSystem(ctx context.Context, args []string) error {
	active, err := r.ctrl.Active()
	if err != nil {
		return err
	}
	text := restOf(args)
	switch {
	case text == "":
		if active.SystemPrompt == "" {
			r.printInfo("No system prompt set.")
		} else {
			fmt.Fprintln(r.out, active.SystemPrompt)
		}
		return nil
	case strings.EqualFold(text, "clear"):
		text = ""
	}
	if err := r.ctrl.SetSystemPrompt(ctx, active.ID, text); err != nil {
		return err
	}
	r.printInfo("System prompt updated.")
	return nil
}

func (r *REPL) cmdPrompt(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
		args = args[1:]
	}
	lib := r.ctrl.Prompts()

	switch sub {
	case "list", "ls":
		for _, t := range lib.List() {
			fmt.Fprintln(r.out, "  "+util.PadRight(t.Key, 22)+t.Name)
			fmt.Fprintln(r.out, "  "+DimStyle.Render(util.Ellipsize(util.SingleLine(t.Prompt), 70)))
		}
		return nil

	case "use", "apply":
		if len(args) == 0 {
			return errors.New("usage: /prompt use KEY")
		}
		active, err := r.ctrl.Active()
		if err != nil {
			return err
		}
		t, err := r.ctrl.ApplyTemplate(ctx, active.ID, args[0])
		if err != nil {
			return err
		}
		r.printInfo("Using %q as the system prompt.", t.Name)
		return nil

	case "save", "add":
		name, text, ok := strings.Cut(restOf(args), "=")
		if !ok {
			return errors.New("usage: /prompt save NAME = TEXT")
		}
		t, err := lib.Upsert(ctx, name, text)
		if err != nil {
			return err
		}
		r.printInfo("Saved prompt %s.", t.Key)
		return nil

	case "delete", "rm":
		if len(args) == 0 {
			return errors.New("usage: /prompt delete KEY")
		}
		return lib.Delete(ctx, args[0])

	case "import":
		if len(args) == 0 {
			return errors.New("usage: /prompt import FILE")
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := lib.ImportYAML(ctx, f)
		if err != nil {
			return err
		}
		r.printInfo("Imported %d prompts.", n)
		return nil

	case "export":
		if len(args) == 0 {
			return lib.ExportYAML(r.out)
		}
		f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return err
		}
		if err := lib.ExportYAML(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return fmt.Errorf("unknown prompt command %q", sub)
}

// =============================================================================
// CONTENT COMMANDS
// =============================================================================

func (r *REPL) cmdImage(_ context.Context, args []string) error {
	path := restOf(args)
	if path == "" {
		r.printInfo("%d image(s) attached.", len(r.images))
		return nil
	}
	if strings.EqualFold(path, "clear") {
		r.images = nil
		r.printInfo("Attachments cleared.")
		return nil
	}
	img, err := r.app.AttachImage(path)
	if err != nil {
		return err
	}
	r.images = append(r.images, img)
	r.printInfo("Attached %s. It will be sent with your next message.", path)
	return nil
}

func (r *REPL) cmdShow(context.Context, []string) error {
	active, err := r.ctrl.Active()
	if err != nil {
		return err
	}
	doc := session.ExportMarkdown(active)
	if ShouldRenderMarkdown(r.plain) {
		doc = RenderMarkdown(doc)
	}
	fmt.Fprint(r.out, doc)
	return nil
}

func (r *REPL) cmdExport(_ context.Context, args []string) error {
	active, err := r.ctrl.Active()
	if err != nil {
		return err
	}
	doc := session.ExportMarkdown(active)
	if len(args) == 0 {
		fmt.Fprint(r.out, doc)
		return nil
	}
	if err := util.AtomicWriteFile(args[0], []byte(doc), 0600); err != nil {
		return err
	}
	r.printInfo("Exported to %s.", args[0])
	return nil
}

// =============================================================================
// SETTINGS COMMANDS
// =============================================================================

func (r *REPL) cmdSettings(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s := r.ctrl.Settings()
		state := r.ctrl.ConnectionState()
		fmt.Fprintln(r.out, RenderLabel("Endpoint", s.Endpoint)+" "+RenderStatus(state == model.Connected, state.String()))
		fmt.Fprintln(r.out, RenderLabel("Default model", orNone(s.DefaultModel)))
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "endpoint", "url":
		if len(args) < 2 {
			return errors.New("usage: /settings endpoint URL")
		}
		state, err := r.ctrl.SaveSettings(ctx, model.Settings{Endpoint: args[1]})
		if err != nil {
			return err
		}
		r.printInfo("Endpoint saved. %s", state)
		return nil

	case "model":
		if len(args) < 2 {
			return errors.New("usage: /settings model NAME")
		}
		if _, err := r.ctrl.SaveSettings(ctx, model.Settings{DefaultModel: args[1]}); err != nil {
			return err
		}
		r.printInfo("Default model for new chats set to %s.", args[1])
		return nil

	case "test":
		endpoint := r.ctrl.Settings().Endpoint
		if len(args) > 1 {
			endpoint = args[1]
		}
		state, err := r.ctrl.TestConnection(ctx, endpoint)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, RenderLabel("Test", endpoint)+" "+RenderStatus(state == model.Connected, state.String()))
		return nil
	}
	return fmt.Errorf("unknown settings command %q", args[0])
}

func (r *REPL) cmdConnect(ctx context.Context, _ []string) error {
	state := r.ctrl.Connect(ctx)
	fmt.Fprintln(r.out, RenderStatus(state == model.Connected, state.String())+
		" "+DimStyle.Render(fmt.Sprintf("%d models", len(r.ctrl.Models()))))
	return nil
}
