// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command selection and global flags for rigchat.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/rigchat/internal/app"
)

// Version information (overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdSessions
	CmdPrompts
	CmdConfig
	CmdStatus
	CmdVersion
	CmdHelp
)

var commandNames = map[string]Command{
	"tui":      CmdTUI,
	"chat":     CmdChat,
	"ask":      CmdAsk,
	"sessions": CmdSessions,
	"session":  CmdSessions,
	"prompts":  CmdPrompts,
	"prompt":   CmdPrompts,
	"config":   CmdConfig,
	"status":   CmdStatus,
	"s":        CmdStatus,
	"version":  CmdVersion,
	"help":     CmdHelp,
}

// boolFlags lists every flag that takes no value.
var boolFlags = []string{"plain", "p", "quiet", "q", "help", "h", "version", "v", "json", "yes", "y"}

// Args holds parsed CLI arguments.
type Args struct {
	Command Command

	// Global flags
	ConfigPath string // --config FILE
	Model      string // --model, -m
	Session    string // --session ID
	Endpoint   string // --endpoint URL
	Output     string // --output, -o FILE
	Images     []string
	Plain      bool
	Quiet      bool
	JSON       bool
	Yes        bool

	// Subcommand and the positionals that follow it
	Subcommand string
	Rest       []string

	Parser *ArgParser
}

// Parse interprets argv (without the program name).
func Parse(argv []string) Args {
	p := NewArgParser(argv, boolFlags...)

	args := Args{
		Command:    CmdTUI,
		ConfigPath: p.Flag("config", "c"),
		Model:      p.Flag("model", "m"),
		Session:    p.Flag("session"),
		Endpoint:   p.Flag("endpoint"),
		Output:     p.Flag("output", "o"),
		Images:     p.FlagValues("image", "i"),
		Plain:      p.BoolFlag("plain", "p"),
		Quiet:      p.BoolFlag("quiet", "q"),
		JSON:       p.BoolFlag("json"),
		Yes:        p.BoolFlag("yes", "y"),
		Parser:     p,
	}

	switch {
	case p.BoolFlag("version", "v"):
		args.Command = CmdVersion
		return args
	case p.BoolFlag("help", "h"):
		args.Command = CmdHelp
		return args
	}

	if p.PositionalCount() == 0 {
		return args
	}

	cmd, ok := commandNames[strings.ToLower(p.Positional(0))]
	if !ok {
		// A bare question is an implicit ask.
		args.Command = CmdAsk
		args.Rest = p.PositionalFrom(0)
		return args
	}
	args.Command = cmd
	args.Subcommand = strings.ToLower(p.Positional(1))
	args.Rest = p.PositionalFrom(2)
	if cmd == CmdAsk {
		args.Subcommand = ""
		args.Rest = p.PositionalFrom(1)
	}
	return args
}

// =============================================================================
// DISPATCH
// =============================================================================

// Env carries what a command handler needs.
type Env struct {
	App *app.App
	Out io.Writer
	Err io.Writer

	// Printer must be wired into the App's controller hooks for chat and
	// ask to echo replies as they stream.
	Printer *Printer
}

// Run executes a non-TUI command that needs an App.
func Run(ctx context.Context, env Env, args Args) error {
	switch args.Command {
	case CmdChat:
		return RunChat(ctx, env, args)
	case CmdAsk:
		return RunAsk(ctx, env, args)
	case CmdSessions:
		return RunSessions(ctx, env, args)
	case CmdPrompts:
		return RunPrompts(ctx, env, args)
	case CmdStatus:
		return RunStatus(ctx, env, args)
	default:
		return fmt.Errorf("command does not run here")
	}
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "rigchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

const usageText = `rigchat - chat with local models served by Ollama

Usage:
  rigchat                         Start the full-screen interface (default)
  rigchat chat                    Interactive line-mode chat
  rigchat ask "question"          Ask a single question in a new chat
  rigchat sessions [list|show|export|rename|delete] ID
  rigchat prompts [list|add|delete|import|export]
  rigchat config [show|get|set|path|init]
  rigchat status                  Probe the server and list models
  rigchat version

Flags:
  -m, --model NAME      Model for new chats
      --session ID      Continue an existing chat (chat, ask)
  -i, --image FILE      Attach an image (ask; repeatable)
  -o, --output FILE     Write export output to FILE
      --endpoint URL    Override the Ollama endpoint for this run
  -c, --config FILE     Use a specific config file
  -p, --plain           Do not render Markdown
  -q, --quiet           Print only the reply
      --json            Machine-readable output (status, sessions list)
  -y, --yes             Do not ask before deleting

Environment:
  RIGCHAT_ENDPOINT, RIGCHAT_MODEL, RIGCHAT_STORE, RIGCHAT_DATA_DIR,
  RIGCHAT_REDIS_URL, RIGCHAT_PERSIST, RIGCHAT_LOG_LEVEL, RIGCHAT_UI
`
