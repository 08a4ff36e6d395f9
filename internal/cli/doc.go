// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the line-mode front-end.
//
// # Key Types
//
//   - Command: the top-level commands
//   - Args: parsed global flags, subcommand and positionals
//   - REPL: interactive chat loop with slash commands
//   - Printer: echoes streamed replies
//
// # Usage
//
//	args := cli.Parse(os.Args[1:])
//	printer := cli.NewPrinter(os.Stdout)
//	a, _ := app.New(ctx, cfg, printer.Hooks())
//	err := cli.Run(ctx, cli.Env{App: a, Out: os.Stdout, Err: os.Stderr, Printer: printer}, args)
//
// Commands: chat, ask, sessions, prompts, config, status, version.
package cli
