// rigchat - chat with local models served by Ollama.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/app"
	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/cli"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
	uichat "github.com/jeranaias/rigchat/internal/ui/chat"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// closeTimeout bounds settling in-flight sends on exit.
const closeTimeout = 5 * time.Second

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	args := cli.Parse(os.Args[1:])
	if err := run(args); err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

func run(args cli.Args) error {
	switch args.Command {
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return nil
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return nil
	case cli.CmdConfig:
		// Config edits files only and must work with a broken store.
		return cli.RunConfig(os.Stdout, args)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args.Command == cli.CmdTUI && cfg.UI.Mode != config.UIModeCLI {
		return runTUI(ctx, cfg, args)
	}
	if args.Command == cli.CmdTUI {
		args.Command = cli.CmdChat
	}
	return runCLI(ctx, cfg, args)
}

// loadConfig reads the config file named by --config or the default one.
// A default file that fails to decode is logged and defaults are used.
func loadConfig(args cli.Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	cfg, err := config.Load()
	if cfg == nil {
		return nil, err
	}
	if err != nil {
		logging.Warn("CONFIG_LOAD_FAILED", logging.Fields{"error": err.Error()})
	}
	return cfg, nil
}

// configPath is the file watched for live reload.
func configPath(args cli.Args) string {
	if args.ConfigPath != "" {
		return args.ConfigPath
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	return path
}

// openApp builds the App and applies per-run overrides.
func openApp(ctx context.Context, cfg *config.Config, args cli.Args, hooks chat.Hooks) (*app.App, error) {
	a, err := app.New(ctx, cfg, hooks)
	if err != nil {
		return nil, err
	}
	a.InitLogging()
	if args.Endpoint != "" {
		if err := a.Chat.UseEndpoint(args.Endpoint); err != nil {
			closeApp(a)
			return nil, err
		}
	}
	return a, nil
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		logging.Error("CLOSE_FAILED", logging.Fields{"error": err.Error()})
	}
}

// =============================================================================
// CLI
// =============================================================================

func runCLI(ctx context.Context, cfg *config.Config, args cli.Args) error {
	printer := cli.NewPrinter(os.Stdout)
	a, err := openApp(ctx, cfg, args, printer.Hooks())
	if err != nil {
		return err
	}
	defer closeApp(a)

	env := cli.Env{App: a, Out: os.Stdout, Err: os.Stderr, Printer: printer}
	err = cli.Run(ctx, env, args)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(ctx context.Context, cfg *config.Config, args cli.Args) error {
	bridge := uichat.NewBridge()
	a, err := openApp(ctx, cfg, args, bridge.Hooks())
	if err != nil {
		return err
	}
	defer closeApp(a)

	if _, err := a.Resume(ctx); err != nil {
		return err
	}
	if args.Model != "" {
		if err := a.Chat.SetModel(ctx, a.Chat.ActiveID(), args.Model); err != nil {
			return err
		}
	}

	m := uichat.New(ctx, a, styles.NewTheme(), bridge, uichat.Options{
		Plain: args.Plain || cfg.UI.PlainOutput,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)

	if path := configPath(args); path != "" {
		go func() {
			if err := a.Watch(ctx, path); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn("CONFIG_WATCH_STOPPED", logging.Fields{"path": path, "error": err.Error()})
			}
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}
